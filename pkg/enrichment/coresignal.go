package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adrata/backend/pkg/utils"
)

const (
	coreSignalEmployeeBase = "/cdapi/v2/employee_multi_source"
	coreSignalCompanyBase  = "/cdapi/v2/company_multi_source"
)

// CoreSignalProvider searches CoreSignal's multi-source datasets with an
// Elasticsearch DSL query and collects the first hit.
type CoreSignalProvider struct {
	client *apiClient
}

func NewCoreSignalProvider(opts ClientOptions) *CoreSignalProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.coresignal.com"
	}
	return &CoreSignalProvider{client: newAPIClient(SourceCoreSignal, "apikey", opts)}
}

func (p *CoreSignalProvider) Name() string {
	return SourceCoreSignal
}

func (p *CoreSignalProvider) Priority() int {
	return 1
}

func (p *CoreSignalProvider) Available() bool {
	return p.client.apiKey != ""
}

func (p *CoreSignalProvider) Supports(req Request) bool {
	switch req.Kind {
	case KindPerson:
		return req.LinkedinURL != "" || (req.Name() != "" && (req.CompanyName != "" || req.CompanyDomain != ""))
	case KindCompany:
		return req.CompanyDomain != "" || req.CompanyName != "" || req.Website != ""
	}
	return false
}

type coreSignalEmployee struct {
	ID               int64  `json:"id"`
	FullName         string `json:"full_name"`
	Headline         string `json:"headline"`
	Title            string `json:"active_experience_title"`
	Department       string `json:"active_experience_department"`
	ManagementLevel  string `json:"active_experience_management_level"`
	LinkedinURL      string `json:"linkedin_url"`
	LocationCity     string `json:"location_city"`
	LocationState    string `json:"location_state"`
	LocationCountry  string `json:"location_country"`
	ProfessionalMail string `json:"primary_professional_email"`
	CompanyName      string `json:"active_experience_company_name"`
	CompanyWebsite   string `json:"active_experience_company_website"`
}

type coreSignalCompany struct {
	ID             int64  `json:"id"`
	CompanyName    string `json:"company_name"`
	Website        string `json:"website"`
	Industry       string `json:"industry"`
	EmployeesCount int    `json:"employees_count"`
	Description    string `json:"description"`
	LinkedinURL    string `json:"linkedin_url"`
	HQCity         string `json:"hq_city"`
	HQState        string `json:"hq_state"`
	HQCountry      string `json:"hq_country"`
	Revenue        string `json:"revenue_annual_range"`
}

func matchPhrase(field, value string) map[string]interface{} {
	return map[string]interface{}{"match_phrase": map[string]interface{}{field: value}}
}

func boolQuery(clause string, terms ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"bool": map[string]interface{}{clause: terms}}
}

// personQuery prefers the LinkedIn URL; otherwise it needs a name plus an employer.
func personQuery(req Request) (map[string]interface{}, bool) {
	if req.LinkedinURL != "" {
		return boolQuery("must", matchPhrase("linkedin_url", strings.TrimRight(req.LinkedinURL, "/"))), true
	}
	var employer []map[string]interface{}
	if req.CompanyName != "" {
		employer = append(employer, matchPhrase("active_experience_company_name", req.CompanyName))
	}
	if req.CompanyDomain != "" {
		employer = append(employer, matchPhrase("active_experience_company_website", req.CompanyDomain))
	}
	return boolQuery("must", matchPhrase("full_name", req.Name()), boolQuery("should", employer...)), false
}

func companyQuery(req Request) map[string]interface{} {
	domain := utils.FirstNonEmpty(req.CompanyDomain, utils.DomainFromURL(req.Website))
	if domain != "" {
		return boolQuery("must", matchPhrase("website", domain))
	}
	return boolQuery("must", matchPhrase("company_name", req.CompanyName))
}

// search returns the first matching id, or 0 when nothing matched.
func (p *CoreSignalProvider) search(ctx context.Context, base string, q map[string]interface{}) (int64, error) {
	var ids []int64
	if _, err := p.client.postJSON(ctx, base+"/search/es_dsl", map[string]interface{}{"query": q}, &ids); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

func (p *CoreSignalProvider) Enrich(ctx context.Context, req Request) (*Result, error) {
	if req.Kind == KindCompany {
		return p.enrichCompany(ctx, req)
	}
	return p.enrichPerson(ctx, req)
}

func (p *CoreSignalProvider) enrichPerson(ctx context.Context, req Request) (*Result, error) {
	q, byLinkedin := personQuery(req)
	id, err := p.search(ctx, coreSignalEmployeeBase, q)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return noMatch(p.Name(), "no matching employee"), nil
	}

	var emp coreSignalEmployee
	raw, err := p.client.getJSON(ctx, fmt.Sprintf("%s/collect/%d", coreSignalEmployeeBase, id), &emp)
	if err != nil {
		return nil, err
	}

	confidence := 0.7
	if byLinkedin {
		confidence = 0.9
	}
	result := &Result{
		Source:      p.Name(),
		Success:     true,
		Confidence:  confidence,
		Email:       utils.NormalizeEmail(emp.ProfessionalMail),
		JobTitle:    utils.FirstNonEmpty(emp.Title, emp.Headline),
		Department:  emp.Department,
		Seniority:   emp.ManagementLevel,
		LinkedinURL: emp.LinkedinURL,
		City:        emp.LocationCity,
		State:       emp.LocationState,
		Country:     emp.LocationCountry,
		CompanyName: emp.CompanyName,
		Website:     emp.CompanyWebsite,
		Domain:      utils.DomainFromURL(emp.CompanyWebsite),
		Raw:         json.RawMessage(raw),
		FetchedAt:   time.Now().UTC(),
	}
	if result.Email != "" {
		result.EmailConfidence = confidence
	}
	return result, nil
}

func (p *CoreSignalProvider) enrichCompany(ctx context.Context, req Request) (*Result, error) {
	id, err := p.search(ctx, coreSignalCompanyBase, companyQuery(req))
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return noMatch(p.Name(), "no matching company"), nil
	}

	var c coreSignalCompany
	raw, err := p.client.getJSON(ctx, fmt.Sprintf("%s/collect/%d", coreSignalCompanyBase, id), &c)
	if err != nil {
		return nil, err
	}
	return &Result{
		Source:        p.Name(),
		Success:       true,
		Confidence:    0.85,
		CompanyName:   c.CompanyName,
		Website:       c.Website,
		Domain:        utils.DomainFromURL(c.Website),
		Industry:      c.Industry,
		EmployeeCount: c.EmployeesCount,
		Revenue:       c.Revenue,
		Description:   c.Description,
		LinkedinURL:   c.LinkedinURL,
		City:          c.HQCity,
		State:         c.HQState,
		Country:       c.HQCountry,
		Raw:           json.RawMessage(raw),
		FetchedAt:     time.Now().UTC(),
	}, nil
}
