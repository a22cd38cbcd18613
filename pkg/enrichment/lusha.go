package enrichment

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/adrata/backend/pkg/utils"
)

// LushaProvider looks people and companies up in Lusha's v2 API.
type LushaProvider struct {
	client *apiClient
}

func NewLushaProvider(opts ClientOptions) *LushaProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.lusha.com"
	}
	return &LushaProvider{client: newAPIClient(SourceLusha, "api_key", opts)}
}

func (p *LushaProvider) Name() string {
	return SourceLusha
}

func (p *LushaProvider) Priority() int {
	return 2
}

func (p *LushaProvider) Available() bool {
	return p.client.apiKey != ""
}

func (p *LushaProvider) Supports(req Request) bool {
	switch req.Kind {
	case KindPerson:
		if req.LinkedinURL != "" {
			return true
		}
		first, last := p.names(req)
		return first != "" && last != "" && (req.CompanyDomain != "" || req.CompanyName != "")
	case KindCompany:
		return req.CompanyDomain != "" || req.Website != ""
	}
	return false
}

func (p *LushaProvider) names(req Request) (string, string) {
	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if first == "" || last == "" {
		f, l := utils.SplitFullName(req.FullName)
		first, last = utils.FirstNonEmpty(first, f), utils.FirstNonEmpty(last, l)
	}
	return first, last
}

// emailGrades maps Lusha's letter grades onto a 0-1 confidence.
var emailGrades = map[string]float64{
	"A+": 0.95,
	"A":  0.9,
	"B":  0.75,
	"C":  0.5,
}

func EmailGradeConfidence(grade string) float64 {
	return emailGrades[strings.ToUpper(strings.TrimSpace(grade))]
}

type lushaPersonResponse struct {
	Contact struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Data *lushaPerson `json:"data"`
	} `json:"contact"`
}

type lushaPerson struct {
	FullName       string `json:"fullName"`
	EmailAddresses []struct {
		Email           string `json:"email"`
		EmailType       string `json:"emailType"`
		EmailConfidence string `json:"emailConfidence"`
	} `json:"emailAddresses"`
	PhoneNumbers []struct {
		Number    string `json:"number"`
		PhoneType string `json:"phoneType"`
	} `json:"phoneNumbers"`
	JobTitle struct {
		Title       string   `json:"title"`
		Departments []string `json:"departments"`
		Seniority   string   `json:"seniority"`
	} `json:"jobTitle"`
	Location struct {
		City    string `json:"city"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"location"`
	SocialLinks struct {
		Linkedin string `json:"linkedin"`
	} `json:"socialLinks"`
	Company struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
	} `json:"company"`
}

type lushaCompanyResponse struct {
	Data *struct {
		Name          string `json:"name"`
		Domain        string `json:"domain"`
		Website       string `json:"website"`
		Description   string `json:"description"`
		Industry      string `json:"mainIndustry"`
		EmployeeCount int    `json:"employeeCount"`
		Revenue       string `json:"revenueRange"`
		Linkedin      string `json:"linkedin"`
		Location      struct {
			City    string `json:"city"`
			State   string `json:"state"`
			Country string `json:"country"`
		} `json:"location"`
	} `json:"data"`
}

func (p *LushaProvider) Enrich(ctx context.Context, req Request) (*Result, error) {
	if req.Kind == KindCompany {
		return p.enrichCompany(ctx, req)
	}
	return p.enrichPerson(ctx, req)
}

func (p *LushaProvider) enrichPerson(ctx context.Context, req Request) (*Result, error) {
	params := url.Values{}
	if req.LinkedinURL != "" {
		params.Set("linkedinUrl", req.LinkedinURL)
	} else {
		first, last := p.names(req)
		params.Set("firstName", first)
		params.Set("lastName", last)
		if req.CompanyDomain != "" {
			params.Set("companyDomain", req.CompanyDomain)
		} else {
			params.Set("companyName", req.CompanyName)
		}
	}

	var resp lushaPersonResponse
	raw, err := p.client.getJSON(ctx, "/v2/person?"+params.Encode(), &resp)
	if err != nil {
		return nil, err
	}
	if resp.Contact.Data == nil {
		reason := "no matching contact"
		if resp.Contact.Error != nil && resp.Contact.Error.Message != "" {
			reason = resp.Contact.Error.Message
		}
		return noMatch(p.Name(), reason), nil
	}

	d := resp.Contact.Data
	result := &Result{
		Source:      p.Name(),
		Success:     true,
		JobTitle:    d.JobTitle.Title,
		Seniority:   d.JobTitle.Seniority,
		LinkedinURL: d.SocialLinks.Linkedin,
		City:        d.Location.City,
		State:       d.Location.State,
		Country:     d.Location.Country,
		CompanyName: d.Company.Name,
		Domain:      d.Company.Domain,
		Raw:         json.RawMessage(raw),
		FetchedAt:   time.Now().UTC(),
	}
	if len(d.JobTitle.Departments) > 0 {
		result.Department = d.JobTitle.Departments[0]
	}

	// highest grade wins; work addresses win ties
	bestWork := false
	for _, e := range d.EmailAddresses {
		conf := EmailGradeConfidence(e.EmailConfidence)
		work := strings.EqualFold(e.EmailType, "work")
		if result.Email == "" || conf > result.EmailConfidence || (conf == result.EmailConfidence && work && !bestWork) {
			result.Email = utils.NormalizeEmail(e.Email)
			result.EmailConfidence = conf
			bestWork = work
		}
	}
	for _, ph := range d.PhoneNumbers {
		switch strings.ToLower(ph.PhoneType) {
		case "mobile":
			if result.MobilePhone == "" {
				result.MobilePhone = ph.Number
			}
		default:
			if result.Phone == "" {
				result.Phone = ph.Number
			}
		}
	}
	if result.Phone != "" || result.MobilePhone != "" {
		result.PhoneConfidence = 0.8
	}

	result.Confidence = 0.6
	if result.EmailConfidence > result.Confidence {
		result.Confidence = result.EmailConfidence
	}
	return result, nil
}

func (p *LushaProvider) enrichCompany(ctx context.Context, req Request) (*Result, error) {
	domain := utils.FirstNonEmpty(req.CompanyDomain, utils.DomainFromURL(req.Website))
	var resp lushaCompanyResponse
	raw, err := p.client.getJSON(ctx, "/v2/company?"+url.Values{"domain": {domain}}.Encode(), &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return noMatch(p.Name(), "no matching company"), nil
	}
	d := resp.Data
	return &Result{
		Source:        p.Name(),
		Success:       true,
		Confidence:    0.8,
		CompanyName:   d.Name,
		Domain:        utils.FirstNonEmpty(d.Domain, domain),
		Website:       d.Website,
		Description:   d.Description,
		Industry:      d.Industry,
		EmployeeCount: d.EmployeeCount,
		Revenue:       d.Revenue,
		LinkedinURL:   d.Linkedin,
		City:          d.Location.City,
		State:         d.Location.State,
		Country:       d.Location.Country,
		Raw:           json.RawMessage(raw),
		FetchedAt:     time.Now().UTC(),
	}, nil
}
