package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Request kinds
const (
	KindPerson  = "person"
	KindCompany = "company"
)

// Provider names
const (
	SourceCoreSignal = "coresignal"
	SourceLusha      = "lusha"
	SourceProspeo    = "prospeo"
	SourceWebsite    = "website"
)

// HighConfidence stops the provider chain once a result reaches it.
const HighConfidence = 0.8

// Request describes the record to enrich. Only the fields relevant to Kind
// are used by providers.
type Request struct {
	Kind          string `json:"kind"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	FullName      string `json:"full_name,omitempty"`
	Email         string `json:"email,omitempty"`
	LinkedinURL   string `json:"linkedin_url,omitempty"`
	CompanyName   string `json:"company_name,omitempty"`
	CompanyDomain string `json:"company_domain,omitempty"`
	Website       string `json:"website,omitempty"`
}

// Name returns the full name, assembling it from its parts when needed.
func (r Request) Name() string {
	if n := strings.TrimSpace(r.FullName); n != "" {
		return n
	}
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}

// CacheKey is stable for requests that identify the same record.
func (r Request) CacheKey() string {
	parts := []string{
		r.Kind,
		strings.ToLower(strings.TrimSpace(r.LinkedinURL)),
		strings.ToLower(strings.TrimSpace(r.Email)),
		strings.ToLower(r.Name()),
		strings.ToLower(strings.TrimSpace(r.CompanyDomain)),
		strings.ToLower(strings.TrimSpace(r.CompanyName)),
		strings.ToLower(strings.TrimSpace(r.Website)),
	}
	return strings.Join(parts, "|")
}

// Result is what one provider returned for a request. Success=false with a
// nil error means the provider answered but had no match.
type Result struct {
	Source          string          `json:"source"`
	Sources         []string        `json:"sources,omitempty"`
	Success         bool            `json:"success"`
	Confidence      float64         `json:"confidence"`
	Error           string          `json:"error,omitempty"`
	Email           string          `json:"email,omitempty"`
	EmailConfidence float64         `json:"email_confidence,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	MobilePhone     string          `json:"mobile_phone,omitempty"`
	PhoneConfidence float64         `json:"phone_confidence,omitempty"`
	JobTitle        string          `json:"job_title,omitempty"`
	Department      string          `json:"department,omitempty"`
	Seniority       string          `json:"seniority,omitempty"`
	LinkedinURL     string          `json:"linkedin_url,omitempty"`
	City            string          `json:"city,omitempty"`
	State           string          `json:"state,omitempty"`
	Country         string          `json:"country,omitempty"`
	CompanyName     string          `json:"company_name,omitempty"`
	Website         string          `json:"website,omitempty"`
	Domain          string          `json:"domain,omitempty"`
	Industry        string          `json:"industry,omitempty"`
	EmployeeCount   int             `json:"employee_count,omitempty"`
	Revenue         string          `json:"revenue,omitempty"`
	Description     string          `json:"description,omitempty"`
	Raw             json.RawMessage `json:"raw,omitempty"`
	FetchedAt       time.Time       `json:"fetched_at"`
}

func noMatch(source, reason string) *Result {
	return &Result{Source: source, Error: reason, FetchedAt: time.Now().UTC()}
}

// Provider is one third-party data source
type Provider interface {
	Name() string
	// Priority orders providers; lower runs first.
	Priority() int
	Available() bool
	Supports(req Request) bool
	Enrich(ctx context.Context, req Request) (*Result, error)
}

// ToJSON serialises a result for caching.
func (r *Result) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a cached result.
func FromJSON(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return &r, nil
}
