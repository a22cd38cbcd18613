package enrichment

import (
	"context"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/adrata/backend/pkg/errors"
)

// Outcome collects everything the provider chain produced for one request.
type Outcome struct {
	Results []*Result `json:"results"`
	Errors  []string  `json:"errors,omitempty"`
	Cached  int       `json:"cached"`
}

// Succeeded reports whether any provider returned a match.
func (o *Outcome) Succeeded() bool {
	for _, r := range o.Results {
		if r.Success {
			return true
		}
	}
	return false
}

// Registry runs providers in priority order.
type Registry struct {
	providers []Provider
	cache     Cache
}

func NewRegistry(providers []Provider, cache Cache) *Registry {
	sorted := append([]Provider(nil), providers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &Registry{providers: sorted, cache: cache}
}

// Providers lists the registered providers in run order.
func (r *Registry) Providers() []Provider {
	return r.providers
}

// Available lists provider names that have credentials.
func (r *Registry) Available() []string {
	var names []string
	for _, p := range r.providers {
		if p.Available() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Enrich asks each available, supporting provider in turn and stops once a
// result reaches HighConfidence. Provider failures are recorded on the
// outcome and never abort the chain.
func (r *Registry) Enrich(ctx context.Context, req Request) *Outcome {
	out := &Outcome{}
	for _, p := range r.providers {
		if ctx.Err() != nil {
			out.Errors = append(out.Errors, ctx.Err().Error())
			break
		}
		if !p.Available() || !p.Supports(req) {
			continue
		}

		key := cacheKey(p.Name(), req)
		if r.cache != nil {
			if cached, ok := r.cache.Get(ctx, key); ok {
				out.Results = append(out.Results, cached)
				out.Cached++
				if cached.Success && cached.Confidence >= HighConfidence {
					break
				}
				continue
			}
		}

		result, err := p.Enrich(ctx, req)
		if err != nil {
			if apperrors.IsRateLimited(err) {
				out.Errors = append(out.Errors, fmt.Sprintf("%s: rate limited, skipped", p.Name()))
			} else {
				out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", p.Name(), err))
			}
			continue
		}

		out.Results = append(out.Results, result)
		if result.Success && r.cache != nil {
			r.cache.Set(ctx, key, result)
		}
		if result.Success && result.Confidence >= HighConfidence {
			break
		}
	}
	return out
}

// Merge builds one result by taking each field from the most confident
// successful result that has it. Sources lists every contributor.
func Merge(results []*Result) *Result {
	var ok []*Result
	for _, r := range results {
		if r != nil && r.Success {
			ok = append(ok, r)
		}
	}
	merged := &Result{FetchedAt: time.Now().UTC()}
	if len(ok) == 0 {
		return merged
	}
	sort.SliceStable(ok, func(i, j int) bool { return ok[i].Confidence > ok[j].Confidence })

	merged.Success = true
	merged.Confidence = ok[0].Confidence
	merged.Source = ok[0].Source

	contributed := make(map[string]bool)
	take := func(dst *string, src *Result, v string) {
		if *dst == "" && v != "" {
			*dst = v
			contributed[src.Source] = true
		}
	}

	for _, r := range ok {
		if merged.Email == "" && r.Email != "" {
			merged.Email = r.Email
			merged.EmailConfidence = r.EmailConfidence
			contributed[r.Source] = true
		}
		if merged.Phone == "" && merged.MobilePhone == "" && (r.Phone != "" || r.MobilePhone != "") {
			merged.PhoneConfidence = r.PhoneConfidence
		}
		take(&merged.Phone, r, r.Phone)
		take(&merged.MobilePhone, r, r.MobilePhone)
		take(&merged.JobTitle, r, r.JobTitle)
		take(&merged.Department, r, r.Department)
		take(&merged.Seniority, r, r.Seniority)
		take(&merged.LinkedinURL, r, r.LinkedinURL)
		take(&merged.City, r, r.City)
		take(&merged.State, r, r.State)
		take(&merged.Country, r, r.Country)
		take(&merged.CompanyName, r, r.CompanyName)
		take(&merged.Website, r, r.Website)
		take(&merged.Domain, r, r.Domain)
		take(&merged.Industry, r, r.Industry)
		take(&merged.Revenue, r, r.Revenue)
		take(&merged.Description, r, r.Description)
		if merged.EmployeeCount == 0 && r.EmployeeCount > 0 {
			merged.EmployeeCount = r.EmployeeCount
			contributed[r.Source] = true
		}
		if merged.Raw == nil && r.Source == SourceCoreSignal && len(r.Raw) > 0 {
			merged.Raw = r.Raw
		}
	}

	for _, r := range ok {
		if contributed[r.Source] {
			merged.Sources = append(merged.Sources, r.Source)
		}
	}
	return merged
}
