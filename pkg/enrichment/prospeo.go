package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/utils"
)

// ProspeoProvider finds work emails, and mobiles when a LinkedIn URL is known.
type ProspeoProvider struct {
	client *apiClient
}

func NewProspeoProvider(opts ClientOptions) *ProspeoProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.prospeo.io"
	}
	return &ProspeoProvider{client: newAPIClient(SourceProspeo, "X-KEY", opts)}
}

func (p *ProspeoProvider) Name() string {
	return SourceProspeo
}

func (p *ProspeoProvider) Priority() int {
	return 3
}

func (p *ProspeoProvider) Available() bool {
	return p.client.apiKey != ""
}

func (p *ProspeoProvider) Supports(req Request) bool {
	if req.Kind != KindPerson {
		return false
	}
	first, last := utils.SplitFullName(req.Name())
	return first != "" && last != "" && (req.CompanyDomain != "" || req.CompanyName != "")
}

type prospeoEnvelope struct {
	Error    bool            `json:"error"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}

type prospeoEmail struct {
	Email       string `json:"email"`
	EmailStatus string `json:"email_status"`
	Domain      string `json:"domain"`
}

type prospeoMobile struct {
	RawFormat           string `json:"raw_format"`
	InternationalFormat string `json:"international_format"`
}

// call posts to Prospeo. A NO_MATCH answer, whether sent with 200 or 400,
// comes back as ok=false without an error.
func (p *ProspeoProvider) call(ctx context.Context, path string, payload, out interface{}) (json.RawMessage, bool, error) {
	var env prospeoEnvelope
	raw, err := p.client.postJSON(ctx, path, payload, &env)
	if err != nil {
		var pe *apperrors.ProviderError
		if errors.As(err, &pe) && strings.Contains(pe.Message, "NO_MATCH") {
			return nil, false, nil
		}
		return nil, false, err
	}
	if env.Error {
		if strings.Contains(env.Message, "NO_MATCH") || env.Message == "" {
			return raw, false, nil
		}
		return nil, false, apperrors.NewProviderError(p.Name(), 200, env.Message)
	}
	if out != nil && len(env.Response) > 0 {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return nil, false, err
		}
	}
	return raw, true, nil
}

func (p *ProspeoProvider) Enrich(ctx context.Context, req Request) (*Result, error) {
	first, last := utils.SplitFullName(req.Name())
	if req.FirstName != "" && req.LastName != "" {
		first, last = req.FirstName, req.LastName
	}

	var email prospeoEmail
	raw, ok, err := p.call(ctx, "/email-finder", map[string]string{
		"first_name": first,
		"last_name":  last,
		"company":    utils.FirstNonEmpty(req.CompanyDomain, req.CompanyName),
	}, &email)
	if err != nil {
		return nil, err
	}

	result := &Result{Source: p.Name(), Raw: raw, FetchedAt: time.Now().UTC()}
	if ok && email.Email != "" {
		result.Success = true
		result.Email = utils.NormalizeEmail(email.Email)
		result.EmailConfidence = 0.6
		if strings.EqualFold(email.EmailStatus, "VALID") {
			result.EmailConfidence = 0.9
		}
		result.Confidence = result.EmailConfidence
		result.Domain = email.Domain
	}

	if req.LinkedinURL != "" {
		var mobile prospeoMobile
		_, found, err := p.call(ctx, "/mobile-finder", map[string]string{"url": req.LinkedinURL}, &mobile)
		if err != nil {
			return nil, err
		}
		if number := utils.FirstNonEmpty(mobile.InternationalFormat, mobile.RawFormat); found && number != "" {
			result.Success = true
			result.MobilePhone = number
			result.PhoneConfidence = 0.7
			if result.Confidence < 0.7 {
				result.Confidence = 0.7
			}
		}
	}

	if !result.Success {
		result.Error = "no match"
	}
	return result, nil
}
