package enrichment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/adrata/backend/pkg/errors"
)

func testOptions(url string) ClientOptions {
	return ClientOptions{APIKey: "test-key", BaseURL: url, RequestsPerMinute: 60000}
}

func TestCoreSignalProvider_PersonByLinkedin(t *testing.T) {
	var searchBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		switch r.URL.Path {
		case "/cdapi/v2/employee_multi_source/search/es_dsl":
			assert.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&searchBody))
			_, _ = w.Write([]byte(`[4242, 17]`))
		case "/cdapi/v2/employee_multi_source/collect/4242":
			_, _ = w.Write([]byte(`{
				"id": 4242,
				"full_name": "Ada Lovelace",
				"active_experience_title": "VP Engineering",
				"active_experience_department": "Engineering",
				"active_experience_management_level": "VP",
				"linkedin_url": "https://www.linkedin.com/in/ada",
				"location_country": "United Kingdom",
				"primary_professional_email": "Ada@Analytical.io",
				"active_experience_company_name": "Analytical Engines",
				"active_experience_company_website": "https://www.analytical.io"
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := NewCoreSignalProvider(testOptions(server.URL))
	req := Request{Kind: KindPerson, LinkedinURL: "https://www.linkedin.com/in/ada/"}
	require.True(t, p.Supports(req))

	result, err := p.Enrich(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	assert.Equal(t, "ada@analytical.io", result.Email)
	assert.Equal(t, "VP Engineering", result.JobTitle)
	assert.Equal(t, "analytical.io", result.Domain)
	assert.Contains(t, string(result.Raw), `"id": 4242`)

	encoded, _ := json.Marshal(searchBody)
	assert.Contains(t, string(encoded), `"linkedin_url":"https://www.linkedin.com/in/ada"`)
}

func TestCoreSignalProvider_NoHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	p := NewCoreSignalProvider(testOptions(server.URL))
	result, err := p.Enrich(context.Background(), Request{Kind: KindCompany, CompanyDomain: "nowhere.io"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestCoreSignalProvider_Supports(t *testing.T) {
	p := NewCoreSignalProvider(ClientOptions{})
	assert.False(t, p.Available())
	assert.True(t, p.Supports(Request{Kind: KindPerson, FullName: "Ada Lovelace", CompanyName: "Analytical"}))
	assert.False(t, p.Supports(Request{Kind: KindPerson, FullName: "Ada Lovelace"}))
	assert.True(t, p.Supports(Request{Kind: KindCompany, Website: "https://acme.com"}))
	assert.False(t, p.Supports(Request{Kind: "deal"}))
}

func TestLushaProvider_Person(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("api_key"))
		assert.Equal(t, "/v2/person", r.URL.Path)
		assert.Equal(t, "Grace", r.URL.Query().Get("firstName"))
		assert.Equal(t, "Hopper", r.URL.Query().Get("lastName"))
		assert.Equal(t, "navy.mil", r.URL.Query().Get("companyDomain"))
		_, _ = w.Write([]byte(`{"contact": {"error": null, "data": {
			"fullName": "Grace Hopper",
			"emailAddresses": [
				{"email": "grace@gmail.com", "emailType": "personal", "emailConfidence": "B"},
				{"email": "Grace@Navy.mil", "emailType": "work", "emailConfidence": "A+"}
			],
			"phoneNumbers": [
				{"number": "+1 202 555 0199", "phoneType": "direct"},
				{"number": "+1 202 555 0100", "phoneType": "mobile"}
			],
			"jobTitle": {"title": "Rear Admiral", "departments": ["Engineering"], "seniority": "Executive"},
			"location": {"city": "Arlington", "state": "Virginia", "country": "United States"},
			"company": {"name": "US Navy", "domain": "navy.mil"}
		}}}`))
	}))
	defer server.Close()

	p := NewLushaProvider(testOptions(server.URL))
	req := Request{Kind: KindPerson, FullName: "Grace Hopper", CompanyDomain: "navy.mil"}
	require.True(t, p.Supports(req))

	result, err := p.Enrich(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "grace@navy.mil", result.Email)
	assert.InDelta(t, 0.95, result.EmailConfidence, 1e-9)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	assert.Equal(t, "+1 202 555 0199", result.Phone)
	assert.Equal(t, "+1 202 555 0100", result.MobilePhone)
	assert.Equal(t, "Engineering", result.Department)
	assert.Equal(t, "Arlington", result.City)
}

func TestLushaProvider_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsProviderError(err))
				assert.Equal(t, http.StatusBadGateway, apperrors.GetHTTPStatus(err))
			},
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			header: "7",
			check: func(t *testing.T, err error) {
				require.True(t, apperrors.IsRateLimited(err))
				var rl *apperrors.RateLimitError
				require.ErrorAs(t, err, &rl)
				assert.Equal(t, 7*time.Second, rl.RetryAfter)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var pe *apperrors.ProviderError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, http.StatusInternalServerError, pe.StatusCode)
				assert.Equal(t, SourceLusha, pe.Provider)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			p := NewLushaProvider(testOptions(server.URL))
			_, err := p.Enrich(context.Background(), Request{Kind: KindCompany, CompanyDomain: "acme.com"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestEmailGradeConfidence(t *testing.T) {
	assert.InDelta(t, 0.95, EmailGradeConfidence("a+"), 1e-9)
	assert.InDelta(t, 0.9, EmailGradeConfidence("A"), 1e-9)
	assert.InDelta(t, 0.75, EmailGradeConfidence("B"), 1e-9)
	assert.InDelta(t, 0.5, EmailGradeConfidence("C"), 1e-9)
	assert.Zero(t, EmailGradeConfidence("Z"))
}

func TestProspeoProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-KEY"))
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/email-finder":
			assert.Contains(t, string(body), `"company":"analytical.io"`)
			_, _ = w.Write([]byte(`{"error": false, "response": {"email": "ada@analytical.io", "email_status": "VALID", "domain": "analytical.io"}}`))
		case "/mobile-finder":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": true, "message": "NO_MATCH"}`))
		}
	}))
	defer server.Close()

	p := NewProspeoProvider(testOptions(server.URL))
	req := Request{Kind: KindPerson, FirstName: "Ada", LastName: "Lovelace", CompanyDomain: "analytical.io", LinkedinURL: "https://linkedin.com/in/ada"}
	require.True(t, p.Supports(req))

	result, err := p.Enrich(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "ada@analytical.io", result.Email)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	assert.Empty(t, result.MobilePhone)
}

func TestProspeoProvider_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": true, "message": "NO_MATCH"}`))
	}))
	defer server.Close()

	p := NewProspeoProvider(testOptions(server.URL))
	result, err := p.Enrich(context.Background(), Request{Kind: KindPerson, FullName: "Nobody Known", CompanyName: "Ghost"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, p.Supports(Request{Kind: KindCompany, CompanyName: "Ghost"}))
}

func TestWebsiteProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head>
			<title>Mux | Video API for developers</title>
			<meta name="description" content="Video infrastructure for software teams.">
			</head><body>
			<a href="https://twitter.com/mux">Twitter</a>
			<a href="https://www.linkedin.com/company/muxinc/">LinkedIn</a>
			</body></html>`))
	}))
	defer server.Close()

	p := NewWebsiteProvider(ClientOptions{RequestsPerMinute: 60000})
	req := Request{Kind: KindCompany, Website: server.URL}
	require.True(t, p.Supports(req))
	assert.True(t, p.Available())

	result, err := p.Enrich(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Mux", result.CompanyName)
	assert.Equal(t, "Video infrastructure for software teams.", result.Description)
	assert.Equal(t, "https://www.linkedin.com/company/muxinc/", result.LinkedinURL)
	assert.InDelta(t, 0.4, result.Confidence, 1e-9)
}

func TestWebsiteProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewWebsiteProvider(ClientOptions{RequestsPerMinute: 60000})
	_, err := p.Enrich(context.Background(), Request{Kind: KindCompany, Website: server.URL})
	assert.True(t, apperrors.IsProviderError(err))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, parseRetryAfter("30"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("soon"))
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	assert.Greater(t, parseRetryAfter(future), 50*time.Minute)
}

func TestRequestCacheKey(t *testing.T) {
	a := Request{Kind: KindPerson, FirstName: "Ada", LastName: "Lovelace", Email: "ADA@x.io"}
	b := Request{Kind: KindPerson, FullName: "ada lovelace", Email: "ada@x.io "}
	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), Request{Kind: KindCompany, Email: "ada@x.io"}.CacheKey())
	assert.True(t, strings.HasPrefix(a.CacheKey(), KindPerson+"|"))
}
