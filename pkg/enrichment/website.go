package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/utils"
)

const maxPageBytes = 2 << 20

// WebsiteProvider reads the company's own homepage. It needs no API key and
// runs last.
type WebsiteProvider struct {
	http    *http.Client
	limiter *rate.Limiter
}

func NewWebsiteProvider(opts ClientOptions) *WebsiteProvider {
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WebsiteProvider{
		http:    client,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

func (p *WebsiteProvider) Name() string {
	return SourceWebsite
}

func (p *WebsiteProvider) Priority() int {
	return 9
}

func (p *WebsiteProvider) Available() bool {
	return true
}

func (p *WebsiteProvider) Supports(req Request) bool {
	return req.Kind == KindCompany && (req.Website != "" || req.CompanyDomain != "")
}

func siteURL(req Request) string {
	site := strings.TrimSpace(req.Website)
	if site == "" {
		site = req.CompanyDomain
	}
	if !strings.Contains(site, "://") {
		site = "https://" + site
	}
	return site
}

func (p *WebsiteProvider) Enrich(ctx context.Context, req Request) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	site := siteURL(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, site, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (compatible; AdrataBot/1.0)")
	httpReq.Header.Set("Accept", "text/html")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return noMatch(p.Name(), fmt.Sprintf("fetch failed: %v", err)), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewProviderError(p.Name(), resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", site, err)
	}
	return p.parse(doc, site, resp.Request.URL.String()), nil
}

// titleName keeps the part of a page title before the first separator:
// "Acme | Video APIs" becomes "Acme".
func titleName(title string) string {
	parts := strings.FieldsFunc(title, func(r rune) bool { return r == '|' || r == '–' || r == '·' })
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

func (p *WebsiteProvider) parse(doc *goquery.Document, site, finalURL string) *Result {
	meta := func(selector string) string {
		v, _ := doc.Find(selector).First().Attr("content")
		return strings.TrimSpace(v)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	name := meta(`meta[property="og:site_name"]`)
	if name == "" {
		name = titleName(title)
	}

	var linkedin string
	doc.Find(`a[href*="linkedin.com/company"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		linkedin, _ = s.Attr("href")
		return false
	})

	description := utils.FirstNonEmpty(meta(`meta[name="description"]`), meta(`meta[property="og:description"]`))
	result := &Result{
		Source:      p.Name(),
		CompanyName: name,
		Description: description,
		LinkedinURL: strings.TrimSpace(linkedin),
		Website:     utils.FirstNonEmpty(finalURL, site),
		Domain:      utils.DomainFromURL(utils.FirstNonEmpty(finalURL, site)),
		FetchedAt:   time.Now().UTC(),
	}
	if name != "" || description != "" || linkedin != "" {
		result.Success = true
		result.Confidence = 0.4
	} else {
		result.Error = "no company metadata on page"
	}
	return result
}
