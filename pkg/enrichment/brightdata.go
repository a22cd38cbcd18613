package enrichment

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adrata/backend/pkg/buyergroup"
	apperrors "github.com/adrata/backend/pkg/errors"
)

const SourceBrightData = "brightdata"

// DefaultPeopleDataset is Bright Data's LinkedIn people dataset.
const DefaultPeopleDataset = "gd_l1viktl72bvl7bjuj0"

// Filter is one Bright Data dataset filter clause
type Filter struct {
	Name     string `json:"name"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// CompanyFilter selects the current employees of a LinkedIn company slug.
func CompanyFilter(linkedinSlug string) Filter {
	return Filter{Name: "current_company_company_id", Operator: "=", Value: linkedinSlug}
}

// LinkedinCompanySlug extracts "acme-inc" from https://www.linkedin.com/company/acme-inc/.
func LinkedinCompanySlug(linkedinURL string) string {
	u := strings.TrimSpace(linkedinURL)
	idx := strings.Index(u, "/company/")
	if idx < 0 {
		return ""
	}
	rest := u[idx+len("/company/"):]
	if cut := strings.IndexAny(rest, "/?#"); cut >= 0 {
		rest = rest[:cut]
	}
	return rest
}

// BrightDataClient pulls employee snapshots used for buyer group discovery.
type BrightDataClient struct {
	client       *apiClient
	RecordsLimit int
}

func NewBrightDataClient(opts ClientOptions) *BrightDataClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.brightdata.com"
	}
	return &BrightDataClient{client: newAPIClient(SourceBrightData, "Authorization", opts), RecordsLimit: 1000}
}

func (c *BrightDataClient) Available() bool {
	return c.client.apiKey != ""
}

// CreateSnapshot starts a filtered snapshot and returns its id.
func (c *BrightDataClient) CreateSnapshot(ctx context.Context, datasetID string, filter Filter) (string, error) {
	if datasetID == "" {
		datasetID = DefaultPeopleDataset
	}
	encoded, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("failed to marshal filter: %w", err)
	}

	params := url.Values{"dataset_id": {datasetID}, "records_limit": {fmt.Sprint(c.RecordsLimit)}}
	form := url.Values{"filter": {string(encoded)}}
	data, err := c.client.do(ctx, http.MethodPost, "/datasets/filter?"+params.Encode(),
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return "", err
	}

	var resp struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to decode snapshot response: %w", err)
	}
	if resp.SnapshotID == "" {
		return "", apperrors.NewProviderError(SourceBrightData, http.StatusOK, "no snapshot id in response")
	}
	return resp.SnapshotID, nil
}

// SnapshotStatus returns the raw status string of a snapshot.
func (c *BrightDataClient) SnapshotStatus(ctx context.Context, snapshotID string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if _, err := c.client.getJSON(ctx, "/datasets/snapshots/"+url.PathEscape(snapshotID), &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// WaitForSnapshot polls until the snapshot is ready. It fails when the
// snapshot fails or maxAttempts polls pass without completion.
func (c *BrightDataClient) WaitForSnapshot(ctx context.Context, snapshotID string, interval time.Duration, maxAttempts int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := c.SnapshotStatus(ctx, snapshotID)
		if err != nil {
			return err
		}
		switch status {
		case "ready", "completed":
			return nil
		case "failed":
			return apperrors.NewProviderError(SourceBrightData, http.StatusOK, fmt.Sprintf("snapshot %s failed", snapshotID))
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return fmt.Errorf("snapshot %s not ready after %d attempts", snapshotID, maxAttempts)
}

type brightDataProfile struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Position        string          `json:"position"`
	About           string          `json:"about"`
	City            string          `json:"city"`
	URL             string          `json:"url"`
	Connections     json.Number     `json:"connections"`
	Followers       json.Number     `json:"followers"`
	Recommendations json.Number     `json:"recommendations_count"`
	Activity        json.RawMessage `json:"activity"`
	Experience      json.RawMessage `json:"experience"`
	CurrentCompany  *struct {
		Title string `json:"title"`
	} `json:"current_company"`
}

func number(n json.Number) int {
	if v, err := n.Int64(); err == nil {
		return int(v)
	}
	if f, err := n.Float64(); err == nil {
		return int(f)
	}
	return 0
}

// nonEmptyJSON reports whether a raw value carries data: not null, "" or [].
func nonEmptyJSON(raw json.RawMessage) bool {
	s := string(bytes.TrimSpace(raw))
	return s != "" && s != "null" && s != "[]" && s != `""` && s != "{}"
}

func (p brightDataProfile) employee() buyergroup.Employee {
	title := p.Position
	if title == "" && p.CurrentCompany != nil {
		title = p.CurrentCompany.Title
	}
	return buyergroup.Employee{
		ID:              p.ID,
		Name:            p.Name,
		Title:           title,
		About:           p.About,
		Location:        p.City,
		LinkedinURL:     p.URL,
		Connections:     number(p.Connections),
		Followers:       number(p.Followers),
		Recommendations: number(p.Recommendations),
		HasActivity:     nonEmptyJSON(p.Activity),
		ActivityUnknown: len(p.Activity) == 0,
		HasExperience:   nonEmptyJSON(p.Experience),
	}
}

// DownloadEmployees fetches a ready snapshot.
func (c *BrightDataClient) DownloadEmployees(ctx context.Context, snapshotID string) ([]buyergroup.Employee, int, error) {
	data, err := c.client.do(ctx, http.MethodGet, "/datasets/snapshots/"+url.PathEscape(snapshotID)+"/content?format=jsonl", nil, "")
	if err != nil {
		return nil, 0, err
	}
	return ParseEmployees(bytes.NewReader(data))
}

// ParseEmployees reads Bright Data profiles as JSON Lines or as a single JSON
// array. Malformed lines are skipped and counted.
func ParseEmployees(r io.Reader) ([]buyergroup.Employee, int, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.Peek(1)
		if err != nil {
			if err == io.EOF {
				return nil, 0, nil
			}
			return nil, 0, err
		}
		if b[0] == ' ' || b[0] == '\n' || b[0] == '\r' || b[0] == '\t' {
			_, _ = br.ReadByte()
			continue
		}
		if b[0] == '[' {
			var profiles []brightDataProfile
			dec := json.NewDecoder(br)
			dec.UseNumber()
			if err := dec.Decode(&profiles); err != nil {
				return nil, 0, fmt.Errorf("failed to decode employee array: %w", err)
			}
			employees := make([]buyergroup.Employee, 0, len(profiles))
			for _, p := range profiles {
				employees = append(employees, p.employee())
			}
			return employees, 0, nil
		}
		break
	}

	var employees []buyergroup.Employee
	skipped := 0
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var p brightDataProfile
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&p); err != nil {
			skipped++
			continue
		}
		employees = append(employees, p.employee())
	}
	if err := scanner.Err(); err != nil {
		return employees, skipped, fmt.Errorf("failed to read employees: %w", err)
	}
	return employees, skipped, nil
}
