package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Report file names written by WriteMarkdownReports
const (
	QualityReportFile    = "data_quality_report.md"
	DedupeReportFile     = "deduplication_report.md"
	ValidationReportFile = "import_validation_report.md"
)

// ImportReport carries everything the markdown reports render.
type ImportReport struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Quality     map[string][]FieldQuality `json:"quality"`
	Dedupe      DedupeReport              `json:"dedupe"`
	Validation  ValidationReport          `json:"validation"`
	People      int                       `json:"people"`
	Companies   int                       `json:"companies"`
}

// WriteMarkdownReports writes the three import reports into dir and returns
// their paths.
func WriteMarkdownReports(dir string, rep ImportReport) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	if rep.GeneratedAt.IsZero() {
		rep.GeneratedAt = time.Now()
	}

	files := []struct {
		name   string
		render func(ImportReport) string
	}{
		{QualityReportFile, renderQuality},
		{DedupeReportFile, renderDedupe},
		{ValidationReportFile, renderValidation},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.render(rep)), 0o644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func header(b *strings.Builder, title string, at time.Time) {
	fmt.Fprintf(b, "# %s\n\n", title)
	fmt.Fprintf(b, "Generated: %s\n\n", at.Format("2006-01-02 15:04:05"))
}

func renderQuality(rep ImportReport) string {
	var b strings.Builder
	header(&b, "Data Quality Report", rep.GeneratedAt)

	datasets := make([]string, 0, len(rep.Quality))
	for name := range rep.Quality {
		datasets = append(datasets, name)
	}
	sort.Strings(datasets)

	for _, name := range datasets {
		fmt.Fprintf(&b, "## %s\n\n", strings.ToUpper(name))
		b.WriteString("| Field | Completeness | Non-Null | Total |\n")
		b.WriteString("|-------|-------------|----------|-------|\n")
		for _, q := range rep.Quality[name] {
			fmt.Fprintf(&b, "| %s | %.1f%% | %d | %d |\n", q.Field, q.Completeness, q.NonEmpty, q.Total)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderDedupe(rep ImportReport) string {
	var b strings.Builder
	header(&b, "Deduplication Report", rep.GeneratedAt)
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Total duplicates found: %d\n", rep.Dedupe.TotalDuplicates)
	fmt.Fprintf(&b, "- Duplicates by email: %d\n", rep.Dedupe.ByEmail)
	fmt.Fprintf(&b, "- Duplicates by name: %d\n", rep.Dedupe.ByName)
	fmt.Fprintf(&b, "- Final unique records: %d\n\n", rep.Dedupe.Unique)
	return b.String()
}

func renderValidation(rep ImportReport) string {
	var b strings.Builder
	v := rep.Validation
	header(&b, "Import Validation Report", rep.GeneratedAt)

	b.WriteString("## Validation Results\n\n")
	fmt.Fprintf(&b, "- Valid emails: %d\n", v.ValidEmails)
	fmt.Fprintf(&b, "- Invalid emails: %d\n", v.InvalidEmails)
	fmt.Fprintf(&b, "- Valid phones: %d\n", v.ValidPhones)
	fmt.Fprintf(&b, "- Invalid phones: %d\n\n", v.InvalidPhones)

	if len(v.Missing) > 0 {
		b.WriteString("## Missing Required Fields\n\n")
		for _, f := range RequiredPersonFields {
			fmt.Fprintf(&b, "- %s: %d\n", f, v.Missing[f])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Import Files\n\n")
	fmt.Fprintf(&b, "- People records: %d\n", rep.People)
	fmt.Fprintf(&b, "- Company records: %d\n\n", rep.Companies)
	return b.String()
}
