package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/adrata/backend/internal/application/services"
	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/pkg/query"
)

// OutputFormat selects how command results are printed
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

func outputFormat() OutputFormat {
	f, err := parseFormat(formatFlag)
	if err != nil {
		return FormatText
	}
	return f
}

// CSVCount is the result of `csv count`
type CSVCount struct {
	File string `json:"file"`
	Rows int    `json:"rows"`
}

// render writes v in the requested format. Types without a text layout fall back to JSON.
func render(w io.Writer, v interface{}, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, v)
	}
	switch r := v.(type) {
	case []persistence.TableCount:
		renderCounts(w, r)
	case *services.ConsistencyReport:
		renderConsistency(w, r)
	case []query.Record:
		renderRecords(w, r)
	case *services.MergeReport:
		renderMerge(w, r)
	case *services.FakeReport:
		renderFake(w, r)
	case *services.MigrationReport:
		renderMigration(w, r)
	case *services.EnrichSummary:
		renderEnrich(w, r)
	case *services.QueueSummary:
		fmt.Fprintf(w, "Queue: pending %d, processed %d, retried %d, failed %d, skipped %d\n",
			r.Pending, r.Processed, r.Retried, r.Failed, r.Skipped)
	case *services.DiscoverResult:
		renderDiscover(w, r)
	case *services.ImportResult:
		renderImport(w, r)
	case *services.SeedResult:
		renderSeed(w, r)
	case *services.IssuedToken:
		fmt.Fprintf(w, "Token for %s (%s in %s), expires %s\n\n%s\n",
			r.Session.Email, r.Session.Role, r.Session.WorkspaceID, r.ExpiresAt.Format("2006-01-02 15:04 MST"), r.Token)
	case *models.User:
		fmt.Fprintf(w, "✅ Created user %s <%s> (%s)\n", r.ID, r.Email, r.Name)
	case CSVCount:
		fmt.Fprintf(w, "%s: %d rows\n", r.File, r.Rows)
	default:
		return writeJSON(w, v)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func renderCounts(w io.Writer, counts []persistence.TableCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tTOTAL\tACTIVE\tDELETED")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", c.Table, c.Total, c.Active, c.Deleted)
	}
	_ = tw.Flush()
}

func renderConsistency(w io.Writer, r *services.ConsistencyReport) {
	if r.Healthy() {
		fmt.Fprintln(w, "✅ No consistency problems found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tTABLE\tCOUNT\tSAMPLES")
	for _, f := range r.Findings {
		if f.Count == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", f.Check, f.Table, f.Count, strings.Join(f.Samples, ", "))
	}
	_ = tw.Flush()
	for _, d := range r.DuplicateEmails {
		fmt.Fprintf(w, "  %s x%d\n", d.Email, d.Count)
	}
}

func renderRecords(w io.Writer, rows []query.Record) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if v := row[c]; v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d rows\n", len(rows))
}

func renderMerge(w io.Writer, r *services.MergeReport) {
	fmt.Fprintf(w, "Duplicates in %s: %d groups, %d duplicates, %d fields filled\n", r.Table, r.Groups, r.Duplicates, r.Filled)
	for _, p := range r.Plans {
		fmt.Fprintf(w, "  %s: keep %s, merge %s\n", p.Key, p.SurvivorID, strings.Join(p.DuplicateIDs, ", "))
	}
	if r.Applied {
		fmt.Fprintf(w, "✅ Removed %d records\n", r.Removed)
		for _, table := range sortedKeys(r.Repointed) {
			fmt.Fprintf(w, "  repointed %d rows in %s\n", r.Repointed[table], table)
		}
	}
}

func renderFake(w io.Writer, r *services.FakeReport) {
	fmt.Fprintf(w, "Fake records in %s: %d of %d scanned\n", r.Table, r.Detected, r.Scanned)
	rules := make([]string, 0, len(r.ByRule))
	for rule := range r.ByRule {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	for _, rule := range rules {
		fmt.Fprintf(w, "  %-24s %d\n", rule, r.ByRule[rule])
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rec := range r.Records {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", rec.ID, rec.Name, rec.Email, strings.Join(rec.Rules, ","))
	}
	_ = tw.Flush()
	if r.Applied {
		mode := "soft-deleted"
		if r.Hard {
			mode = "hard-deleted"
		}
		fmt.Fprintf(w, "✅ %d records %s\n", r.Removed, mode)
	}
}

func renderMigration(w io.Writer, r *services.MigrationReport) {
	fmt.Fprintf(w, "%s: %d scanned, %d to change\n", r.Name, r.Scanned, r.Changed)
	for _, s := range r.Samples {
		fmt.Fprintf(w, "  %s: %v -> %v\n", s.ID, s.Before, s.After)
	}
	if r.Applied {
		for _, table := range sortedKeys(r.PerTable) {
			fmt.Fprintf(w, "✅ %s: %d rows updated\n", table, r.PerTable[table])
		}
	}
}

func renderEnrich(w io.Writer, r *services.EnrichSummary) {
	fmt.Fprintf(w, "Enriched %s: %d scanned, %d enriched, %d updated, %d failed\n",
		r.Kind, r.Scanned, r.Enriched, r.Updated, r.Failed)
	for _, source := range sortedKeys(r.BySource) {
		fmt.Fprintf(w, "  %-12s %d\n", source, r.BySource[source])
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  ⚠️ %s\n", e)
	}
}

func renderDiscover(w io.Writer, r *services.DiscoverResult) {
	rep := r.Report
	fmt.Fprintf(w, "Buyer groups for %s (%s): %d employees loaded, %d skipped\n",
		rep.Company.Name, r.Source, r.Loaded, r.Skipped)
	fmt.Fprintf(w, "  %d groups, %d high priority, coverage %.2f\n",
		rep.Summary.TotalGroups, rep.Summary.HighPriorityGroups, rep.Summary.CoverageScore)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nOPTIMAL GROUP\tTITLE\tROLE\tINFLUENCE")
	for _, m := range rep.Optimal {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", m.Name, m.Title, m.Role, m.Influence)
	}
	_ = tw.Flush()
	for _, rec := range rep.Recommendations {
		fmt.Fprintf(w, "  → %s\n", rec.Action)
	}
	if r.Applied {
		fmt.Fprintf(w, "✅ Updated %d people\n", r.Updated)
	}
}

func renderImport(w io.Writer, r *services.ImportResult) {
	rep := r.Report
	fmt.Fprintf(w, "Import: %d people, %d companies after dedupe (%d duplicates removed)\n",
		rep.People, rep.Companies, rep.Dedupe.Input-rep.Dedupe.Unique)
	fmt.Fprintf(w, "  emails: %d valid, %d invalid. phones: %d valid, %d invalid\n",
		rep.Validation.ValidEmails, rep.Validation.InvalidEmails, rep.Validation.ValidPhones, rep.Validation.InvalidPhones)
	for _, f := range r.ReportFiles {
		fmt.Fprintf(w, "  report: %s\n", f)
	}
	if r.ExportPath != "" {
		fmt.Fprintf(w, "  export: %s\n", r.ExportPath)
	}
	if r.Applied {
		fmt.Fprintf(w, "✅ Companies: %d created, %d matched. People: %d created, %d skipped\n",
			r.CompaniesCreated, r.CompaniesMatched, r.PeopleCreated, r.PeopleSkipped)
	}
}

func renderSeed(w io.Writer, r *services.SeedResult) {
	fmt.Fprintf(w, "✅ Seeded workspace %s (%s)\n", r.Slug, r.WorkspaceID)
	fmt.Fprintf(w, "  %d companies, %d people, %d leads, %d prospects, %d opportunities\n",
		r.Companies, r.People, r.Leads, r.Prospects, r.Opportunities)
	fmt.Fprintf(w, "  planted %d duplicates and %d fake records\n", r.PlantedDuplicates, r.PlantedFakes)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, u := range r.Users {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", u.Email, u.Role, u.ID)
	}
	_ = tw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
