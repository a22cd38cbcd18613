package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// PeopleSheet is the sheet name of exported workbooks.
const PeopleSheet = "people"

var exportColumns = []struct {
	header string
	value  func(Row) string
}{
	{"firstName", func(r Row) string { return r.FirstName }},
	{"lastName", func(r Row) string { return r.LastName }},
	{"fullName", func(r Row) string { return r.FullName }},
	{"email", func(r Row) string { return r.Email }},
	{"workEmail", func(r Row) string { return r.WorkEmail }},
	{"personalEmail", func(r Row) string { return r.PersonalEmail }},
	{"phone", func(r Row) string { return r.Phone }},
	{"mobilePhone", func(r Row) string { return r.MobilePhone }},
	{"workPhone", func(r Row) string { return r.WorkPhone }},
	{"jobTitle", func(r Row) string { return r.JobTitle }},
	{"company", func(r Row) string { return r.CompanyName }},
	{"address", func(r Row) string { return r.Address }},
	{"city", func(r Row) string { return r.City }},
	{"state", func(r Row) string { return r.State }},
	{"country", func(r Row) string { return r.Country }},
	{"postalCode", func(r Row) string { return r.PostalCode }},
	{"linkedinUrl", func(r Row) string { return r.LinkedinURL }},
	{"notes", func(r Row) string { return r.Notes }},
	{"tags", func(r Row) string { return r.Tags }},
}

// ExportXLSX writes cleaned people rows to a workbook with a bold header.
func ExportXLSX(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PeopleSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	headers := make([]interface{}, len(exportColumns))
	for i, c := range exportColumns {
		headers[i] = c.header
	}
	if err := f.SetSheetRow(PeopleSheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(exportColumns))
	if err := f.SetCellStyle(PeopleSheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range rows {
		values := make([]interface{}, len(exportColumns))
		for j, c := range exportColumns {
			values[j] = c.value(r)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(PeopleSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(PeopleSheet, "A", last, 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
