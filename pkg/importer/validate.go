package importer

import (
	"sort"

	"github.com/adrata/backend/pkg/validation"
)

// RowError is one failed field of one row (1-based, header excluded).
type RowError struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

// ValidationReport summarizes contact data validity. Empty values are not
// counted as invalid; they show up in Missing instead.
type ValidationReport struct {
	Total         int            `json:"total"`
	ValidEmails   int            `json:"valid_emails"`
	InvalidEmails int            `json:"invalid_emails"`
	ValidPhones   int            `json:"valid_phones"`
	InvalidPhones int            `json:"invalid_phones"`
	Missing       map[string]int `json:"missing"`
	Errors        []RowError     `json:"errors,omitempty"`
}

// RequiredPersonFields must be present on every person row.
var RequiredPersonFields = []string{"first_name", "last_name", "email"}

func Validate(rows []Row) ValidationReport {
	rep := ValidationReport{Total: len(rows), Missing: make(map[string]int)}
	v := validation.Get()

	for i, r := range rows {
		fields := validation.FieldErrors(v.Struct(r))
		for field, tag := range fields {
			rep.Errors = append(rep.Errors, RowError{Row: i + 1, Field: field, Tag: tag})
		}

		if email := r.PrimaryEmail(); email != "" {
			if validation.IsEmail(email) {
				rep.ValidEmails++
			} else {
				rep.InvalidEmails++
			}
		}
		if phone := r.PrimaryPhone(); phone != "" {
			if validation.IsPhone(phone) {
				rep.ValidPhones++
			} else {
				rep.InvalidPhones++
			}
		}

		if r.Type != TypePerson {
			continue
		}
		present := map[string]string{"first_name": r.FirstName, "last_name": r.LastName, "email": r.PrimaryEmail()}
		for _, f := range RequiredPersonFields {
			if present[f] == "" {
				rep.Missing[f]++
			}
		}
	}
	sort.Slice(rep.Errors, func(i, j int) bool {
		a, b := rep.Errors[i], rep.Errors[j]
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Field < b.Field
	})
	return rep
}
