package importer

// FieldQuality is the completeness of one column.
type FieldQuality struct {
	Field        string  `json:"field"`
	NonEmpty     int     `json:"non_empty"`
	Total        int     `json:"total"`
	Completeness float64 `json:"completeness"`
}

// Quality measures how many rows carry a value for each key field. All
// headers are measured when keyFields is empty. A field missing from the
// table reports zero completeness.
func Quality(t *Table, keyFields []string) []FieldQuality {
	if len(keyFields) == 0 {
		keyFields = t.Headers
	}
	out := make([]FieldQuality, 0, len(keyFields))
	for _, field := range keyFields {
		q := FieldQuality{Field: field, Total: t.Len()}
		if col := t.Column(field); col >= 0 {
			for _, row := range t.Rows {
				if CleanValue(t.Cell(row, col)) != "" {
					q.NonEmpty++
				}
			}
		}
		if q.Total > 0 {
			q.Completeness = float64(q.NonEmpty) / float64(q.Total) * 100
		}
		out = append(out, q)
	}
	return out
}

// DefaultKeyFields are the columns checked for Capsule-style exports.
var DefaultKeyFields = []string{"Name", "First Name", "Last Name", "Email", "Job Title", "Organization", "Phone Number"}

// ConferenceKeyFields are the columns checked for event attendee lists.
var ConferenceKeyFields = []string{"Company", "First Name", "Last Name", "Email", "Title", "Work Phone"}

// KeyFieldsFor picks the key field set that matches the table's headers.
func KeyFieldsFor(t *Table) []string {
	if t.Column("Organization") < 0 && t.Column("Company") >= 0 {
		return ConferenceKeyFields
	}
	return DefaultKeyFields
}
