package importer

import (
	"strings"

	"github.com/adrata/backend/pkg/utils"
)

// Record types in the standardized rows
const (
	TypePerson       = "Person"
	TypeOrganization = "Organization"
)

// Row is one standardized contact or organization.
type Row struct {
	Source        string `json:"source"`
	SourceID      string `json:"source_id"`
	Type          string `json:"type" validate:"oneof=Person Organization"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	FullName      string `json:"full_name"`
	Email         string `json:"email" validate:"omitempty,crmemail"`
	WorkEmail     string `json:"work_email" validate:"omitempty,crmemail"`
	PersonalEmail string `json:"personal_email" validate:"omitempty,crmemail"`
	Phone         string `json:"phone" validate:"omitempty,phone"`
	WorkPhone     string `json:"work_phone" validate:"omitempty,phone"`
	MobilePhone   string `json:"mobile_phone" validate:"omitempty,phone"`
	JobTitle      string `json:"job_title"`
	CompanyName   string `json:"company_name"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	LinkedinURL   string `json:"linkedin_url"`
	Tags          string `json:"tags"`
	Notes         string `json:"notes"`
}

// PrimaryEmail is the first address the row carries.
func (r Row) PrimaryEmail() string {
	return utils.FirstNonEmpty(r.Email, r.WorkEmail, r.PersonalEmail)
}

// PrimaryPhone is the first number the row carries.
func (r Row) PrimaryPhone() string {
	return utils.FirstNonEmpty(r.Phone, r.WorkPhone, r.MobilePhone)
}

type fieldSetter func(r *Row, v string)

// headerAliases lists, per standardized field, the export headers that feed
// it in preference order. Capsule, UTC conference lists and generic CRM
// exports are covered.
var headerAliases = []struct {
	aliases []string
	set     fieldSetter
}{
	{[]string{"id", "source id", "record id", "unnamed: 0"}, func(r *Row, v string) { r.SourceID = v }},
	{[]string{"type", "record type"}, func(r *Row, v string) { r.Type = v }},
	{[]string{"first name", "firstname", "given name"}, func(r *Row, v string) { r.FirstName = v }},
	{[]string{"last name", "lastname", "surname", "family name"}, func(r *Row, v string) { r.LastName = v }},
	{[]string{"name", "full name", "fullname", "contact name"}, func(r *Row, v string) { r.FullName = v }},
	{[]string{"email", "email address", "e-mail"}, func(r *Row, v string) { r.Email = v }},
	{[]string{"work email", "workemail", "business email"}, func(r *Row, v string) { r.WorkEmail = v }},
	{[]string{"home email", "personal email", "personalemail"}, func(r *Row, v string) { r.PersonalEmail = v }},
	{[]string{"phone number", "phone", "telephone"}, func(r *Row, v string) { r.Phone = v }},
	{[]string{"work phone", "workphone", "office phone", "business phone"}, func(r *Row, v string) { r.WorkPhone = v }},
	{[]string{"mobile phone", "mobilephone", "mobile", "cell phone"}, func(r *Row, v string) { r.MobilePhone = v }},
	{[]string{"job title", "jobtitle", "title", "position"}, func(r *Row, v string) { r.JobTitle = v }},
	{[]string{"organization", "organisation", "company", "company name", "account name"}, func(r *Row, v string) { r.CompanyName = v }},
	{[]string{"address street", "address", "street"}, func(r *Row, v string) { r.Address = v }},
	{[]string{"city", "town"}, func(r *Row, v string) { r.City = v }},
	{[]string{"state", "province"}, func(r *Row, v string) { r.State = v }},
	{[]string{"postcode", "zip code", "zip", "postal code", "postalcode"}, func(r *Row, v string) { r.PostalCode = v }},
	{[]string{"country"}, func(r *Row, v string) { r.Country = v }},
	{[]string{"linkedin", "linkedin url", "linkedinurl", "linkedin profile"}, func(r *Row, v string) { r.LinkedinURL = v }},
	{[]string{"tags"}, func(r *Row, v string) { r.Tags = v }},
	{[]string{"notes"}, func(r *Row, v string) { r.Notes = v }},
}

var emptyMarkers = map[string]bool{"nan": true, "none": true, "null": true, "-": true, "nat": true}

// CleanValue trims a cell and blanks out spreadsheet placeholders.
func CleanValue(v string) string {
	v = strings.TrimSpace(v)
	if emptyMarkers[strings.ToLower(v)] {
		return ""
	}
	return v
}

func normalizeType(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "organization", "organisation", "company", "account":
		return TypeOrganization
	default:
		return TypePerson
	}
}

// Standardize maps a raw export onto Rows. The first header matching an
// alias wins for each field; unknown columns are ignored.
func Standardize(t *Table, source string) []Row {
	type binding struct {
		col int
		set fieldSetter
	}
	var bindings []binding
	for _, f := range headerAliases {
		for _, alias := range f.aliases {
			if col := t.Column(alias); col >= 0 {
				bindings = append(bindings, binding{col: col, set: f.set})
				break
			}
		}
	}

	rows := make([]Row, 0, t.Len())
	for _, raw := range t.Rows {
		r := Row{Source: source}
		for _, b := range bindings {
			b.set(&r, CleanValue(t.Cell(raw, b.col)))
		}

		r.Type = normalizeType(r.Type)
		r.Email = utils.NormalizeEmail(r.Email)
		r.WorkEmail = utils.NormalizeEmail(r.WorkEmail)
		r.PersonalEmail = utils.NormalizeEmail(r.PersonalEmail)
		if r.FullName == "" {
			r.FullName = utils.JoinName(r.FirstName, r.LastName)
		}
		if r.Type == TypePerson && r.FullName != "" && r.FirstName == "" && r.LastName == "" {
			r.FirstName, r.LastName = utils.SplitFullName(r.FullName)
		}
		rows = append(rows, r)
	}
	return rows
}
