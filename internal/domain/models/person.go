package models

import (
	"time"

	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/query"
	"github.com/adrata/backend/pkg/utils"
)

// Person is a contact, optionally linked to a company in the same workspace.
type Person struct {
	ID                 string     `json:"id"`
	WorkspaceID        string     `json:"workspace_id"`
	CompanyID          string     `json:"company_id,omitempty"`
	FirstName          string     `json:"first_name,omitempty"`
	LastName           string     `json:"last_name,omitempty"`
	FullName           string     `json:"full_name"`
	JobTitle           string     `json:"job_title,omitempty"`
	Department         string     `json:"department,omitempty"`
	Seniority          string     `json:"seniority,omitempty"`
	Email              string     `json:"email,omitempty"`
	WorkEmail          string     `json:"work_email,omitempty"`
	PersonalEmail      string     `json:"personal_email,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	MobilePhone        string     `json:"mobile_phone,omitempty"`
	WorkPhone          string     `json:"work_phone,omitempty"`
	LinkedinURL        string     `json:"linkedin_url,omitempty"`
	City               string     `json:"city,omitempty"`
	State              string     `json:"state,omitempty"`
	Country            string     `json:"country,omitempty"`
	Status             string     `json:"status,omitempty"`
	Source             string     `json:"source,omitempty"`
	MainSellerID       string     `json:"main_seller_id,omitempty"`
	Tags               string     `json:"tags,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	BuyerGroupRole     string     `json:"buyer_group_role,omitempty"`
	IsBuyerGroupMember bool       `json:"is_buyer_group_member"`
	InfluenceScore     float64    `json:"influence_score,omitempty"`
	DecisionPower      int        `json:"decision_power,omitempty"`
	FlightRiskScore    float64    `json:"flight_risk_score,omitempty"`
	EnrichmentSources  string     `json:"enrichment_sources,omitempty"`
	EnrichmentScore    float64    `json:"enrichment_score,omitempty"`
	EmailConfidence    float64    `json:"email_confidence,omitempty"`
	PhoneConfidence    float64    `json:"phone_confidence,omitempty"`
	LastEnriched       *time.Time `json:"last_enriched,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
}

// PersonColumns skips coresignalData; the raw vendor payload is write-only here.
var PersonColumns = []string{
	constants.FieldID, constants.FieldWorkspaceID, constants.FieldCompanyID, constants.FieldFirstName,
	constants.FieldLastName, constants.FieldFullName, constants.FieldJobTitle, constants.FieldDepartment,
	constants.FieldSeniority, constants.FieldEmail, constants.FieldWorkEmail, constants.FieldPersonalEmail,
	constants.FieldPhone, constants.FieldMobilePhone, constants.FieldWorkPhone, constants.FieldLinkedinURL,
	constants.FieldCity, constants.FieldState, constants.FieldCountry, constants.FieldStatus,
	constants.FieldSource, constants.FieldMainSellerID, constants.FieldTags, constants.FieldNotes,
	constants.FieldBuyerGroupRole, constants.FieldIsBuyerGroupMember, constants.FieldInfluenceScore,
	constants.FieldDecisionPower, constants.FieldFlightRiskScore, constants.FieldEnrichmentSources,
	constants.FieldEnrichmentScore, constants.FieldEmailConfidence, constants.FieldPhoneConfidence,
	constants.FieldLastEnriched, constants.FieldCreatedAt, constants.FieldUpdatedAt, constants.FieldDeletedAt,
}

// PersonMergeColumns are filled from duplicates when the survivor lacks them.
var PersonMergeColumns = []string{
	constants.FieldCompanyID, constants.FieldFirstName, constants.FieldLastName, constants.FieldFullName,
	constants.FieldJobTitle, constants.FieldDepartment, constants.FieldSeniority, constants.FieldEmail,
	constants.FieldWorkEmail, constants.FieldPersonalEmail, constants.FieldPhone, constants.FieldMobilePhone,
	constants.FieldWorkPhone, constants.FieldLinkedinURL, constants.FieldCity, constants.FieldState,
	constants.FieldCountry, constants.FieldMainSellerID, constants.FieldTags, constants.FieldNotes,
}

func PersonFromRecord(r query.Record) Person {
	return Person{
		ID:                 r.String(constants.FieldID),
		WorkspaceID:        r.String(constants.FieldWorkspaceID),
		CompanyID:          r.String(constants.FieldCompanyID),
		FirstName:          r.String(constants.FieldFirstName),
		LastName:           r.String(constants.FieldLastName),
		FullName:           r.String(constants.FieldFullName),
		JobTitle:           r.String(constants.FieldJobTitle),
		Department:         r.String(constants.FieldDepartment),
		Seniority:          r.String(constants.FieldSeniority),
		Email:              r.String(constants.FieldEmail),
		WorkEmail:          r.String(constants.FieldWorkEmail),
		PersonalEmail:      r.String(constants.FieldPersonalEmail),
		Phone:              r.String(constants.FieldPhone),
		MobilePhone:        r.String(constants.FieldMobilePhone),
		WorkPhone:          r.String(constants.FieldWorkPhone),
		LinkedinURL:        r.String(constants.FieldLinkedinURL),
		City:               r.String(constants.FieldCity),
		State:              r.String(constants.FieldState),
		Country:            r.String(constants.FieldCountry),
		Status:             r.String(constants.FieldStatus),
		Source:             r.String(constants.FieldSource),
		MainSellerID:       r.String(constants.FieldMainSellerID),
		Tags:               r.String(constants.FieldTags),
		Notes:              r.String(constants.FieldNotes),
		BuyerGroupRole:     r.String(constants.FieldBuyerGroupRole),
		IsBuyerGroupMember: recordBool(r, constants.FieldIsBuyerGroupMember),
		InfluenceScore:     recordFloat(r, constants.FieldInfluenceScore),
		DecisionPower:      recordInt(r, constants.FieldDecisionPower),
		FlightRiskScore:    recordFloat(r, constants.FieldFlightRiskScore),
		EnrichmentSources:  r.String(constants.FieldEnrichmentSources),
		EnrichmentScore:    recordFloat(r, constants.FieldEnrichmentScore),
		EmailConfidence:    recordFloat(r, constants.FieldEmailConfidence),
		PhoneConfidence:    recordFloat(r, constants.FieldPhoneConfidence),
		LastEnriched:       recordTime(r, constants.FieldLastEnriched),
		CreatedAt:          timeOrZero(recordTime(r, constants.FieldCreatedAt)),
		UpdatedAt:          timeOrZero(recordTime(r, constants.FieldUpdatedAt)),
		DeletedAt:          recordTime(r, constants.FieldDeletedAt),
	}
}

// PrimaryEmail prefers the work address.
func (p Person) PrimaryEmail() string {
	return utils.FirstNonEmpty(p.WorkEmail, p.Email, p.PersonalEmail)
}

// PrimaryPhone prefers the mobile number.
func (p Person) PrimaryPhone() string {
	return utils.FirstNonEmpty(p.MobilePhone, p.Phone, p.WorkPhone)
}

// DisplayName is fullName, or first and last joined.
func (p Person) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return utils.JoinName(p.FirstName, p.LastName)
}

// Values returns the insertable columns.
func (p Person) Values() map[string]interface{} {
	return map[string]interface{}{
		constants.FieldID:            p.ID,
		constants.FieldWorkspaceID:   p.WorkspaceID,
		constants.FieldCompanyID:     nullable(p.CompanyID),
		constants.FieldFirstName:     nullable(p.FirstName),
		constants.FieldLastName:      nullable(p.LastName),
		constants.FieldFullName:      p.DisplayName(),
		constants.FieldJobTitle:      nullable(p.JobTitle),
		constants.FieldDepartment:    nullable(p.Department),
		constants.FieldSeniority:     nullable(p.Seniority),
		constants.FieldEmail:         nullable(p.Email),
		constants.FieldWorkEmail:     nullable(p.WorkEmail),
		constants.FieldPersonalEmail: nullable(p.PersonalEmail),
		constants.FieldPhone:         nullable(p.Phone),
		constants.FieldMobilePhone:   nullable(p.MobilePhone),
		constants.FieldWorkPhone:     nullable(p.WorkPhone),
		constants.FieldLinkedinURL:   nullable(p.LinkedinURL),
		constants.FieldCity:          nullable(p.City),
		constants.FieldState:         nullable(p.State),
		constants.FieldCountry:       nullable(p.Country),
		constants.FieldStatus:        nullable(p.Status),
		constants.FieldSource:        nullable(p.Source),
		constants.FieldMainSellerID:  nullable(p.MainSellerID),
		constants.FieldTags:          nullable(p.Tags),
		constants.FieldNotes:         nullable(p.Notes),
		constants.FieldCreatedAt:     p.CreatedAt,
		constants.FieldUpdatedAt:     p.UpdatedAt,
	}
}
