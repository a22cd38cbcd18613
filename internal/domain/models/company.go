package models

import (
	"time"

	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/query"
	"github.com/adrata/backend/pkg/utils"
)

// Company is an account in a workspace.
type Company struct {
	ID            string     `json:"id"`
	WorkspaceID   string     `json:"workspace_id"`
	Name          string     `json:"name"`
	Website       string     `json:"website,omitempty"`
	Domain        string     `json:"domain,omitempty"`
	Industry      string     `json:"industry,omitempty"`
	Size          string     `json:"size,omitempty"`
	EmployeeCount int        `json:"employee_count,omitempty"`
	Revenue       float64    `json:"revenue,omitempty"`
	Description   string     `json:"description,omitempty"`
	LinkedinURL   string     `json:"linkedin_url,omitempty"`
	City          string     `json:"city,omitempty"`
	State         string     `json:"state,omitempty"`
	Country       string     `json:"country,omitempty"`
	Status        string     `json:"status,omitempty"`
	MainSellerID  string     `json:"main_seller_id,omitempty"`
	Tags          string     `json:"tags,omitempty"`
	DataSources   string     `json:"data_sources,omitempty"`
	LastVerified  *time.Time `json:"last_verified,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

var CompanyColumns = []string{
	constants.FieldID, constants.FieldWorkspaceID, constants.FieldName, constants.FieldWebsite,
	constants.FieldDomain, constants.FieldIndustry, constants.FieldSize, constants.FieldEmployeeCount,
	constants.FieldRevenue, constants.FieldDescription, constants.FieldLinkedinURL, constants.FieldCity,
	constants.FieldState, constants.FieldCountry, constants.FieldStatus, constants.FieldMainSellerID,
	constants.FieldTags, constants.FieldDataSources, constants.FieldLastVerified,
	constants.FieldCreatedAt, constants.FieldUpdatedAt, constants.FieldDeletedAt,
}

// CompanyMergeColumns are filled from duplicates when the survivor lacks them.
var CompanyMergeColumns = []string{
	constants.FieldWebsite, constants.FieldDomain, constants.FieldIndustry, constants.FieldSize,
	constants.FieldEmployeeCount, constants.FieldRevenue, constants.FieldDescription,
	constants.FieldLinkedinURL, constants.FieldCity, constants.FieldState, constants.FieldCountry,
	constants.FieldStatus, constants.FieldMainSellerID, constants.FieldTags,
}

func CompanyFromRecord(r query.Record) Company {
	return Company{
		ID:            r.String(constants.FieldID),
		WorkspaceID:   r.String(constants.FieldWorkspaceID),
		Name:          r.String(constants.FieldName),
		Website:       r.String(constants.FieldWebsite),
		Domain:        r.String(constants.FieldDomain),
		Industry:      r.String(constants.FieldIndustry),
		Size:          r.String(constants.FieldSize),
		EmployeeCount: recordInt(r, constants.FieldEmployeeCount),
		Revenue:       recordFloat(r, constants.FieldRevenue),
		Description:   r.String(constants.FieldDescription),
		LinkedinURL:   r.String(constants.FieldLinkedinURL),
		City:          r.String(constants.FieldCity),
		State:         r.String(constants.FieldState),
		Country:       r.String(constants.FieldCountry),
		Status:        r.String(constants.FieldStatus),
		MainSellerID:  r.String(constants.FieldMainSellerID),
		Tags:          r.String(constants.FieldTags),
		DataSources:   r.String(constants.FieldDataSources),
		LastVerified:  recordTime(r, constants.FieldLastVerified),
		CreatedAt:     timeOrZero(recordTime(r, constants.FieldCreatedAt)),
		UpdatedAt:     timeOrZero(recordTime(r, constants.FieldUpdatedAt)),
		DeletedAt:     recordTime(r, constants.FieldDeletedAt),
	}
}

// EffectiveDomain is the stored domain, or the host of the website.
func (c Company) EffectiveDomain() string {
	if c.Domain != "" {
		return utils.DomainFromURL(c.Domain)
	}
	return utils.DomainFromURL(c.Website)
}

// Values returns the insertable columns.
func (c Company) Values() map[string]interface{} {
	v := map[string]interface{}{
		constants.FieldID:           c.ID,
		constants.FieldWorkspaceID:  c.WorkspaceID,
		constants.FieldName:         c.Name,
		constants.FieldWebsite:      nullable(c.Website),
		constants.FieldDomain:       nullable(c.Domain),
		constants.FieldIndustry:     nullable(c.Industry),
		constants.FieldSize:         nullable(c.Size),
		constants.FieldDescription:  nullable(c.Description),
		constants.FieldLinkedinURL:  nullable(c.LinkedinURL),
		constants.FieldCity:         nullable(c.City),
		constants.FieldState:        nullable(c.State),
		constants.FieldCountry:      nullable(c.Country),
		constants.FieldStatus:       nullable(c.Status),
		constants.FieldMainSellerID: nullable(c.MainSellerID),
		constants.FieldTags:         nullable(c.Tags),
		constants.FieldDataSources:  nullable(c.DataSources),
		constants.FieldCreatedAt:    c.CreatedAt,
		constants.FieldUpdatedAt:    c.UpdatedAt,
	}
	if c.EmployeeCount > 0 {
		v[constants.FieldEmployeeCount] = c.EmployeeCount
	}
	if c.Revenue > 0 {
		v[constants.FieldRevenue] = c.Revenue
	}
	return v
}

// SizeBucket maps an employee count onto the L1..S3 tiers used in list building.
func SizeBucket(employees int) string {
	switch {
	case employees <= 0:
		return ""
	case employees < 50:
		return "S3"
	case employees < 100:
		return "S2"
	case employees < 250:
		return "S1"
	case employees < 500:
		return "M3"
	case employees < 1000:
		return "M2"
	case employees < 5000:
		return "M1"
	case employees < 10000:
		return "L3"
	case employees < 50000:
		return "L2"
	default:
		return "L1"
	}
}
