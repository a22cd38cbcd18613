package models

import (
	"time"

	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/query"
)

// PipelineRecord is a row of leads or prospects. Both tables share one shape.
type PipelineRecord struct {
	ID             string     `json:"id"`
	WorkspaceID    string     `json:"workspace_id"`
	PersonID       string     `json:"person_id,omitempty"`
	CompanyID      string     `json:"company_id,omitempty"`
	FullName       string     `json:"full_name"`
	Email          string     `json:"email,omitempty"`
	Company        string     `json:"company,omitempty"`
	JobTitle       string     `json:"job_title,omitempty"`
	Status         string     `json:"status,omitempty"`
	Source         string     `json:"source,omitempty"`
	AssignedUserID string     `json:"assigned_user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

func PipelineRecordFromRecord(r query.Record) PipelineRecord {
	return PipelineRecord{
		ID:             r.String(constants.FieldID),
		WorkspaceID:    r.String(constants.FieldWorkspaceID),
		PersonID:       r.String(constants.FieldPersonID),
		CompanyID:      r.String(constants.FieldCompanyID),
		FullName:       r.String(constants.FieldFullName),
		Email:          r.String(constants.FieldEmail),
		Company:        r.String(constants.FieldCompany),
		JobTitle:       r.String(constants.FieldJobTitle),
		Status:         r.String(constants.FieldStatus),
		Source:         r.String(constants.FieldSource),
		AssignedUserID: r.String(constants.FieldAssignedUserID),
		CreatedAt:      timeOrZero(recordTime(r, constants.FieldCreatedAt)),
		UpdatedAt:      timeOrZero(recordTime(r, constants.FieldUpdatedAt)),
		DeletedAt:      recordTime(r, constants.FieldDeletedAt),
	}
}

func (l PipelineRecord) Values() map[string]interface{} {
	return map[string]interface{}{
		constants.FieldID:             l.ID,
		constants.FieldWorkspaceID:    l.WorkspaceID,
		constants.FieldPersonID:       nullable(l.PersonID),
		constants.FieldCompanyID:      nullable(l.CompanyID),
		constants.FieldFullName:       l.FullName,
		constants.FieldEmail:          nullable(l.Email),
		constants.FieldCompany:        nullable(l.Company),
		constants.FieldJobTitle:       nullable(l.JobTitle),
		constants.FieldStatus:         nullable(l.Status),
		constants.FieldSource:         nullable(l.Source),
		constants.FieldAssignedUserID: nullable(l.AssignedUserID),
		constants.FieldCreatedAt:      l.CreatedAt,
		constants.FieldUpdatedAt:      l.UpdatedAt,
	}
}

// Opportunity is a deal against a company, optionally with a primary contact.
type Opportunity struct {
	ID                string     `json:"id"`
	WorkspaceID       string     `json:"workspace_id"`
	CompanyID         string     `json:"company_id,omitempty"`
	PersonID          string     `json:"person_id,omitempty"`
	Name              string     `json:"name"`
	Amount            float64    `json:"amount"`
	Stage             string     `json:"stage"`
	Probability       int        `json:"probability"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	AssignedUserID    string     `json:"assigned_user_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

func OpportunityFromRecord(r query.Record) Opportunity {
	return Opportunity{
		ID:                r.String(constants.FieldID),
		WorkspaceID:       r.String(constants.FieldWorkspaceID),
		CompanyID:         r.String(constants.FieldCompanyID),
		PersonID:          r.String(constants.FieldPersonID),
		Name:              r.String(constants.FieldName),
		Amount:            recordFloat(r, constants.FieldAmount),
		Stage:             r.String(constants.FieldStage),
		Probability:       recordInt(r, constants.FieldProbability),
		ExpectedCloseDate: recordTime(r, constants.FieldExpectedCloseDate),
		AssignedUserID:    r.String(constants.FieldAssignedUserID),
		CreatedAt:         timeOrZero(recordTime(r, constants.FieldCreatedAt)),
		UpdatedAt:         timeOrZero(recordTime(r, constants.FieldUpdatedAt)),
		DeletedAt:         recordTime(r, constants.FieldDeletedAt),
	}
}

func (o Opportunity) Values() map[string]interface{} {
	v := map[string]interface{}{
		constants.FieldID:             o.ID,
		constants.FieldWorkspaceID:    o.WorkspaceID,
		constants.FieldCompanyID:      nullable(o.CompanyID),
		constants.FieldPersonID:       nullable(o.PersonID),
		constants.FieldName:           o.Name,
		constants.FieldAmount:         o.Amount,
		constants.FieldStage:          o.Stage,
		constants.FieldProbability:    o.Probability,
		constants.FieldAssignedUserID: nullable(o.AssignedUserID),
		constants.FieldCreatedAt:      o.CreatedAt,
		constants.FieldUpdatedAt:      o.UpdatedAt,
	}
	if o.ExpectedCloseDate != nil {
		v[constants.FieldExpectedCloseDate] = *o.ExpectedCloseDate
	}
	return v
}

// EnrichmentJob is a queued request to enrich one person or company.
type EnrichmentJob struct {
	ID           string     `json:"id"`
	WorkspaceID  string     `json:"workspace_id"`
	RecordType   string     `json:"record_type"`
	RecordID     string     `json:"record_id"`
	Status       string     `json:"status"`
	RetryCount   int        `json:"retry_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

func EnrichmentJobFromRecord(r query.Record) EnrichmentJob {
	return EnrichmentJob{
		ID:           r.String(constants.FieldID),
		WorkspaceID:  r.String(constants.FieldWorkspaceID),
		RecordType:   r.String(constants.FieldRecordType),
		RecordID:     r.String(constants.FieldRecordID),
		Status:       r.String(constants.FieldStatus),
		RetryCount:   recordInt(r, constants.FieldRetryCount),
		ErrorMessage: r.String(constants.FieldErrorMessage),
		CreatedAt:    timeOrZero(recordTime(r, constants.FieldCreatedAt)),
		ProcessedAt:  recordTime(r, constants.FieldProcessedAt),
	}
}
