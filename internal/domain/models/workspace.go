package models

import (
	"time"

	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/query"
)

// Workspace is the tenant boundary; every CRM record belongs to exactly one.
type Workspace struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	Timezone  string     `json:"timezone"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

var WorkspaceColumns = []string{
	constants.FieldID, constants.FieldName, constants.FieldSlug, constants.FieldTimezone,
	constants.FieldIsActive, constants.FieldCreatedAt, constants.FieldUpdatedAt, constants.FieldDeletedAt,
}

func WorkspaceFromRecord(r query.Record) Workspace {
	return Workspace{
		ID:        r.String(constants.FieldID),
		Name:      r.String(constants.FieldName),
		Slug:      r.String(constants.FieldSlug),
		Timezone:  r.String(constants.FieldTimezone),
		IsActive:  recordBool(r, constants.FieldIsActive),
		CreatedAt: timeOrZero(recordTime(r, constants.FieldCreatedAt)),
		UpdatedAt: timeOrZero(recordTime(r, constants.FieldUpdatedAt)),
		DeletedAt: recordTime(r, constants.FieldDeletedAt),
	}
}

func (w Workspace) Values() map[string]interface{} {
	return map[string]interface{}{
		constants.FieldID:        w.ID,
		constants.FieldName:      w.Name,
		constants.FieldSlug:      w.Slug,
		constants.FieldTimezone:  nullable(w.Timezone),
		constants.FieldIsActive:  w.IsActive,
		constants.FieldCreatedAt: w.CreatedAt,
		constants.FieldUpdatedAt: w.UpdatedAt,
	}
}
