package models

import (
	"time"

	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/query"
)

// User is a seller or admin; users are global and join workspaces through WorkspaceUser.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	FirstName         string    `json:"first_name,omitempty"`
	LastName          string    `json:"last_name,omitempty"`
	Password          string    `json:"-"`
	ActiveWorkspaceID string    `json:"active_workspace_id,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UserColumns omits the password hash; it is only read for login checks.
var UserColumns = []string{
	constants.FieldID, constants.FieldEmail, constants.FieldName, constants.FieldFirstName,
	constants.FieldLastName, constants.FieldActiveWorkspaceID, constants.FieldIsActive,
	constants.FieldCreatedAt, constants.FieldUpdatedAt,
}

func UserFromRecord(r query.Record) User {
	return User{
		ID:                r.String(constants.FieldID),
		Email:             r.String(constants.FieldEmail),
		Name:              r.String(constants.FieldName),
		FirstName:         r.String(constants.FieldFirstName),
		LastName:          r.String(constants.FieldLastName),
		Password:          r.String(constants.FieldPassword),
		ActiveWorkspaceID: r.String(constants.FieldActiveWorkspaceID),
		IsActive:          recordBool(r, constants.FieldIsActive),
		CreatedAt:         timeOrZero(recordTime(r, constants.FieldCreatedAt)),
		UpdatedAt:         timeOrZero(recordTime(r, constants.FieldUpdatedAt)),
	}
}

func (u User) Values() map[string]interface{} {
	return map[string]interface{}{
		constants.FieldID:                u.ID,
		constants.FieldEmail:             u.Email,
		constants.FieldName:              u.Name,
		constants.FieldFirstName:         nullable(u.FirstName),
		constants.FieldLastName:          nullable(u.LastName),
		constants.FieldPassword:          nullable(u.Password),
		constants.FieldActiveWorkspaceID: nullable(u.ActiveWorkspaceID),
		constants.FieldIsActive:          u.IsActive,
		constants.FieldCreatedAt:         u.CreatedAt,
		constants.FieldUpdatedAt:         u.UpdatedAt,
	}
}

// WorkspaceUser is a membership row carrying the user's role in that workspace.
type WorkspaceUser struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m WorkspaceUser) Values() map[string]interface{} {
	return map[string]interface{}{
		constants.FieldID:          m.ID,
		constants.FieldWorkspaceID: m.WorkspaceID,
		constants.FieldUserID:      m.UserID,
		constants.FieldRole:        m.Role,
		constants.FieldIsActive:    m.IsActive,
		constants.FieldCreatedAt:   m.CreatedAt,
	}
}
