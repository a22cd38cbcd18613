package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/backend/pkg/auth"
	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
)

func workspaceRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "slug"}).AddRow("ws-1", "Acme", "acme")
}

func newUserService(t *testing.T) (*UserService, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	svc := NewUserService(db, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

func TestUserService_CreateUser(t *testing.T) {
	svc, mock := newUserService(t)

	mock.ExpectQuery(q("FROM `workspaces`")).WithArgs("ws-1").WillReturnRows(workspaceRow())
	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM `users` WHERE `email` = ?)")).WithArgs("ops@acme.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO `users`")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO `workspace_users`")).
		WithArgs(fixedNow, sqlmock.AnyArg(), true, constants.RoleWorkspaceAdmin, sqlmock.AnyArg(), "ws-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Email: " Ops@Acme.com ", Name: "Olga Park", Password: "s3cret-pass", WorkspaceID: "ws-1", Role: "workspace_admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "ops@acme.com", user.Email)
	assert.Equal(t, "Olga", user.FirstName)
	assert.Equal(t, "Park", user.LastName)
	assert.Equal(t, "ws-1", user.ActiveWorkspaceID)
	assert.True(t, auth.VerifyPassword("s3cret-pass", user.Password))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_CreateUser_Rejects(t *testing.T) {
	tests := []struct {
		name string
		req  CreateUserRequest
		want string
	}{
		{"bad email", CreateUserRequest{Email: "nope", Password: "s3cret-pass", WorkspaceID: "ws-1"}, "email"},
		{"weak password", CreateUserRequest{Email: "a@acme.com", Password: "short", WorkspaceID: "ws-1"}, "password"},
		{"unknown role", CreateUserRequest{Email: "a@acme.com", Password: "s3cret-pass", WorkspaceID: "ws-1", Role: "king"}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newUserService(t)
			_, err := svc.CreateUser(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("duplicate email", func(t *testing.T) {
		svc, mock := newUserService(t)
		mock.ExpectQuery(q("FROM `workspaces`")).WillReturnRows(workspaceRow())
		mock.ExpectQuery(q("SELECT EXISTS")).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := svc.CreateUser(context.Background(), CreateUserRequest{Email: "a@acme.com", Password: "s3cret-pass", WorkspaceID: "ws-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})
}

func TestUserService_IssueToken(t *testing.T) {
	userRow := func(active bool) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "email", "activeWorkspaceId", "isActive"}).
			AddRow("u-1", "ops@acme.com", "ws-1", active)
	}

	t.Run("signs a token with the member role", func(t *testing.T) {
		svc, mock := newUserService(t)
		mock.ExpectQuery(q("FROM `users`")).WithArgs("u-1").WillReturnRows(userRow(true))
		mock.ExpectQuery(q("FROM `workspaces`")).WithArgs("ws-1").WillReturnRows(workspaceRow())
		mock.ExpectQuery(q("FROM `workspace_users`")).WithArgs("ws-1", "u-1", true).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(constants.RoleWorkspaceAdmin))

		issued, err := svc.IssueToken(context.Background(), TokenRequest{UserID: "u-1"})
		require.NoError(t, err)
		assert.Equal(t, fixedNow.Add(auth.TokenTTL), issued.ExpiresAt)

		claims, err := auth.ValidateToken(issued.Token)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.UserID)
		assert.Equal(t, "ws-1", claims.WorkspaceID)
		assert.Equal(t, constants.RoleWorkspaceAdmin, claims.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non member", func(t *testing.T) {
		svc, mock := newUserService(t)
		mock.ExpectQuery(q("FROM `users`")).WillReturnRows(userRow(true))
		mock.ExpectQuery(q("FROM `workspaces`")).WillReturnRows(workspaceRow())
		mock.ExpectQuery(q("FROM `workspace_users`")).WillReturnRows(sqlmock.NewRows([]string{"role"}))

		_, err := svc.IssueToken(context.Background(), TokenRequest{UserID: "u-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a member")
	})

	t.Run("deactivated user", func(t *testing.T) {
		svc, mock := newUserService(t)
		mock.ExpectQuery(q("FROM `users`")).WillReturnRows(userRow(false))

		_, err := svc.IssueToken(context.Background(), TokenRequest{UserID: "u-1"})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("needs a user", func(t *testing.T) {
		svc, _ := newUserService(t)
		_, err := svc.IssueToken(context.Background(), TokenRequest{})
		assert.True(t, apperrors.IsValidation(err))
	})
}
