package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/query"
)

// WorkspaceRepository reads and creates workspaces
type WorkspaceRepository struct {
	baseRepository
}

func NewWorkspaceRepository(db *sql.DB) *WorkspaceRepository {
	return &WorkspaceRepository{baseRepository{db: db}}
}

func (r *WorkspaceRepository) findOne(ctx context.Context, column, value string) (*models.Workspace, error) {
	q := query.From(constants.TableWorkspace).
		Select(models.WorkspaceColumns...).
		WhereEq(column, value).
		ExcludeDeleted().
		Limit(1).
		Build()
	records, err := r.fetch(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFoundError("workspace", value)
	}
	ws := models.WorkspaceFromRecord(records[0])
	return &ws, nil
}

// FindByID returns a NotFoundError for unknown or deleted workspaces.
func (r *WorkspaceRepository) FindByID(ctx context.Context, id string) (*models.Workspace, error) {
	return r.findOne(ctx, constants.FieldID, id)
}

func (r *WorkspaceRepository) FindBySlug(ctx context.Context, slug string) (*models.Workspace, error) {
	return r.findOne(ctx, constants.FieldSlug, slug)
}

// Resolve accepts either an id or a slug, as operators type whichever they have at hand.
func (r *WorkspaceRepository) Resolve(ctx context.Context, idOrSlug string) (*models.Workspace, error) {
	ws, err := r.FindByID(ctx, idOrSlug)
	if apperrors.IsNotFound(err) {
		return r.FindBySlug(ctx, idOrSlug)
	}
	return ws, err
}

func (r *WorkspaceRepository) List(ctx context.Context) ([]models.Workspace, error) {
	q := query.From(constants.TableWorkspace).
		Select(models.WorkspaceColumns...).
		ExcludeDeleted().
		OrderBy(constants.FieldName, "ASC").
		Build()
	records, err := r.fetch(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	out := make([]models.Workspace, 0, len(records))
	for _, rec := range records {
		out = append(out, models.WorkspaceFromRecord(rec))
	}
	return out, nil
}

func (r *WorkspaceRepository) Insert(ctx context.Context, tx *sql.Tx, ws models.Workspace) error {
	if _, err := r.execute(ctx, r.executor(tx), query.Insert(constants.TableWorkspace, ws.Values()).Build()); err != nil {
		return fmt.Errorf("failed to insert workspace: %w", err)
	}
	return nil
}

// UserRepository reads users and workspace memberships
type UserRepository struct {
	baseRepository
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{baseRepository{db: db}}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	q := query.From(constants.TableUser).Select(models.UserColumns...).WhereEq(constants.FieldID, id).Limit(1).Build()
	records, err := r.fetch(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFoundError("user", id)
	}
	u := models.UserFromRecord(records[0])
	return &u, nil
}

// FindByEmail includes the password hash.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	cols := append(append([]string{}, models.UserColumns...), constants.FieldPassword)
	q := query.From(constants.TableUser).Select(cols...).WhereEq(constants.FieldEmail, email).Limit(1).Build()
	records, err := r.fetch(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFoundError("user", email)
	}
	u := models.UserFromRecord(records[0])
	return &u, nil
}

func (r *UserRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	q := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM `%s` WHERE `%s` = ?)", constants.TableUser, constants.FieldID)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	q := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM `%s` WHERE `%s` = ?)", constants.TableUser, constants.FieldEmail)
	if err := r.db.QueryRowContext(ctx, q, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// MemberRole returns the user's active role in a workspace, or "" when not a member.
func (r *UserRepository) MemberRole(ctx context.Context, workspaceID, userID string) (string, error) {
	q := query.From(constants.TableWorkspaceUser).
		Select(constants.FieldRole).
		WhereEq(constants.FieldWorkspaceID, workspaceID).
		WhereEq(constants.FieldUserID, userID).
		WhereEq(constants.FieldIsActive, true).
		Limit(1).
		Build()
	records, err := r.fetch(ctx, r.db, q)
	if err != nil {
		return "", fmt.Errorf("failed to load membership: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}
	return records[0].String(constants.FieldRole), nil
}

// MemberIDs lists active member user ids of a workspace.
func (r *UserRepository) MemberIDs(ctx context.Context, workspaceID string) ([]string, error) {
	q := query.From(constants.TableWorkspaceUser).
		Select(constants.FieldUserID).
		WhereEq(constants.FieldWorkspaceID, workspaceID).
		WhereEq(constants.FieldIsActive, true).
		Build()
	records, err := r.fetch(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.String(constants.FieldUserID))
	}
	return ids, nil
}

func (r *UserRepository) Insert(ctx context.Context, tx *sql.Tx, u models.User) error {
	if _, err := r.execute(ctx, r.executor(tx), query.Insert(constants.TableUser, u.Values()).Build()); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) AddMember(ctx context.Context, tx *sql.Tx, m models.WorkspaceUser) error {
	if _, err := r.execute(ctx, r.executor(tx), query.Insert(constants.TableWorkspaceUser, m.Values()).Build()); err != nil {
		return fmt.Errorf("failed to add workspace member: %w", err)
	}
	return nil
}
