package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/auth"
	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/utils"
)

var validRoles = map[string]bool{
	constants.RoleSuperAdmin:     true,
	constants.RoleWorkspaceAdmin: true,
	constants.RoleManager:        true,
	constants.RoleSeller:         true,
	constants.RoleViewer:         true,
}

// CreateUserRequest describes a new login and its workspace membership
type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name"`
	Password    string `json:"password" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required"`
	Role        string `json:"role"`
}

// TokenRequest identifies the user a token is issued for
type TokenRequest struct {
	UserID      string
	Email       string
	WorkspaceID string
}

// IssuedToken is a signed token with the identity it carries
type IssuedToken struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Session   auth.Session `json:"session"`
}

// UserService manages operator accounts and tokens.
type UserService struct {
	users      *persistence.UserRepository
	workspaces *persistence.WorkspaceRepository
	txManager  *persistence.TransactionManager
	logger     *zap.Logger
	now        func() time.Time
}

func NewUserService(db *sql.DB, logger *zap.Logger) *UserService {
	return &UserService{
		users:      persistence.NewUserRepository(db),
		workspaces: persistence.NewWorkspaceRepository(db),
		txManager:  persistence.NewTransactionManager(db),
		logger:     logging.OrNop(logger),
		now:        time.Now,
	}
}

// CreateUser adds a user with a bcrypt password and makes them a member of
// the workspace. Role defaults to SELLER.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	req.Email = utils.NormalizeEmail(req.Email)
	if !auth.IsValidEmail(req.Email) {
		return nil, apperrors.NewValidationError("email", "is not a valid address")
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, apperrors.NewValidationError("password", err.Error())
	}
	if req.Role == "" {
		req.Role = constants.RoleSeller
	}
	req.Role = strings.ToUpper(req.Role)
	if !validRoles[req.Role] {
		return nil, apperrors.NewValidationError("role", fmt.Sprintf("unknown role %q", req.Role))
	}

	ws, err := s.workspaces.Resolve(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, apperrors.NewValidationError("email", "is already registered")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	first, last := utils.SplitFullName(req.Name)
	user := models.User{
		ID:                utils.GenerateID(),
		Email:             req.Email,
		Name:              utils.FirstNonEmpty(strings.TrimSpace(req.Name), req.Email),
		FirstName:         first,
		LastName:          last,
		Password:          hash,
		ActiveWorkspaceID: ws.ID,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = s.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := s.users.Insert(ctx, tx, user); err != nil {
			return err
		}
		return s.users.AddMember(ctx, tx, models.WorkspaceUser{
			ID:          utils.GenerateID(),
			WorkspaceID: ws.ID,
			UserID:      user.ID,
			Role:        req.Role,
			IsActive:    true,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("👤 User created",
		zap.String("user_id", user.ID),
		zap.String("workspace_id", ws.ID),
		zap.String("role", req.Role))
	return &user, nil
}

// IssueToken signs a token for a workspace member, carrying their role there.
func (s *UserService) IssueToken(ctx context.Context, req TokenRequest) (*IssuedToken, error) {
	if req.UserID == "" && req.Email == "" {
		return nil, apperrors.NewValidationError("user", "id or email is required")
	}
	var (
		user *models.User
		err  error
	)
	if req.UserID != "" {
		user, err = s.users.FindByID(ctx, req.UserID)
	} else {
		user, err = s.users.FindByEmail(ctx, utils.NormalizeEmail(req.Email))
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.NewValidationError("user", "is deactivated")
	}

	wsID := utils.FirstNonEmpty(req.WorkspaceID, user.ActiveWorkspaceID)
	if wsID == "" {
		return nil, apperrors.NewValidationError("workspace", "is required")
	}
	ws, err := s.workspaces.Resolve(ctx, wsID)
	if err != nil {
		return nil, err
	}
	role, err := s.users.MemberRole(ctx, ws.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, apperrors.NewValidationError("workspace", fmt.Sprintf("user %s is not a member of %s", user.ID, ws.ID))
	}

	session := auth.Session{UserID: user.ID, Email: user.Email, WorkspaceID: ws.ID, Role: role}
	token, err := auth.GenerateToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &IssuedToken{Token: token, ExpiresAt: s.now().Add(auth.TokenTTL), Session: session}, nil
}
