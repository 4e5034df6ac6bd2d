package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	portsrepo "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/repositories"
	portssvc "github.com/Mahmadabid/expense-tracker-sub000/internal/core/ports/services"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/dto"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/middleware"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/utils"
	"github.com/google/uuid"
)

// UserService provides user account operations.
type UserService struct {
	repo portsrepo.UserRepositoryFacade
}

// NewUserService creates a new UserService.
func NewUserService(repo portsrepo.UserRepositoryFacade) *UserService {
	return &UserService{repo: repo}
}

var _ portssvc.UserSvcFacade = (*UserService)(nil)

// RegisterUser creates a new account with a bcrypt-hashed password.
func (s *UserService) RegisterUser(ctx context.Context, req dto.RegisterUserRequest) (*domain.User, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		return nil, fmt.Errorf("%w: failed to hash password", apperrors.ErrInternal)
	}

	now := time.Now().UTC()
	userID := uuid.NewString()
	user := domain.User{
		UserID:       userID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.repo.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	logger.Info("user registered", "user_id", user.UserID)
	return &user, nil
}

// Authenticate verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, userID)
}

// ListUsers retrieves a page of users.
func (s *UserService) ListUsers(ctx context.Context, params dto.ListUsersParams) ([]domain.User, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListUsers(ctx, limit, offset)
}

// UpdateUser updates the user's own profile.
func (s *UserService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, requestingUserID string) (*domain.User, error) {
	if userID != requestingUserID {
		return nil, fmt.Errorf("%w: users may only update their own profile", apperrors.ErrForbidden)
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	user.LastUpdatedAt = time.Now().UTC()
	user.LastUpdatedBy = requestingUserID

	if err := s.repo.UpdateUser(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser soft-deletes the user's own account.
func (s *UserService) DeleteUser(ctx context.Context, userID string, requestingUserID string) error {
	if userID != requestingUserID {
		return fmt.Errorf("%w: users may only delete their own account", apperrors.ErrForbidden)
	}
	return s.repo.MarkUserDeleted(ctx, userID, requestingUserID, time.Now().UTC())
}
