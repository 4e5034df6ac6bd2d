package services

import (
	"context"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/dto"
)

// UserSvcFacade defines user account operations.
type UserSvcFacade interface {
	RegisterUser(ctx context.Context, req dto.RegisterUserRequest) (*domain.User, error)
	// Authenticate verifies credentials and returns the stable user identity.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	ListUsers(ctx context.Context, params dto.ListUsersParams) ([]domain.User, error)
	UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, requestingUserID string) (*domain.User, error)
	DeleteUser(ctx context.Context, userID string, requestingUserID string) error
}
