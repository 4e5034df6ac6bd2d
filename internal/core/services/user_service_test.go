package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/services"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/dto"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/utils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// MockUserRepository is a mock type for the UserRepositoryFacade interface.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) MarkUserDeleted(ctx context.Context, userID string, deletedBy string, now time.Time) error {
	args := m.Called(ctx, userID, deletedBy, now)
	return args.Error(0)
}

// --- Test Suite Setup ---

type UserServiceTestSuite struct {
	suite.Suite
	mockRepo *MockUserRepository
	service  *services.UserService
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockUserRepository)
	suite.service = services.NewUserService(suite.mockRepo)
}

// --- Test Cases ---

func (suite *UserServiceTestSuite) TestRegisterUser_Success() {
	ctx := context.Background()
	req := dto.RegisterUserRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "a-long-password",
	}

	suite.mockRepo.On("SaveUser", ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == req.Email && u.PasswordHash != req.Password && u.PasswordHash != ""
	})).Return(nil).Once()

	user, err := suite.service.RegisterUser(ctx, req)
	suite.Require().NoError(err)
	suite.NotEmpty(user.UserID)
	suite.Equal(req.Name, user.Name)
	suite.True(utils.CheckPasswordHash(req.Password, user.PasswordHash))

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestRegisterUser_DuplicateEmail() {
	ctx := context.Background()
	req := dto.RegisterUserRequest{Name: "Ada", Email: "ada@example.com", Password: "a-long-password"}

	suite.mockRepo.On("SaveUser", ctx, mock.AnythingOfType("domain.User")).
		Return(apperrors.ErrDuplicate).Once()

	_, err := suite.service.RegisterUser(ctx, req)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
}

func (suite *UserServiceTestSuite) TestAuthenticate_Success() {
	ctx := context.Background()
	hash, err := utils.HashPassword("correct horse")
	suite.Require().NoError(err)

	stored := &domain.User{UserID: "u1", Email: "ada@example.com", PasswordHash: hash}
	suite.mockRepo.On("FindUserByEmail", ctx, "ada@example.com").Return(stored, nil).Once()

	user, err := suite.service.Authenticate(ctx, "ada@example.com", "correct horse")
	suite.Require().NoError(err)
	suite.Equal("u1", user.UserID)
}

func (suite *UserServiceTestSuite) TestAuthenticate_WrongPassword() {
	ctx := context.Background()
	hash, err := utils.HashPassword("correct horse")
	suite.Require().NoError(err)

	stored := &domain.User{UserID: "u1", Email: "ada@example.com", PasswordHash: hash}
	suite.mockRepo.On("FindUserByEmail", ctx, "ada@example.com").Return(stored, nil).Once()

	_, err = suite.service.Authenticate(ctx, "ada@example.com", "wrong")
	suite.ErrorIs(err, apperrors.ErrUnauthorized)
}

func (suite *UserServiceTestSuite) TestAuthenticate_UnknownEmail() {
	ctx := context.Background()
	suite.mockRepo.On("FindUserByEmail", ctx, "ghost@example.com").
		Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.Authenticate(ctx, "ghost@example.com", "anything")
	// Unknown email and bad password look identical to the caller.
	suite.ErrorIs(err, apperrors.ErrUnauthorized)
}

func (suite *UserServiceTestSuite) TestUpdateUser_OnlySelf() {
	ctx := context.Background()

	_, err := suite.service.UpdateUser(ctx, "someone-else", dto.UpdateUserRequest{}, "me")
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateUser")
}

func (suite *UserServiceTestSuite) TestDeleteUser_OnlySelf() {
	ctx := context.Background()

	err := suite.service.DeleteUser(ctx, "someone-else", "me")
	suite.ErrorIs(err, apperrors.ErrForbidden)

	suite.mockRepo.On("MarkUserDeleted", ctx, "me", "me", mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.Require().NoError(suite.service.DeleteUser(ctx, "me", "me"))
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
