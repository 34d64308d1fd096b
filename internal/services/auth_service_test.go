package services

import (
	"context"
	"testing"

	"github.com/devacunetixtech/acucommerce/internal/domain"
	"github.com/devacunetixtech/acucommerce/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-jwt-secret"

func TestAuthService_Register(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "ada@example.com").Return(nil, nil)

	var created *domain.User
	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.User)
		}).
		Return(nil)

	service := NewAuthService(userRepo, testJWTSecret)
	user, token, err := service.Register(context.Background(), RegisterInput{
		Name:     "Ada Obi",
		Email:    "  Ada@Example.COM ",
		Password: "hunter22",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEqual(t, "hunter22", created.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("hunter22")))

	claims, err := service.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "ada@example.com").
		Return(&domain.User{ID: testUserID, Email: "ada@example.com"}, nil)

	service := NewAuthService(userRepo, testJWTSecret)
	_, _, err := service.Register(context.Background(), RegisterInput{
		Name: "Ada Obi", Email: "ada@example.com", Password: "hunter22",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &domain.User{
		ID:       testUserID,
		Email:    "ada@example.com",
		Password: string(hash),
		Role:     domain.RoleUser,
	}

	tests := []struct {
		name          string
		email         string
		password      string
		user          *domain.User
		expectedError error
	}{
		{name: "valid credentials", email: "ada@example.com", password: "hunter22", user: stored},
		{name: "email is normalized", email: " ADA@example.com ", password: "hunter22", user: stored},
		{name: "wrong password", email: "ada@example.com", password: "hunter23", user: stored, expectedError: ErrInvalidCredentials},
		{name: "unknown email", email: "ada@example.com", password: "hunter22", user: nil, expectedError: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := new(mocks.MockUserRepository)
			userRepo.On("FindByEmail", mock.Anything, "ada@example.com").Return(tt.user, nil)

			service := NewAuthService(userRepo, testJWTSecret)
			user, token, err := service.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testUserID, user.ID)

			claims, err := service.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, testUserID, claims.UserID)
		})
	}
}

func TestAuthService_ParseToken_Invalid(t *testing.T) {
	service := NewAuthService(new(mocks.MockUserRepository), testJWTSecret)

	_, err := service.ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Token signed with a different secret must be rejected.
	other := NewAuthService(new(mocks.MockUserRepository), "another-secret")
	_, token, err := issueFor(other)
	require.NoError(t, err)
	_, err = service.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func issueFor(s *AuthService) (*domain.User, string, error) {
	user := &domain.User{ID: testUserID, Email: "ada@example.com", Role: domain.RoleUser}
	token, err := s.issueToken(user)
	return user, token, err
}
