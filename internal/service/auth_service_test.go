package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/pkg/config"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

func newAuthServiceForTest(t *testing.T, admin config.AdminConfig) *AuthService {
	t.Helper()
	return NewAuthService(admin, config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}, nil, zap.NewNop())
}

func TestLoginSuccess(t *testing.T) {
	svc := newAuthServiceForTest(t, config.AdminConfig{Email: "admin", Password: "admin123"})

	resp, err := svc.Login(models.LoginRequest{Email: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthServiceForTest(t, config.AdminConfig{Email: "admin", Password: "admin123"})

	_, err := svc.Login(models.LoginRequest{Email: "admin", Password: "nope"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestLoginWrongEmail(t *testing.T) {
	svc := newAuthServiceForTest(t, config.AdminConfig{Email: "admin", Password: "admin123"})

	_, err := svc.Login(models.LoginRequest{Email: "intruder", Password: "admin123"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestLoginMissingFields(t *testing.T) {
	svc := newAuthServiceForTest(t, config.AdminConfig{Email: "admin", Password: "admin123"})

	_, err := svc.Login(models.LoginRequest{Email: "admin"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestLoginPrefersBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := newAuthServiceForTest(t, config.AdminConfig{Email: "admin", Password: "admin123", PasswordHash: string(hash)})

	_, err = svc.Login(models.LoginRequest{Email: "admin", Password: "admin123"})
	require.Error(t, err)

	resp, err := svc.Login(models.LoginRequest{Email: "admin", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthServiceForTest(t, config.AdminConfig{Email: "admin", Password: "admin123"})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := newAuthServiceForTest(t, config.AdminConfig{Email: "admin", Password: "admin123"})
	resp, err := issuer.Login(models.LoginRequest{Email: "admin", Password: "admin123"})
	require.NoError(t, err)

	verifier := NewAuthService(config.AdminConfig{Email: "admin", Password: "admin123"}, config.JWTConfig{Secret: "other-secret", Expiration: time.Hour}, nil, zap.NewNop())
	_, err = verifier.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}
