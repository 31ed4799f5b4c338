package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockmaster-api/internal/application/auth"
	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/ports"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
	"github.com/jhoicas/stockmaster-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockmaster-api/pkg/jwt"
)

const testSecret = "test-secret-key-for-unit-tests"

type fakeMailer struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (m *fakeMailer) SendResetCode(_ context.Context, to, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[to] = code
	return nil
}

func newAuth(mailer *fakeMailer) *auth.AuthUseCase {
	var m ports.Mailer
	if mailer != nil {
		m = mailer
	}
	s := memory.NewStore()
	return auth.NewAuthUseCase(
		memory.NewUserRepository(s),
		memory.NewCodeStore(),
		memory.NewRateLimiter(3, 15*time.Minute),
		m,
		auth.JWTConfig{Secret: testSecret, Issuer: "stockmaster-test", ExpMinutes: 60, ResetExpMinutes: 10},
		10*time.Minute,
		nil,
	)
}

func signup(t *testing.T, uc *auth.AuthUseCase, email string) *dto.UserResponse {
	t.Helper()
	u, err := uc.Signup(context.Background(), dto.SignupRequest{Name: "Ana", Email: email, Password: "supersecreta"})
	require.NoError(t, err)
	return u
}

// ── Registro y login ──────────────────────────────────────────────────────────

func TestSignup_RolPorDefectoYEmailNormalizado(t *testing.T) {
	uc := newAuth(nil)
	u := signup(t, uc, "  Ana@Example.COM ")
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, "staff", u.Role)
}

func TestSignup_Validaciones(t *testing.T) {
	uc := newAuth(nil)
	ctx := context.Background()

	_, err := uc.Signup(ctx, dto.SignupRequest{Email: "a@x.com", Password: "corta"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Signup(ctx, dto.SignupRequest{Email: "no-email", Password: "supersecreta"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Signup(ctx, dto.SignupRequest{Email: "a@x.com", Password: "supersecreta", Role: "root"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSignup_EmailDuplicado(t *testing.T) {
	uc := newAuth(nil)
	signup(t, uc, "ana@example.com")
	_, err := uc.Signup(context.Background(), dto.SignupRequest{Email: "ANA@example.com", Password: "otraclave123"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestLogin_EmiteTokenDeSesion(t *testing.T) {
	uc := newAuth(nil)
	u := signup(t, uc, "ana@example.com")

	resp, err := uc.Login(context.Background(), dto.LoginRequest{Email: "ANA@example.com", Password: "supersecreta"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, resp.User.ID)

	userID, role, err := jwt.Parse(testSecret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.Equal(t, "staff", role)
}

func TestLogin_CredencialesInvalidas(t *testing.T) {
	uc := newAuth(nil)
	signup(t, uc, "ana@example.com")
	ctx := context.Background()

	_, err := uc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "incorrecta"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "nadie@example.com", Password: "supersecreta"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// ── Restablecimiento de contraseña ────────────────────────────────────────────

func TestResetFlow_CodigoSeUsaUnaSolaVez(t *testing.T) {
	mailer := &fakeMailer{}
	uc := newAuth(mailer)
	ctx := context.Background()
	signup(t, uc, "ana@example.com")

	require.NoError(t, uc.ForgotPassword(ctx, dto.ForgotPasswordRequest{Email: "ana@example.com"}))
	code := mailer.codes["ana@example.com"]
	require.Len(t, code, 6)

	_, err := uc.VerifyCode(ctx, dto.VerifyCodeRequest{Email: "ana@example.com", Code: "000000x"})
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)

	verified, err := uc.VerifyCode(ctx, dto.VerifyCodeRequest{Email: "ana@example.com", Code: code})
	require.NoError(t, err)
	require.NotEmpty(t, verified.ResetToken)

	require.NoError(t, uc.ResetPassword(ctx, dto.ResetPasswordRequest{ResetToken: verified.ResetToken, NewPassword: "nuevaclave123"}))
	err = uc.ResetPassword(ctx, dto.ResetPasswordRequest{ResetToken: verified.ResetToken, NewPassword: "otraclave456"})
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "nuevaclave123"})
	assert.NoError(t, err)
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "otraclave456"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResetPassword_TokenDeSesionNoSirve(t *testing.T) {
	uc := newAuth(&fakeMailer{})
	signup(t, uc, "ana@example.com")
	login, err := uc.Login(context.Background(), dto.LoginRequest{Email: "ana@example.com", Password: "supersecreta"})
	require.NoError(t, err)

	err = uc.ResetPassword(context.Background(), dto.ResetPasswordRequest{ResetToken: login.Token, NewPassword: "nuevaclave123"})
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)
}

func TestForgotPassword_UsuarioDesconocido(t *testing.T) {
	uc := newAuth(&fakeMailer{})
	err := uc.ForgotPassword(context.Background(), dto.ForgotPasswordRequest{Email: "nadie@example.com"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestForgotPassword_SinCorreoConfigurado(t *testing.T) {
	uc := newAuth(nil)
	signup(t, uc, "ana@example.com")
	err := uc.ForgotPassword(context.Background(), dto.ForgotPasswordRequest{Email: "ana@example.com"})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestForgotPassword_FalloDelCorreo(t *testing.T) {
	uc := newAuth(&fakeMailer{err: errors.New("smtp caído")})
	signup(t, uc, "ana@example.com")
	err := uc.ForgotPassword(context.Background(), dto.ForgotPasswordRequest{Email: "ana@example.com"})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestForgotPassword_LimiteDeSolicitudes(t *testing.T) {
	uc := newAuth(&fakeMailer{})
	signup(t, uc, "ana@example.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, uc.ForgotPassword(ctx, dto.ForgotPasswordRequest{Email: "ana@example.com"}))
	}
	err := uc.ForgotPassword(ctx, dto.ForgotPasswordRequest{Email: "ana@example.com"})
	assert.ErrorIs(t, err, domain.ErrTooManyRequests)
}

// flakyUsers falla la primera escritura de contraseña.
type flakyUsers struct {
	repository.UserRepository
	failed bool
}

func (u *flakyUsers) UpdatePassword(ctx context.Context, id, hash string) error {
	if !u.failed {
		u.failed = true
		return domain.ErrStoreUnavailable
	}
	return u.UserRepository.UpdatePassword(ctx, id, hash)
}

func TestResetPassword_FalloAlGuardarNoQuemaElCodigo(t *testing.T) {
	mailer := &fakeMailer{}
	users := &flakyUsers{UserRepository: memory.NewUserRepository(memory.NewStore())}
	uc := auth.NewAuthUseCase(users, memory.NewCodeStore(), nil, mailer,
		auth.JWTConfig{Secret: testSecret, Issuer: "stockmaster-test", ExpMinutes: 60, ResetExpMinutes: 10},
		10*time.Minute, nil)
	ctx := context.Background()
	signup(t, uc, "ana@example.com")

	require.NoError(t, uc.ForgotPassword(ctx, dto.ForgotPasswordRequest{Email: "ana@example.com"}))
	verified, err := uc.VerifyCode(ctx, dto.VerifyCodeRequest{Email: "ana@example.com", Code: mailer.codes["ana@example.com"]})
	require.NoError(t, err)

	req := dto.ResetPasswordRequest{ResetToken: verified.ResetToken, NewPassword: "nuevaclave123"}
	assert.ErrorIs(t, uc.ResetPassword(ctx, req), domain.ErrStoreUnavailable)
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "nuevaclave123"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "la contraseña no cambió")

	require.NoError(t, uc.ResetPassword(ctx, req), "el mismo token sirve para reintentar")
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "nuevaclave123"})
	assert.NoError(t, err)
	assert.ErrorIs(t, uc.ResetPassword(ctx, req), domain.ErrCodeInvalid)
}
