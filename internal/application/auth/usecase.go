package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/ports"
	"github.com/jhoicas/stockmaster-api/internal/application/usecase"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
	"github.com/jhoicas/stockmaster-api/pkg/jwt"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

const (
	minPasswordLen = 8
	codeDigits     = 6
	defaultCodeTTL = 10 * time.Minute
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret          string
	Issuer          string
	ExpMinutes      int
	ResetExpMinutes int
}

// AuthUseCase casos de uso de autenticación: registro, login y restablecimiento de contraseña por OTP.
type AuthUseCase struct {
	users   repository.UserRepository
	codes   ports.CodeStore
	limiter ports.RateLimiter
	mailer  ports.Mailer
	jwtCfg  JWTConfig
	codeTTL time.Duration
	log     *logger.Logger

	now     func() time.Time
	newCode func() (string, error)
}

// NewAuthUseCase construye el caso de uso de auth. mailer nil deja forgot-password en 503.
func NewAuthUseCase(
	users repository.UserRepository,
	codes ports.CodeStore,
	limiter ports.RateLimiter,
	mailer ports.Mailer,
	jwtCfg JWTConfig,
	codeTTL time.Duration,
	log *logger.Logger,
) *AuthUseCase {
	if codeTTL <= 0 {
		codeTTL = defaultCodeTTL
	}
	if jwtCfg.ResetExpMinutes <= 0 {
		jwtCfg.ResetExpMinutes = int(codeTTL / time.Minute)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AuthUseCase{
		users:   users,
		codes:   codes,
		limiter: limiter,
		mailer:  mailer,
		jwtCfg:  jwtCfg,
		codeTTL: codeTTL,
		log:     log.Component("auth"),
		now:     time.Now,
		newCode: randomCode,
	}
}

// Signup crea un usuario: hashea password con bcrypt y persiste.
// Devuelve ErrEmailAlreadyExists si el email ya está registrado.
func (uc *AuthUseCase) Signup(ctx context.Context, in dto.SignupRequest) (*dto.UserResponse, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLen {
		return nil, domain.Invalid("la contraseña debe tener al menos %d caracteres", minPasswordLen)
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = entity.RoleStaff
	}
	if !entity.ValidRole(role) {
		return nil, domain.Invalid("rol inválido: %s", in.Role)
	}
	existing, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash de contraseña: %w", err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return usecase.ToUserResponse(user), nil
}

// Login verifica email/password, genera JWT y retorna token + usuario.
// Email desconocido y contraseña incorrecta devuelven el mismo ErrUnauthorized.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, domain.Invalid("email y password son requeridos")
	}
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Message: "login exitoso",
		Token:   token,
		User:    *usecase.ToUserResponse(user),
	}, nil
}

// ForgotPassword genera un código de 6 dígitos, guarda su hash con vencimiento y lo envía por correo.
//   - usuario desconocido    → domain.ErrUserNotFound
//   - correo no configurado  → domain.ErrServiceUnavailable
//   - demasiadas solicitudes → domain.ErrTooManyRequests
func (uc *AuthUseCase) ForgotPassword(ctx context.Context, in dto.ForgotPasswordRequest) error {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return err
	}
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if uc.mailer == nil {
		return fmt.Errorf("%w: envío de correo no configurado", domain.ErrServiceUnavailable)
	}

	if uc.limiter != nil {
		ok, retry, err := uc.limiter.Allow(ctx, "forgot:"+email)
		switch {
		case err != nil:
			uc.log.Warn().Err(err).Str("email", email).Msg("rate limiter no disponible, se permite la solicitud")
		case !ok:
			return fmt.Errorf("%w: intenta de nuevo en %s", domain.ErrTooManyRequests, retry.Round(time.Second))
		}
	}

	code, err := uc.newCode()
	if err != nil {
		return fmt.Errorf("generar código: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash de código: %w", err)
	}
	now := uc.now().UTC()
	rc := &entity.ResetCode{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(uc.codeTTL),
		CreatedAt: now,
	}
	if err := uc.codes.Save(ctx, rc); err != nil {
		return err
	}
	if err := uc.mailer.SendResetCode(ctx, email, code, uc.codeTTL); err != nil {
		uc.log.Error().Err(err).Str("email", email).Msg("no se pudo enviar el código de restablecimiento")
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	uc.log.Info().Str("user_id", user.ID).Str("code_id", rc.ID).Msg("código de restablecimiento enviado")
	return nil
}

// VerifyCode valida el último código emitido para el email y devuelve un token de restablecimiento
// atado a ese código. El código no se consume aquí sino en ResetPassword.
func (uc *AuthUseCase) VerifyCode(ctx context.Context, in dto.VerifyCodeRequest) (*dto.VerifyCodeResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	code := strings.TrimSpace(in.Code)
	if email == "" || code == "" {
		return nil, domain.Invalid("email y code son requeridos")
	}
	rc, err := uc.codes.Latest(ctx, email)
	if err != nil {
		return nil, err
	}
	if rc == nil || rc.Expired(uc.now()) {
		return nil, domain.ErrCodeExpired
	}
	if rc.Consumed {
		return nil, domain.ErrCodeInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rc.CodeHash), []byte(code)); err != nil {
		return nil, domain.ErrCodeInvalid
	}
	token, err := jwt.GenerateReset(uc.jwtCfg.Secret, rc.UserID, rc.ID, uc.jwtCfg.Issuer, uc.jwtCfg.ResetExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.VerifyCodeResponse{Message: "código verificado", ResetToken: token}, nil
}

// ResetPassword consume el código atado al token y actualiza la contraseña. Un segundo uso falla.
// Si la escritura de la contraseña falla, el código se libera y el token sigue sirviendo.
func (uc *AuthUseCase) ResetPassword(ctx context.Context, in dto.ResetPasswordRequest) error {
	if len(in.NewPassword) < minPasswordLen {
		return domain.Invalid("la contraseña debe tener al menos %d caracteres", minPasswordLen)
	}
	userID, codeID, err := jwt.ParseReset(uc.jwtCfg.Secret, strings.TrimSpace(in.ResetToken))
	if err != nil {
		return fmt.Errorf("%w: token de restablecimiento inválido", domain.ErrCodeInvalid)
	}
	rc, err := uc.codes.Get(ctx, codeID)
	if err != nil {
		return err
	}
	if rc == nil {
		return domain.ErrCodeExpired
	}
	if rc.UserID != userID {
		return domain.ErrCodeInvalid
	}
	consumed, err := uc.codes.Consume(ctx, codeID)
	if err != nil {
		return err
	}
	if !consumed {
		return fmt.Errorf("%w: el código ya fue utilizado", domain.ErrCodeInvalid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash de contraseña: %w", err)
	}
	if err := uc.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrCodeInvalid
		}
		// El código vuelve a quedar disponible para reintentar con el mismo token.
		if rerr := uc.codes.Release(ctx, codeID); rerr != nil {
			uc.log.Error().Err(rerr).Str("code_id", codeID).Msg("no se pudo liberar el código de restablecimiento")
		}
		return err
	}
	uc.log.Info().Str("user_id", userID).Msg("contraseña restablecida")
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.Invalid("email es requerido")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.Invalid("email inválido: %s", raw)
	}
	return email, nil
}

// randomCode código numérico de 6 dígitos con crypto/rand.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
