package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Propósitos de token. Un token de restablecimiento nunca sirve como token de sesión y viceversa.
const (
	PurposeSession       = "session"
	PurposePasswordReset = "password-reset"
)

// ErrWrongPurpose se devuelve cuando el token es válido pero fue emitido para otro uso.
var ErrWrongPurpose = errors.New("jwt: propósito de token incorrecto")

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"user_id"`
	Role    string `json:"role,omitempty"` // "admin" | "manager" | "staff"
	Purpose string `json:"purpose"`
	CodeID  string `json:"code_id,omitempty"`
}

// Generate genera un token de sesión firmado con userID y role.
func Generate(secret, userID, role, issuer string, expMinutes int) (string, error) {
	return sign(secret, issuer, expMinutes, Claims{UserID: userID, Role: role, Purpose: PurposeSession})
}

// GenerateReset genera el token corto que autoriza un único cambio de contraseña
// ligado al código OTP codeID.
func GenerateReset(secret, userID, codeID, issuer string, expMinutes int) (string, error) {
	if codeID == "" {
		return "", fmt.Errorf("jwt: codeID vacío")
	}
	return sign(secret, issuer, expMinutes, Claims{UserID: userID, Purpose: PurposePasswordReset, CodeID: codeID})
}

func sign(secret, issuer string, expMinutes int, claims Claims) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida un token de sesión y devuelve userID y role.
// Retorna error si el token es inválido, expirado, tiene firma incorrecta o es de otro propósito.
func Parse(secret, tokenString string) (userID, role string, err error) {
	claims, err := parseClaims(secret, tokenString)
	if err != nil {
		return "", "", err
	}
	if claims.Purpose != PurposeSession {
		return "", "", ErrWrongPurpose
	}
	return claims.UserID, claims.Role, nil
}

// ParseReset valida un token de restablecimiento y devuelve userID y codeID.
func ParseReset(secret, tokenString string) (userID, codeID string, err error) {
	claims, err := parseClaims(secret, tokenString)
	if err != nil {
		return "", "", err
	}
	if claims.Purpose != PurposePasswordReset || claims.CodeID == "" {
		return "", "", ErrWrongPurpose
	}
	return claims.UserID, claims.CodeID, nil
}

func parseClaims(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	return claims, nil
}
