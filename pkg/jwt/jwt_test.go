package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestGenerateParse_Sesion(t *testing.T) {
	tok, err := Generate(secret, "user-1", "admin", "stockmaster-test", 5)
	require.NoError(t, err)

	userID, role, err := Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "admin", role)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := Generate(secret, "user-1", "staff", "stockmaster-test", 5)
	require.NoError(t, err)

	_, _, err = Parse("otro-secreto", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := Generate(secret, "user-1", "staff", "stockmaster-test", -1)
	require.NoError(t, err)

	_, _, err = Parse(secret, tok)
	assert.Error(t, err)
}

func TestTokenReset_NoSirveComoSesion(t *testing.T) {
	tok, err := GenerateReset(secret, "user-1", "code-1", "stockmaster-test", 10)
	require.NoError(t, err)

	_, _, err = Parse(secret, tok)
	assert.ErrorIs(t, err, ErrWrongPurpose)

	userID, codeID, err := ParseReset(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "code-1", codeID)
}

func TestTokenSesion_NoSirveComoReset(t *testing.T) {
	tok, err := Generate(secret, "user-1", "staff", "stockmaster-test", 5)
	require.NoError(t, err)

	_, _, err = ParseReset(secret, tok)
	assert.ErrorIs(t, err, ErrWrongPurpose)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := Generate("", "user-1", "staff", "x", 5)
	assert.Error(t, err)
	_, err = GenerateReset(secret, "user-1", "", "x", 5)
	assert.Error(t, err)
}
