package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, c Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() Claims {
	return Claims{
		UserID: "u1",
		Role:   "member",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestNewProvider_ReadsPEM(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}), 0600))

	p, err := NewProvider(path)
	require.NoError(t, err)

	claims, err := p.Verify(sign(t, key, jwt.SigningMethodRS256, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "member", claims.Role)
}

func TestNewProvider_MissingFile(t *testing.T) {
	_, err := NewProvider(filepath.Join(t.TempDir(), "nope.pem"))
	assert.Error(t, err)
}

func TestVerify_Rejects(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := NewProviderFromKey(&key.PublicKey)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	noUser := validClaims()
	noUser.UserID = ""

	cases := map[string]string{
		"garbage":   "not-a-token",
		"wrong key": sign(t, other, jwt.SigningMethodRS256, validClaims()),
		"expired":   sign(t, key, jwt.SigningMethodRS256, expired),
		"no expiry": sign(t, key, jwt.SigningMethodRS256, noExpiry),
		"no user":   sign(t, key, jwt.SigningMethodRS256, noUser),
		"wrong alg": sign(t, key, jwt.SigningMethodRS512, validClaims()),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Verify(tok)
			assert.Error(t, err)
		})
	}
}
