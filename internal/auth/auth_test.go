package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	j := NewJWT("test-secret", time.Hour)
	empID := uuid.New()
	orgID := uuid.New()

	token, expiresAt, err := j.Generate(empID, orgID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := j.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, empID, claims.EmployeeID)
	assert.Equal(t, orgID, claims.OrgID)
}

func TestJWT_WrongSecret(t *testing.T) {
	token, _, err := NewJWT("secret-a", time.Hour).Generate(uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = NewJWT("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_Expired(t *testing.T) {
	claims := Claims{
		EmployeeID: uuid.New(),
		OrgID:      uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWT("secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// Tokens issued within the same second must still differ, or the second
// session insert collides on the token hash.
func TestJWT_UniquePerIssue(t *testing.T) {
	j := NewJWT("secret", time.Hour)
	empID := uuid.New()
	orgID := uuid.New()

	a, _, err := j.Generate(empID, orgID)
	require.NoError(t, err)
	b, _, err := j.Generate(empID, orgID)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	claims, err := j.Verify(a)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

func TestJWT_Garbage(t *testing.T) {
	_, err := NewJWT("secret", time.Hour).Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("Password123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Password123!", hash)
	assert.True(t, VerifyPassword("Password123!", hash))
	assert.False(t, VerifyPassword("password123!", hash))
}

func TestNewSecureToken(t *testing.T) {
	a, err := NewSecureToken()
	require.NoError(t, err)
	b, err := NewSecureToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestHashToken_Deterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
