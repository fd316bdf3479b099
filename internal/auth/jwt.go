package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the session claims embedded in every bearer token. The session
// row in the database stays authoritative; the JWT only carries identity and
// expiry so handlers can reject garbage before touching the store.
type Claims struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	OrgID      uuid.UUID `json:"org_id"`
	jwt.RegisteredClaims
}

type JWT struct {
	secret []byte
	ttl    time.Duration
}

func NewJWT(secret string, ttl time.Duration) *JWT {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWT{secret: []byte(secret), ttl: ttl}
}

func (j *JWT) TTL() time.Duration { return j.ttl }

// Generate signs a session token for the given employee.
func (j *JWT) Generate(employeeID, orgID uuid.UUID) (string, time.Time, error) {
	expiresAt := time.Now().Add(j.ttl)
	claims := Claims{
		EmployeeID: employeeID,
		OrgID:      orgID,
		RegisteredClaims: jwt.RegisteredClaims{
			// Fresh jti per token: iat/exp only have second granularity, and
			// two identical tokens would collide on the hashed session row.
			ID:        uuid.NewString(),
			Subject:   employeeID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a session token, returning its claims.
func (j *JWT) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.EmployeeID == uuid.Nil || claims.OrgID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
