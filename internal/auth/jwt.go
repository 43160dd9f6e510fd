package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in tokens.
const (
	RoleAdmin      = "admin"
	RoleDepartment = "department"
)

// Token is a signed access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Claims represents JWT payload.
type Claims struct {
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
	DeptID int64  `json:"dept_id,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and validates HS256 tokens for one issuer.
type Issuer struct {
	Name string
	Key  []byte
	TTL  time.Duration
}

func NewIssuer(name, key string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{Name: name, Key: []byte(key), TTL: ttl}
}

// Issue signs an access token for subject.
func (i *Issuer) Issue(subject string, claims Claims) (Token, error) {
	now := time.Now()
	exp := now.Add(i.TTL)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    i.Name,
		Subject:   subject,
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Key)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns claims.
func (i *Issuer) Parse(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.Key, nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if i.Name != "" && claims.Issuer != i.Name {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}
