// Package jwttoken validates the platform's HS256 access tokens.
package jwttoken

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	authmw "veritas/pkg/platform/middleware/auth"
)

// RoleStaff grants review and course-administration access.
const RoleStaff = "staff"

type Claims struct {
	UserID     string   `json:"user_id,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	APIVersion string   `json:"api_version,omitempty"`
	jwt.RegisteredClaims
}

// Caller is the user id carried by the token. Tokens minted by the identity
// provider may set only the standard subject.
func (c *Claims) Caller() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

func (c *Claims) IsStaff() bool {
	return slices.Contains(c.Roles, RoleStaff)
}

type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// GenerateAccessToken mints a token for local tooling and tests.
func (s *JWTService) GenerateAccessToken(userID id.UserID, roles []string, ttl time.Duration) (string, error) {
	issued := s.now()
	claims := Claims{
		UserID:     userID.String(),
		Roles:      roles,
		APIVersion: id.APIVersionV1.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func (s *JWTService) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenUnverifiable
	}
	return s.signingKey, nil
}

func (s *JWTService) ValidateToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, s.keyFunc,
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	case err != nil:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	case claims.Caller() == "":
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}
	return claims, nil
}

// Validator adapts JWTService to the auth middleware.
type Validator struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *Validator {
	return &Validator{service: service}
}

func (v *Validator) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		UserID:     claims.Caller(),
		Staff:      claims.IsStaff(),
		APIVersion: claims.APIVersion,
	}, nil
}
