package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer         = "coachhub"
	defaultTTLHour = 24
)

// ErrInvalidToken covers every parse, signature and claim failure.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the access token claims. Subject repeats UserID for generic consumers.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// JWTService issues and checks HS256 access tokens.
type JWTService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewJWTService creates a JWT service. A non-positive expireHours means 24.
func NewJWTService(secret string, expireHours int) *JWTService {
	if expireHours <= 0 {
		expireHours = defaultTTLHour
	}
	return &JWTService{key: []byte(secret), ttl: time.Duration(expireHours) * time.Hour, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration { return s.ttl }

// Generate signs an access token for the user.
func (s *JWTService) Generate(userID uuid.UUID, email, role string) (string, error) {
	issuedAt := s.now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}).SignedString(s.key)
}

// Validate returns the claims of a well-signed, unexpired token from this issuer.
func (s *JWTService) Validate(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) { return s.key, nil })
	if err != nil || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
