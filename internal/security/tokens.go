package security

import (
	"errors"
	"fmt"
	"time"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is what a verified access token says about its bearer.
type Claims struct {
	UserID string
	Role   domain.Role
}

// JWT issues and verifies HS256 access tokens.
type JWT struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewJWT(secret, issuer, audience string, ttl time.Duration) *JWT {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWT{secret: []byte(secret), issuer: issuer, audience: audience, ttl: ttl, now: time.Now}
}

func (j *JWT) Issue(u *domain.User) (usecase.Token, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"iss":  j.issuer,
		"sub":  u.ID,
		"aud":  j.audience,
		"iat":  now.Unix(),
		"exp":  now.Add(j.ttl).Unix(),
		"role": string(u.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return usecase.Token{}, fmt.Errorf("sign token: %w", err)
	}
	return usecase.Token{AccessToken: signed, ExpiresIn: j.ttl}, nil
}

// Parse verifies signature, expiry, issuer and audience.
func (j *JWT) Parse(raw string) (Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.secret, nil
	},
		jwt.WithLeeway(30*time.Second), // small clock skew
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("invalid jwt: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("claims parsing error")
	}
	sub, _ := claims.GetSubject()
	roleStr, _ := claims["role"].(string)
	role, ok := domain.ParseRole(roleStr)
	if sub == "" || !ok {
		return Claims{}, errors.New("token lacks subject or role")
	}
	return Claims{UserID: sub, Role: role}, nil
}

var _ usecase.TokenIssuer = (*JWT)(nil)
