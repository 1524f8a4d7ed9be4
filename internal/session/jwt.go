package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

// Claims mirrors the access token issued by the hosted auth service.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier turns HS256 access tokens into sessions.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is empty")
	}

	return &Verifier{
		secret: []byte(secret),
		issuer: issuer,
	}, nil
}

// Issue signs an access token for the user. It is used by tests and by the CLI in dev mode.
func (v *Verifier) Issue(user domain.User, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// Verify returns an anonymous session with domain.ErrUnauthenticated for an empty token.
func (v *Verifier) Verify(tokenString string) (Session, error) {
	if tokenString == "" {
		return Anonymous(), domain.ErrUnauthenticated
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Anonymous(), errors.Join(domain.ErrUnauthenticated, fmt.Errorf("parse access token: %w", err))
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Anonymous(), errors.Join(domain.ErrUnauthenticated, fmt.Errorf("invalid access token claims"))
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Anonymous(), errors.Join(domain.ErrUnauthenticated, fmt.Errorf("subject[%s] is not a uuid: %w", claims.Subject, err))
	}

	return New(domain.User{ID: userID, Email: claims.Email}), nil
}
