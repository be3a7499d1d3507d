/**
 * @description
 * Signed email-verification tokens. The token is an HS256 JWT carrying the
 * email as subject with a 24 hour expiry; possession of a valid token is
 * the proof of mailbox ownership.
 */
package app

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

// VerificationTokenTTL bounds how long a verification link stays valid.
const VerificationTokenTTL = 24 * time.Hour

// IssueVerificationToken signs a verification token for the given email.
func IssueVerificationToken(secret, email string, now time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("verification secret not configured")
	}
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(VerificationTokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseVerificationToken validates a token and returns the email it was
// issued for. Expired or tampered tokens surface as validation errors.
func ParseVerificationToken(secret, tokenString string, now time.Time) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return "", &domain.ValidationError{Field: "token", Reason: "verification link is invalid or expired"}
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", &domain.ValidationError{Field: "token", Reason: "verification link is invalid or expired"}
	}
	return claims.Subject, nil
}
