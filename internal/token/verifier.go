// Package token turns bearer credentials into principals. Verification here
// is the only path allowed to influence which database a request reaches;
// the hint extractor in this package is explicitly untrusted.
package token

import (
	"context"
	"errors"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Claim names carried by staffdeck access tokens.
const (
	claimTenant = "tid"
	claimRole   = "role"
)

// Principal is a verified identity attached to a request.
type Principal struct {
	Subject    string
	TenantCode string
	Role       string
}

// Verifier validates a raw bearer token and produces a Principal.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Principal, error)
}

var ErrInvalidToken = errors.New("invalid token")

// HS256Verifier validates HMAC-signed tokens issued by the auth collaborator.
type HS256Verifier struct {
	secret []byte
	issuer string
}

// NewHS256 builds a verifier. issuer == "" skips the iss check.
func NewHS256(secret, issuer string) *HS256Verifier {
	return &HS256Verifier{secret: []byte(secret), issuer: issuer}
}

func (v *HS256Verifier) Verify(_ context.Context, raw string) (*Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	tok, err := jwtv5.Parse(raw,
		func(*jwtv5.Token) (any, error) { return v.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" {
		if iss, _ := claims["iss"].(string); iss != v.issuer {
			return nil, ErrInvalidToken
		}
	}

	sub, _ := claims["sub"].(string)
	tid, _ := claims[claimTenant].(string)
	role, _ := claims[claimRole].(string)
	return &Principal{Subject: sub, TenantCode: tid, Role: role}, nil
}
