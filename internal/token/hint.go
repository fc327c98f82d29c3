package token

import (
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// TenantHint decodes the payload of a bearer credential WITHOUT verifying
// its signature and returns the tenant claim, or "" when absent.
//
// The result is untrusted input, fit only for log enrichment and diagnostics
// on paths where the verified principal is not yet available. It must never
// select a database handle; only the verified-principal path does that.
func TenantHint(authorization string) string {
	raw := strings.TrimSpace(authorization)
	if l := strings.ToLower(raw); strings.HasPrefix(l, "bearer ") {
		raw = strings.TrimSpace(raw[len("bearer "):])
	}
	if raw == "" {
		return ""
	}

	tok, _, err := jwtv5.NewParser().ParseUnverified(raw, jwtv5.MapClaims{})
	if err != nil {
		return ""
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return ""
	}
	tid, _ := claims[claimTenant].(string)
	return tid
}
