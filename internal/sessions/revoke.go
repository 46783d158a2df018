package sessions

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RevokeAccessToken blacklists token until its exp claim. Tokens without a
// readable exp are kept for fallback. Already expired tokens are ignored.
func RevokeAccessToken(ctx context.Context, token string, fallback time.Duration) error {
	ttl := fallback
	if exp, err := ParseExpFromJWT(token); err == nil {
		ttl = time.Until(exp)
	}
	if ttl <= 0 {
		return nil
	}
	if err := BlacklistAccessToken(ctx, token, ttl); err != nil {
		return fmt.Errorf("blacklist access token: %w", err)
	}
	return nil
}

// ParseExpFromJWT decodes the JWT payload without verifying it and returns
// the `exp` claim.
func ParseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	payload := parts[1]
	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		// try standard base64 (pad) as a fallback
		b, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return time.Time{}, err
		}
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0), nil
	case json.Number:
		i64, err := vv.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(i64, 0), nil
	}
	return time.Time{}, fmt.Errorf("unsupported exp claim type %T", v)
}
