// Package claims decodes the base64 JSON fragments the login flow deals in: JWT claims
// segments and the B2C transaction-state cookie blob. Tokens are decoded without signature
// verification; the client is the party that received them from the identity provider and
// only needs the expiry bookkeeping.
package claims

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lexusenform/vehicle-remote/pkg/protocol"
)

// Tokens arrive with base64url characters and stripped padding; state cookies use the
// standard alphabet with padding intact. Normalize to one alphabet before decoding.
var base64urlToStd = strings.NewReplacer("-", "+", "_", "/")

// DecodeBase64JSON restores stripped '=' padding, base64-decodes, and JSON-decodes a
// fragment into a map.
func DecodeBase64JSON(data string) (map[string]interface{}, error) {
	if n := len(data) % 4; n != 0 {
		data += strings.Repeat("=", 4-n)
	}
	raw, err := base64.StdEncoding.DecodeString(base64urlToStd.Replace(data))
	if err != nil {
		return nil, &protocol.DecodeError{Err: err}
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &protocol.DecodeError{Err: err}
	}
	return decoded, nil
}

// Parse extracts the claims segment of a JWT.
func Parse(token string) (jwt.MapClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, protocol.ErrTokenFormat
	}
	decoded, err := DecodeBase64JSON(parts[1])
	if err != nil {
		return nil, err
	}
	return jwt.MapClaims(decoded), nil
}

// Expired reports whether now is strictly past the token's exp claim. A token expiring
// exactly now is not expired. No safety buffer is applied here; callers that need one
// adjust now before calling.
func Expired(token string, now time.Time) (bool, error) {
	parsed, err := Parse(token)
	if err != nil {
		return false, err
	}
	exp, err := parsed.GetExpirationTime()
	if err != nil {
		return false, &protocol.DecodeError{Err: err}
	}
	if exp == nil {
		return false, &protocol.DecodeError{Err: fmt.Errorf("token claims carry no exp")}
	}
	return now.After(exp.Time), nil
}
