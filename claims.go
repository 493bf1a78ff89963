package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the claim set of a bearer token. The codec only hands one
// out after signature, issuer, audience and lifetime checks passed.
type TokenClaims struct {
	UserID    int64
	Subject   string
	Name      string
	Email     string
	Hash      string
	IsAdmin   bool
	Roles     []string
	Issuer    string
	Audience  []string
	ID        string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// jwtClaims holds the token payload undecoded. Claims only get a type when
// they are read, so a badly typed claim never masks a signature or expiry
// failure.
type jwtClaims struct {
	raw map[string]json.RawMessage
}

var _ jwt.Claims = (*jwtClaims)(nil)

func (c *jwtClaims) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.raw)
}

func (c *jwtClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.numericDate("exp") }
func (c *jwtClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.numericDate("iat") }
func (c *jwtClaims) GetNotBefore() (*jwt.NumericDate, error)      { return c.numericDate("nbf") }

func (c *jwtClaims) GetIssuer() (string, error) {
	var iss string
	err := c.decode("iss", &iss)
	return iss, err
}

func (c *jwtClaims) GetSubject() (string, error) {
	var sub claimString
	err := c.decode("sub", &sub)
	return string(sub), err
}

func (c *jwtClaims) GetAudience() (jwt.ClaimStrings, error) {
	var aud jwt.ClaimStrings
	err := c.decode("aud", &aud)
	return aud, err
}

// userID resolves the numeric user id, preferring the user_id claim over
// sub. Either claim may be a JSON string or number.
func (c *jwtClaims) userID() (int64, bool) {
	var raw claimString
	if err := c.decode("user_id", &raw); err != nil {
		return 0, false
	}
	if raw == "" {
		sub, err := c.GetSubject()
		if err != nil {
			return 0, false
		}
		raw = claimString(sub)
	}
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// tokenClaims types the payload. It must only run on a verified token.
func (c *jwtClaims) tokenClaims(userID int64) (*TokenClaims, error) {
	out := &TokenClaims{UserID: userID}
	var (
		isAdmin claimBool
		roles   jwt.ClaimStrings
	)

	fields := []struct {
		name string
		dst  any
	}{
		{"sub", (*claimString)(&out.Subject)},
		{"name", &out.Name},
		{"email", &out.Email},
		{"hash", &out.Hash},
		{"is_admin", &isAdmin},
		{"role", &roles},
		{"iss", &out.Issuer},
		{"jti", &out.ID},
	}
	for _, f := range fields {
		if err := c.decode(f.name, f.dst); err != nil {
			return nil, err
		}
	}

	aud, err := c.GetAudience()
	if err != nil {
		return nil, err
	}

	out.IsAdmin = bool(isAdmin)
	out.Audience = append([]string(nil), aud...)
	if len(roles) > 0 {
		out.Roles = append([]string(nil), roles...)
	}

	dates := []struct {
		get func() (*jwt.NumericDate, error)
		dst *time.Time
	}{
		{c.GetIssuedAt, &out.IssuedAt},
		{c.GetNotBefore, &out.NotBefore},
		{c.GetExpirationTime, &out.ExpiresAt},
	}
	for _, d := range dates {
		date, err := d.get()
		if err != nil {
			return nil, err
		}
		if date != nil {
			*d.dst = date.Time
		}
	}
	return out, nil
}

func (c *jwtClaims) lookup(name string) (json.RawMessage, bool) {
	v, ok := c.raw[name]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

// decode leaves dst untouched when the claim is absent or null.
func (c *jwtClaims) decode(name string, dst any) error {
	v, ok := c.lookup(name)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%w: invalid %s claim: %v", jwt.ErrTokenMalformed, name, err)
	}
	return nil
}

func (c *jwtClaims) numericDate(name string) (*jwt.NumericDate, error) {
	if _, ok := c.lookup(name); !ok {
		return nil, nil
	}
	date := new(jwt.NumericDate)
	if err := c.decode(name, date); err != nil {
		return nil, err
	}
	return date, nil
}

// tokenPayload is the wire shape of issued tokens.
type tokenPayload struct {
	jwt.RegisteredClaims
	UID     string           `json:"user_id,omitempty"`
	Name    string           `json:"name,omitempty"`
	Email   string           `json:"email,omitempty"`
	Hash    string           `json:"hash,omitempty"`
	IsAdmin bool             `json:"is_admin,omitempty"`
	Roles   jwt.ClaimStrings `json:"role,omitempty"`
}

func newTokenPayload(tc *TokenClaims) *tokenPayload {
	id := strconv.FormatInt(tc.UserID, 10)
	subject := tc.Subject
	if subject == "" {
		subject = id
	}

	claims := &tokenPayload{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tc.Issuer,
			Subject:  subject,
			Audience: jwt.ClaimStrings(tc.Audience),
			ID:       tc.ID,
		},
		UID:     id,
		Name:    tc.Name,
		Email:   tc.Email,
		Hash:    tc.Hash,
		IsAdmin: tc.IsAdmin,
		Roles:   jwt.ClaimStrings(tc.Roles),
	}
	if !tc.IssuedAt.IsZero() {
		claims.IssuedAt = jwt.NewNumericDate(tc.IssuedAt)
	}
	if !tc.NotBefore.IsZero() {
		claims.NotBefore = jwt.NewNumericDate(tc.NotBefore)
	}
	if !tc.ExpiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(tc.ExpiresAt)
	}
	return claims
}

// claimString accepts either a JSON string or a JSON number.
type claimString string

func (s *claimString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = claimString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("claim must be a string or a number: %w", err)
	}
	*s = claimString(n.String())
	return nil
}

// claimBool accepts a JSON bool, a 0/1 number or a boolean string such as "True".
type claimBool bool

func (b *claimBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	raw := string(data)
	switch {
	case raw == "null":
		*b = false
		return nil
	case len(data) > 0 && data[0] == '"':
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			*b = false
			return nil
		}
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("claim must be a boolean: %w", err)
	}
	*b = claimBool(v)
	return nil
}
