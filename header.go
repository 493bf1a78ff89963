package auth

import (
	"strings"
)

// AuthScheme is the only scheme accepted in the Authorization header.
const AuthScheme = "Bearer"

// ExtractBearerToken returns the token carried by an Authorization header
// value. An absent or blank header fails with KindMissingHeader, any other
// value that is not "Bearer <token>" fails with KindMissingToken.
func ExtractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", newFailure(KindMissingHeader, msgMissingHeader, nil)
	}

	l := len(AuthScheme)
	if len(header) <= l || !strings.EqualFold(header[:l], AuthScheme) {
		return "", newFailure(KindMissingToken, msgMissingToken, nil)
	}

	// the scheme must be followed by whitespace, "Bearerabc" is not a token
	if header[l] != ' ' && header[l] != '\t' {
		return "", newFailure(KindMissingToken, msgMissingToken, nil)
	}

	token := strings.TrimSpace(header[l:])
	if token == "" {
		return "", newFailure(KindMissingToken, msgMissingToken, nil)
	}
	return token, nil
}
