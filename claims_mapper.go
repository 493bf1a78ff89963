package auth

// MapClaims converts verified claims into an Identity. Missing optional
// claims map to zero values and Roles is never nil.
func MapClaims(claims *TokenClaims) Identity {
	if claims == nil {
		return Identity{Roles: []string{}}
	}
	return Identity{
		UserID:  claims.UserID,
		Name:    claims.Name,
		Email:   claims.Email,
		Hash:    claims.Hash,
		IsAdmin: claims.IsAdmin,
		Roles:   copyRoles(claims.Roles),
	}
}

// mergeRecord builds an Identity from a freshly fetched record. The record
// is authoritative for every field but roles, which come from the token
// when it carries any.
func mergeRecord(record *IdentityRecord, claims *TokenClaims) Identity {
	roles := record.Roles
	if claims != nil && len(claims.Roles) > 0 {
		roles = claims.Roles
	}
	return Identity{
		UserID:  record.ID,
		Name:    record.Name,
		Email:   record.Email,
		Hash:    record.Hash,
		IsAdmin: record.IsAdmin,
		Roles:   copyRoles(roles),
	}
}

func copyRoles(roles []string) []string {
	out := make([]string, len(roles))
	copy(out, roles)
	return out
}
