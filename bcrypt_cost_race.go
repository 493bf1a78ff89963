//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// race builds are slow enough that the default cost times out test suites
func defaultHashCost() int {
	return bcrypt.MinCost
}
