//go:build !race

package auth

import "golang.org/x/crypto/bcrypt"

func defaultHashCost() int {
	return bcrypt.DefaultCost
}
