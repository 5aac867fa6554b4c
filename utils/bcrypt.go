package utils

import "golang.org/x/crypto/bcrypt"

func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// ComparePassword returns bcrypt.ErrMismatchedHashAndPassword on a
// wrong password; callers map that to a generic login failure.
func ComparePassword(hashed string, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
