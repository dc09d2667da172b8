// Package password wraps credential hashing so callers never touch the
// underlying algorithm directly.
package password

import "golang.org/x/crypto/bcrypt"

// Hash returns a bcrypt hash of the password at the default cost.
func Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks whether a password matches the stored hash.
func Verify(password, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
}
