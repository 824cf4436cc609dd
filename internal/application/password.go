package application

import "golang.org/x/crypto/bcrypt"

// passwordCost is the bcrypt work factor for new hashes. Existing hashes keep
// the cost they were created with.
const passwordCost = 12

// CreatePasswordHash hashes a plaintext password for storage.
func CreatePasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a stored hash against a candidate password.
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
