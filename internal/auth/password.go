package auth

import (
	"golang.org/x/crypto/bcrypt"

	"example.com/abonos/internal/domain"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewUser validates the fields of a new account and hashes its password.
// An empty role means operador.
func NewUser(username, password string, role domain.Role) (domain.User, error) {
	username, err := domain.CleanName("username", username)
	if err != nil {
		return domain.User{}, err
	}
	if role == "" {
		role = domain.RoleOperator
	}
	if !role.Valid() {
		return domain.User{}, domain.Invalid("role", "must be admin or operador")
	}
	if err := domain.ValidatePassword(password); err != nil {
		return domain.User{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{Username: username, PasswordHash: hash, Role: role}, nil
}
