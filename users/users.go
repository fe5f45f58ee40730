package users

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is the storefront role carried on a user profile
type RoleType string

const (
	RoleAdmin RoleType = "admin" // Back-office access
	RoleUser  RoleType = "user"  // Storefront customer
)

// Profile is the user record returned by the storefront auth endpoints.
type Profile struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Role      RoleType `json:"role"`
}

// IsAdmin reports whether the profile carries exactly the admin role.
// Unknown role values are treated as non-admin.
func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Empty reports whether the profile identifies nobody
func (p Profile) Empty() bool {
	return p.ID == 0 && p.Email == ""
}

func (p Profile) DisplayName() string {
	fullName := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if fullName != "" {
		return fullName
	}
	return p.Email
}

// Account is a profile plus its credential, as held by an account repository.
type Account struct {
	Profile
	PasswordHash string `json:"-"` // never serialize
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the account's hash
func (a *Account) CheckPassword(password string) bool {
	return CheckPasswordHash(password, a.PasswordHash)
}
