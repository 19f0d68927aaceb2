// Package users holds the accounts the development backend signs in.
package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           string    `json:"id"`                     // Unique identifier for the user
	Email        string    `json:"email"`                  // User's email address, also the login name
	DisplayName  string    `json:"display_name,omitempty"` // Name shown on the dashboard
	PasswordHash string    `json:"-"`                      // Hashed version of the user's password - never serialize
	DateJoined   time.Time `json:"date_joined,omitempty"`  // Date and time when the user registered
	LastLogin    time.Time `json:"last_login,omitempty"`   // Last time the user logged in
	Blocked      bool      `json:"blocked,omitempty"`      // Blocked, has the user been blocked from logging in
}

// Profile is the public view of a user returned by the API.
type Profile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

// HashPassword hashes with bcrypt at cost. A cost of 0 uses bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NewUser builds a user with a hashed password.
func NewUser(email, displayName, password string, cost int) (*User, error) {
	hash, err := HashPassword(password, cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		DateJoined:   time.Now().UTC(),
	}, nil
}
