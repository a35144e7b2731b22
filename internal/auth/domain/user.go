package domain

import (
	"strings"
	"time"
)

// Well known role names.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string // argon2id PHC string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name the way it is shown in tokens.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) Identity() *Identity {
	return &Identity{
		SubjectID: u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName(),
	}
}

// Identity is what the identity provider vouches for after a credential
// check. It becomes the subject and profile claims of an access token.
type Identity struct {
	SubjectID string
	Username  string
	Email     string
	FullName  string
}

type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Registration is the input for creating a new account.
type Registration struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}
