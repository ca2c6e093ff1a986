package models

import (
	"strings"
	"time"
)

type UserType string

const (
	UserTypeResident   UserType = "resident"
	UserTypeAdmin      UserType = "admin"
	UserTypeSuperAdmin UserType = "super_admin"
)

// ParseUserType accepts only the three known roles.
func ParseUserType(s string) (UserType, bool) {
	switch UserType(s) {
	case UserTypeResident, UserTypeAdmin, UserTypeSuperAdmin:
		return UserType(s), true
	}
	return "", false
}

// IsStaff is true for admins and super admins.
func (t UserType) IsStaff() bool {
	return t == UserTypeAdmin || t == UserTypeSuperAdmin
}

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	PasswordHash string    `json:"-"`
	Type         UserType  `json:"type"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateTypeRequest is the body of PUT /users/updateType.
type UpdateTypeRequest struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
}
