package models

import "time"

// Session is a server-issued login, stored in Redis under its token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Role      UserType  `json:"role"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
