package api

import (
	"net/http"
	"time"

	"barangay-portal/internal/models"
)

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

func (s *Server) registerAccountRoutes() {
	s.handle("POST /signup", s.idempotent(s.signup))
	s.handle("POST /login", s.login)
	s.handle("POST /logout", s.logout)
	s.handle("GET /me", s.me)
	s.handle("GET /users", s.listUsers)
	s.handle("PUT /users/updateType", s.updateUserType)
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var in models.SignupRequest
	if err := readBodyJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.svc.Signup(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, "Account created successfully", u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := readBodyJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, u, err := s.svc.Login(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Signed in", loginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: u})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Logout(r.Context(), bearerToken(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Signed out", nil)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Me(r.Context(), actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", u)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.ListUsers(r.Context(), actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", users)
}

func (s *Server) updateUserType(w http.ResponseWriter, r *http.Request) {
	var in models.UpdateTypeRequest
	if err := readBodyJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.svc.UpdateUserType(r.Context(), actor(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "User role updated", u)
}
