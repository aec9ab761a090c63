package services

import (
	"context"
	"errors"
	"log"

	"github.com/cotarr/collab-auth-sub000/internal/metrics"
	"github.com/cotarr/collab-auth-sub000/internal/models"
	"github.com/cotarr/collab-auth-sub000/internal/store"
	"github.com/cotarr/collab-auth-sub000/internal/validate"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// UserService authenticates interactive users for the login endpoint and
// the password grant.
type UserService struct {
	store   *store.Store
	metrics metrics.Recorder
}

func NewUserService(s *store.Store, m metrics.Recorder) *UserService {
	return &UserService{
		store:   s,
		metrics: m,
	}
}

// Authenticate checks a username/password pair against the stored hash.
// Any failure (no such user, disabled login, wrong password) collapses to
// ErrInvalidCredentials so the response does not reveal which check failed.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[Auth] User lookup failed for user=%s: %v", username, err)
		}
		s.metrics.RecordLogin(false)
		return nil, ErrInvalidCredentials
	}

	if err := validate.ValidateUser(user, password); err != nil {
		s.metrics.RecordLogin(false)
		return nil, ErrInvalidCredentials
	}

	if err := s.store.TouchLastLogin(user.ID); err != nil {
		log.Printf("[Auth] Failed to update last login for user=%s: %v", username, err)
	}

	s.metrics.RecordLogin(true)
	return user, nil
}

// GetUser loads a user by id. Used to resolve the session's user on
// authorization requests.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.store.GetUserByID(id)
}
