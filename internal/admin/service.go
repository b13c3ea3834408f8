// Package admin manages the administrator accounts and roles whose
// lifecycle the audit observer records. It is the smallest identity layer
// the audit subsystem needs to host: bcrypt credentials, a handful of CRUD
// operations, and token issuance on login.
package admin

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	dErrors "chronicle/pkg/domain-errors"
)

type User struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	Username  string   `json:"username,omitempty"`
	Firstname string   `json:"firstname,omitempty"`
	Lastname  string   `json:"lastname,omitempty"`
	Roles     []string `json:"roles,omitempty"`

	passwordHash []byte
}

type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

type Service struct {
	mu         sync.RWMutex
	usersByID  map[int64]*User
	rolesByID  map[int64]*Role
	nextUserID int64
	nextRoleID int64
}

func NewService() *Service {
	return &Service{
		usersByID:  map[int64]*User{},
		rolesByID:  map[int64]*Role{},
		nextUserID: 1,
		nextRoleID: 1,
	}
}

// Authenticate verifies credentials and returns the matching user.
func (s *Service) Authenticate(_ context.Context, email, password string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.usersByID {
		if user.Email != email {
			continue
		}
		if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
			break
		}
		u := *user
		return &u, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

func (s *Service) CreateUser(_ context.Context, user User, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.usersByID {
		if existing.Email == user.Email {
			return nil, dErrors.New(dErrors.CodeBadRequest, "email already in use")
		}
	}

	user.ID = s.nextUserID
	s.nextUserID++
	user.passwordHash = hash
	s.usersByID[user.ID] = &user

	u := user
	return &u, nil
}

func (s *Service) UpdateUser(_ context.Context, id int64, update User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByID[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if update.Email != "" {
		user.Email = update.Email
	}
	if update.Username != "" {
		user.Username = update.Username
	}
	if update.Firstname != "" {
		user.Firstname = update.Firstname
	}
	if update.Lastname != "" {
		user.Lastname = update.Lastname
	}
	if update.Roles != nil {
		user.Roles = update.Roles
	}
	u := *user
	return &u, nil
}

func (s *Service) DeleteUsers(_ context.Context, ids []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		if _, ok := s.usersByID[id]; ok {
			delete(s.usersByID, id)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, dErrors.New(dErrors.CodeNotFound, "no matching users")
	}
	return deleted, nil
}

func (s *Service) CreateRole(_ context.Context, role Role) (*Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role.ID = s.nextRoleID
	s.nextRoleID++
	s.rolesByID[role.ID] = &role
	r := role
	return &r, nil
}

func (s *Service) UpdateRole(_ context.Context, id int64, update Role) (*Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.rolesByID[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "role not found")
	}
	if update.Name != "" {
		role.Name = update.Name
	}
	if update.Permissions != nil {
		role.Permissions = update.Permissions
	}
	r := *role
	return &r, nil
}

func (s *Service) DeleteRole(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rolesByID[id]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "role not found")
	}
	delete(s.rolesByID, id)
	return nil
}
