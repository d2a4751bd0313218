package service

import (
	"context"
	"fmt"

	"github.com/vbonduro/washpos/internal/domain"
	"github.com/vbonduro/washpos/internal/store"
)

func (s *POSService) Employees(ctx context.Context) ([]string, error) {
	names, _, err := store.LoadList[string](ctx, s.collections, store.KeyEmployees)
	return names, err
}

func (s *POSService) CreateEmployee(ctx context.Context, creds Credentials, name string) ([]string, error) {
	name = trimmed(name)
	if name == "" {
		return nil, domain.Invalid("Employee name is required")
	}
	return s.admin(ctx, creds, func(token string) error {
		return s.remote.CreateEmployee(ctx, token, name)
	})
}

func (s *POSService) RenameEmployee(ctx context.Context, creds Credentials, oldName, newName string) ([]string, error) {
	newName = trimmed(newName)
	if newName == "" {
		return nil, domain.Invalid("Employee name is required")
	}
	return s.admin(ctx, creds, func(token string) error {
		return s.remote.RenameEmployee(ctx, token, oldName, newName)
	})
}

func (s *POSService) DeleteEmployee(ctx context.Context, creds Credentials, name string) ([]string, error) {
	return s.admin(ctx, creds, func(token string) error {
		return s.remote.DeleteEmployee(ctx, token, name)
	})
}

// admin runs an employee mutation on the server and replaces the local
// list with the server's. Employee changes are never made offline.
func (s *POSService) admin(ctx context.Context, creds Credentials, fn func(token string) error) ([]string, error) {
	if !s.conn.Online() {
		return nil, domain.ErrOffline
	}
	token, err := s.remote.Login(ctx, creds.Username, creds.Password)
	s.conn.Observe(err)
	if err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	err = fn(token)
	s.conn.Observe(err)
	if err != nil {
		return nil, err
	}

	names, err := s.remote.Employees(ctx)
	s.conn.Observe(err)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh employees: %w", err)
	}
	if names == nil {
		names = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = modify(ctx, s.collections, store.KeyEmployees, func([]string) ([]string, error) {
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
