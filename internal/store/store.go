// Package store persists users, editais, simulado results and the system configuration.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a record with the same identity already exists.
	ErrConflict = errors.New("already exists")
)

// Repository is the persistence boundary used by the study and admin services.
type Repository interface {
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (User, error)
	// UpdateUser applies mutate to the stored user and saves the result atomically.
	// An error from mutate aborts the update.
	UpdateUser(ctx context.Context, id string, mutate func(*User) error) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// AddXP atomically adds delta to the user's XP and returns the updated user.
	AddXP(ctx context.Context, userID string, delta int) (User, error)

	// SaveEdital inserts or replaces an edital.
	SaveEdital(ctx context.Context, e Edital) error
	GetEdital(ctx context.Context, id string) (Edital, error)
	// UpdateEdital is the read-modify-write counterpart of UpdateUser for editais.
	UpdateEdital(ctx context.Context, id string, mutate func(*Edital) error) (Edital, error)
	// ListEditais returns a user's editais oldest first.
	ListEditais(ctx context.Context, userID string) ([]Edital, error)

	AddSimuladoResult(ctx context.Context, r SimuladoResult) error
	// ListSimuladoResults returns a user's results newest first.
	ListSimuladoResults(ctx context.Context, userID string) ([]SimuladoResult, error)

	// GetConfig returns the saved configuration or DefaultConfig when none was saved.
	GetConfig(ctx context.Context) (SystemConfig, error)
	SaveConfig(ctx context.Context, cfg SystemConfig) error
	UpdateConfig(ctx context.Context, mutate func(*SystemConfig) error) (SystemConfig, error)

	Counts(ctx context.Context) (Counts, error)
}
