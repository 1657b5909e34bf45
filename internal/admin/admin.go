// Package admin backs the admin console: dashboard stats, user moderation and
// the feature-flag configuration.
package admin

import (
	"context"
	"fmt"
	"strings"

	"studyprep/internal/guard"
	"studyprep/internal/store"
)

// StatsSource reports AI call outcomes. *guard.Stats satisfies it.
type StatsSource interface {
	Snapshot() guard.Snapshot
}

// Service implements the admin operations.
type Service struct {
	repo  store.Repository
	stats StatsSource
}

// NewService builds an admin service. stats may be nil when AI metrics are not collected.
func NewService(repo store.Repository, stats StatsSource) *Service {
	return &Service{repo: repo, stats: stats}
}

// Stats is the dashboard summary.
type Stats struct {
	store.Counts
	AICalls     int64                           `json:"totalAICalls"`
	AIFallbacks int64                           `json:"aiFallbacks"`
	Outcomes    map[guard.Outcome]int64         `json:"aiOutcomes"`
	Operations  map[string]guard.OperationStats `json:"aiOperations"`
}

// Stats aggregates persisted counts with the AI call counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("admin stats: %w", err)
	}

	out := Stats{
		Counts:     counts,
		Outcomes:   map[guard.Outcome]int64{},
		Operations: map[string]guard.OperationStats{},
	}
	if s.stats != nil {
		snap := s.stats.Snapshot()
		out.AICalls = snap.Calls
		out.AIFallbacks = snap.Fallbacks
		out.Outcomes = snap.Outcomes
		out.Operations = snap.Operations
	}
	return out, nil
}

// Users lists accounts, optionally filtered by a case-insensitive name or email substring.
func (s *Service) Users(ctx context.Context, query string) ([]store.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return users, nil
	}

	out := make([]store.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), query) || strings.Contains(strings.ToLower(u.Email), query) {
			out = append(out, u)
		}
	}
	return out, nil
}

// SetBanned bans or reinstates a user.
func (s *Service) SetBanned(ctx context.Context, userID string, banned bool) (store.User, error) {
	return s.repo.UpdateUser(ctx, userID, func(u *store.User) error {
		u.Banned = banned
		return nil
	})
}

// Promote grants the admin role.
func (s *Service) Promote(ctx context.Context, userID string) (store.User, error) {
	return s.repo.UpdateUser(ctx, userID, func(u *store.User) error {
		u.Role = store.RoleAdmin
		return nil
	})
}

// Config returns the current system configuration.
func (s *Service) Config(ctx context.Context) (store.SystemConfig, error) {
	return s.repo.GetConfig(ctx)
}

// FeaturesPatch toggles individual features. Nil fields are left unchanged.
type FeaturesPatch struct {
	English *bool `json:"english"`
	Duels   *bool `json:"duels"`
	TutorIA *bool `json:"tutorIA"`
	Store   *bool `json:"store"`
}

// ConfigPatch is a partial update of the system configuration.
type ConfigPatch struct {
	AppName        *string        `json:"appName" validate:"omitempty,min=1,max=80"`
	WelcomeMessage *string        `json:"welcomeMessage" validate:"omitempty,max=280"`
	MonthlyPrice   *float64       `json:"monthlyPrice" validate:"omitempty,gte=0"`
	PrimaryColor   *string        `json:"primaryColor" validate:"omitempty,hexcolor"`
	Features       *FeaturesPatch `json:"features"`
}

// UpdateConfig merges patch into the stored configuration.
func (s *Service) UpdateConfig(ctx context.Context, patch ConfigPatch) (store.SystemConfig, error) {
	return s.repo.UpdateConfig(ctx, func(cfg *store.SystemConfig) error {
		setIf(&cfg.AppName, patch.AppName)
		setIf(&cfg.WelcomeMessage, patch.WelcomeMessage)
		setIf(&cfg.MonthlyPrice, patch.MonthlyPrice)
		setIf(&cfg.PrimaryColor, patch.PrimaryColor)
		if f := patch.Features; f != nil {
			setIf(&cfg.Features.English, f.English)
			setIf(&cfg.Features.Duels, f.Duels)
			setIf(&cfg.Features.TutorIA, f.TutorIA)
			setIf(&cfg.Features.Store, f.Store)
		}
		return nil
	})
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
