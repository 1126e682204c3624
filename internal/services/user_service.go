// Package services – UserService
//
// This file implements worker and admin identity. Workers are created on
// their first chat contact and keyed by their chat platform id; admins are
// provisioned explicitly and have no chat id. A concurrent first contact
// for the same chat id is resolved by the unique index: the loser re-reads
// and returns the winner's row.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	"github.com/tbourn/ngday-shift-backend/internal/repo"
)

// UserService manages workers and admins.
type UserService struct {
	DB *gorm.DB
}

// GetOrCreateWorker returns the worker linked to lineID, creating it with
// name when none exists. created reports whether a row was inserted.
//
// Errors:
//   - MissingField for an empty lineID or name.
//   - ErrLineIDTaken when lineID belongs to a non-worker.
func (s *UserService) GetOrCreateWorker(ctx context.Context, lineID, name string) (*domain.User, bool, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "GetOrCreateWorker", trace.WithAttributes(attribute.String("line.id", lineID)))
	defer span.End()

	lineID = strings.TrimSpace(lineID)
	name = strings.TrimSpace(name)
	if lineID == "" {
		return nil, false, MissingField("line_id")
	}
	if name == "" {
		return nil, false, MissingField("name")
	}

	u, err := s.workerByLineID(ctx, lineID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	u = &domain.User{LineID: &lineID, Name: name, Role: domain.RoleWorker}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if repo.IsDuplicate(err) {
			// lost the race against another first contact
			u, err := s.workerByLineID(ctx, lineID)
			return u, false, err
		}
		span.RecordError(err)
		return nil, false, err
	}
	log.Info().Str("worker_id", u.ID).Str("line_id", lineID).Msg("worker registered")
	return u, true, nil
}

func (s *UserService) workerByLineID(ctx context.Context, lineID string) (*domain.User, error) {
	u, err := repo.GetUserByLineID(ctx, s.DB, lineID)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleWorker {
		return nil, ErrLineIDTaken
	}
	return u, nil
}

// ProvisionAdmin creates an admin named name.
func (s *UserService) ProvisionAdmin(ctx context.Context, name string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "ProvisionAdmin")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, MissingField("name")
	}
	u := &domain.User{Name: name, Role: domain.RoleAdmin}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		span.RecordError(err)
		return nil, err
	}
	log.Info().Str("admin_id", u.ID).Msg("admin provisioned")
	return u, nil
}

// Get returns the user with id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, MissingField("user_id")
	}
	u, err := repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ResourceNotFound("user", id)
	}
	return u, err
}

// ListWorkers returns all workers ordered by name.
func (s *UserService) ListWorkers(ctx context.Context) ([]domain.User, error) {
	return repo.ListUsersByRole(ctx, s.DB, domain.RoleWorker)
}
