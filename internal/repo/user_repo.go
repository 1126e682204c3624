// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// Error semantics:
//   - Lookups return ErrNotFound when no row matches.
//   - A second user with the same line id violates ux_users_line_id and the
//     raw DB error is returned (see IsDuplicate).
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// CreateUser inserts u, assigning a UUID when u.ID is empty.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(u).Error
}

// GetUser fetches a user by primary key.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByLineID fetches the user linked to a chat platform id.
func GetUserByLineID(ctx context.Context, db *gorm.DB, lineID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "line_id = ?", lineID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUsersByIDs returns the users among ids that exist, keyed by id.
func GetUsersByIDs(ctx context.Context, db *gorm.DB, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = u
	}
	return out, nil
}

// ListUsersByRole returns all users with the given role ordered by name.
func ListUsersByRole(ctx context.Context, db *gorm.DB, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where("role = ?", role).
		Order("name_key ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListWorkersWithoutRequests returns workers that have no request of any
// status dated within [from, to].
func ListWorkersWithoutRequests(ctx context.Context, db *gorm.DB, from, to domain.Date) ([]domain.User, error) {
	sub := db.Model(&domain.Request{}).
		Select("worker_id").
		Where("request_date >= ? AND request_date <= ?", from, to)

	var out []domain.User
	err := db.WithContext(ctx).
		Where("role = ?", domain.RoleWorker).
		Where("id NOT IN (?)", sub).
		Order("name_key ASC, id ASC").
		Find(&out).Error
	return out, err
}
