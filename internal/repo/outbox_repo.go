// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the notification outbox: a FIFO of
// chat messages that could not be delivered yet.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
)

// PushOutbox appends a message to the tail of the outbox.
func PushOutbox(ctx context.Context, db *gorm.DB, recipient, text string, retryCount int) error {
	return db.WithContext(ctx).Create(&domain.OutboxMessage{
		Recipient:  recipient,
		Text:       text,
		RetryCount: retryCount,
		CreatedAt:  time.Now().UTC(),
	}).Error
}

// PeekOutbox returns the head of the outbox without removing it, or
// ErrNotFound when it is empty.
func PeekOutbox(ctx context.Context, db *gorm.DB) (*domain.OutboxMessage, error) {
	var msg domain.OutboxMessage
	if err := db.WithContext(ctx).Order("id ASC").First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteOutbox removes the message with id. Deleting a missing id is not an
// error.
func DeleteOutbox(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Delete(&domain.OutboxMessage{}, id).Error
}

// CountOutbox returns the number of queued messages.
func CountOutbox(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.OutboxMessage{}).Count(&n).Error
	return n, err
}
