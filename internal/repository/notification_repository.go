package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

// NotificationRepository persists alert rows for downstream delivery.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository instantiates a notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts one notification row, assigning an ID when absent.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO notifications (id, recipient_id, recipient_type, title, message, priority, related_to, created_at)
		VALUES (:id, :recipient_id, :recipient_type, :title, :message, :priority, :related_to, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}
