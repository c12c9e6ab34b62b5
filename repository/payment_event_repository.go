// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/utils"
	"gorm.io/gorm"
)

// PaymentEventRepositoryImpl implements PaymentEventRepository interface
type PaymentEventRepositoryImpl struct {
	*BaseRepository[models.PaymentEvent, models.PaymentEventFilter]
}

// NewPaymentEventRepository creates a new payment event repository
func NewPaymentEventRepository(db *gorm.DB) PaymentEventRepository {
	return &PaymentEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PaymentEvent, models.PaymentEventFilter](db),
	}
}

// ByEventID retrieves a payment event by the provider-assigned event ID
func (r *PaymentEventRepositoryImpl) ByEventID(ctx context.Context, eventID string) (*models.PaymentEvent, error) {
	db := r.getDB(ctx)

	var event models.PaymentEvent
	err := db.Where("event_id = ?", eventID).
		Last(&event).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find payment event by event ID: %w", err)
	}

	return &event, nil
}

// MarkStatus updates the processing status of a stored payment event
func (r *PaymentEventRepositoryImpl) MarkStatus(ctx context.Context, eventID, status string, errMessage *string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	updates := map[string]interface{}{
		"status":       status,
		"processed_at": utils.UTCNow(),
	}
	if errMessage != nil {
		updates["error_message"] = *errMessage
	}

	err = db.Model(&models.PaymentEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
	if err != nil {
		err = fmt.Errorf("failed to mark payment event status: %w", err)
		return err
	}

	return nil
}

// ByFilter retrieves payment events based on filter criteria
func (r *PaymentEventRepositoryImpl) ByFilter(ctx context.Context, filter models.PaymentEventFilter, orderBy string, limit, offset int) ([]*models.PaymentEvent, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PaymentEvent{}), filter)

	// Apply ordering (default to id DESC)
	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var events []*models.PaymentEvent
	err := query.Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find payment events by filter: %w", err)
	}

	return events, nil
}

// Count returns the number of payment events matching the filter
func (r *PaymentEventRepositoryImpl) Count(ctx context.Context, filter models.PaymentEventFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PaymentEvent{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count payment events: %w", err)
	}

	return count, nil
}

// Exists checks if any payment event matching the filter exists
func (r *PaymentEventRepositoryImpl) Exists(ctx context.Context, filter models.PaymentEventFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *PaymentEventRepositoryImpl) applyFilter(query *gorm.DB, filter models.PaymentEventFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.EventID != nil {
		query = query.Where("event_id = ?", *filter.EventID)
	}

	if filter.EventType != nil {
		query = query.Where("event_type = ?", *filter.EventType)
	}

	if filter.CustomerEmail != nil {
		query = query.Where("customer_email = ?", *filter.CustomerEmail)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.ReceivedAfter != nil {
		query = query.Where("received_at >= ?", *filter.ReceivedAfter)
	}

	if filter.ReceivedBefore != nil {
		query = query.Where("received_at <= ?", *filter.ReceivedBefore)
	}

	return query
}
