package core

import (
	"context"
	"fmt"
	"iter"
)

// UserChangesLimit caps the movements returned for one user.
const UserChangesLimit = 500

// AuditService reads the history written by InventoryService. It never writes.
type AuditService interface {
	// GetHistory returns a product's stock movements and edits merged newest first.
	// A limit of zero or less returns the whole history.
	GetHistory(ctx context.Context, productID int64, limit int) ([]HistoryEvent, error)

	// GetUserChanges returns the most recent stock movements made by a user.
	GetUserChanges(ctx context.Context, userID int64) (*UserChanges, error)
}

type auditService struct {
	store LedgerStore
}

func NewAuditService(store LedgerStore) AuditService {
	return &auditService{store: store}
}

func (s *auditService) GetHistory(ctx context.Context, productID int64, limit int) ([]HistoryEvent, error) {
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	movements, err := s.store.ListMovements(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load movements for product %d: %w", productID, err)
	}
	edits, err := s.store.ListEdits(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edits for product %d: %w", productID, err)
	}

	events := make([]HistoryEvent, 0, len(movements)+len(edits))
	for ev := range MergeHistory(movements, edits) {
		if limit > 0 && len(events) == limit {
			break
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *auditService) GetUserChanges(ctx context.Context, userID int64) (*UserChanges, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	movements, err := s.store.ListUserMovements(ctx, userID, UserChangesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load changes for user %d: %w", userID, err)
	}
	if movements == nil {
		movements = []UserMovement{}
	}
	return &UserChanges{User: *u, Movements: movements}, nil
}

// MergeHistory interleaves two newest-first lists into one newest-first sequence.
// Ties on created_at are broken by the higher id, then stock before edit.
func MergeHistory(movements []StockMovement, edits []ProductEdit) iter.Seq[HistoryEvent] {
	return func(yield func(HistoryEvent) bool) {
		i, j := 0, 0
		for i < len(movements) || j < len(edits) {
			var ev HistoryEvent
			if j == len(edits) || (i < len(movements) && stockFirst(movements[i], edits[j])) {
				ev = stockEvent(movements[i])
				i++
			} else {
				ev = editEvent(edits[j])
				j++
			}
			if !yield(ev) {
				return
			}
		}
	}
}

func stockFirst(m StockMovement, e ProductEdit) bool {
	if !m.CreatedAt.Equal(e.CreatedAt) {
		return m.CreatedAt.After(e.CreatedAt)
	}
	if m.ID != e.ID {
		return m.ID > e.ID
	}
	return true
}

func stockEvent(m StockMovement) HistoryEvent {
	return HistoryEvent{
		Kind:      EventStock,
		ID:        m.ID,
		ProductID: m.ProductID,
		UserID:    m.UserID,
		Username:  m.Username,
		CreatedAt: m.CreatedAt,
		Change:    m.Change,
		Reason:    m.Reason,
		Reference: m.Reference,
	}
}

func editEvent(e ProductEdit) HistoryEvent {
	return HistoryEvent{
		Kind:      EventEdit,
		ID:        e.ID,
		ProductID: e.ProductID,
		UserID:    e.UserID,
		Username:  e.Username,
		CreatedAt: e.CreatedAt,
		Changes:   e.Changes,
	}
}
