// Copyright 2025 Certen Protocol
//
// Manual event-status advancement (C9, spec.md §4.7): mark_event sets one
// event to a given status; mark_all_events moves every event of the service
// that is still New to a given status and leaves events in other statuses
// (including Error) unchanged.

package orchestration

import (
	"context"

	"github.com/google/uuid"

	"github.com/tonvault/gateway/internal/apierr"
	"github.com/tonvault/gateway/internal/database"
)

// GetEventByID fetches a single native transaction event.
func (s *Service) GetEventByID(ctx context.Context, id uuid.UUID) (*database.TransactionEvent, error) {
	event, err := s.repos.Events.GetTransactionEvent(ctx, id)
	if err == database.ErrEventNotFound {
		return nil, apierr.NotFound("event not found")
	}
	if err != nil {
		return nil, apierr.Internal("get event", err)
	}
	return event, nil
}

// MarkEvent transitions a single native transaction event to status.
func (s *Service) MarkEvent(ctx context.Context, id uuid.UUID, status database.EventStatus) error {
	if _, err := s.repos.Events.GetTransactionEvent(ctx, id); err != nil {
		if err == database.ErrEventNotFound {
			return apierr.NotFound("event not found")
		}
		return apierr.Internal("get event", err)
	}
	if err := s.repos.Events.MarkTransactionEvent(ctx, id, status); err != nil {
		return apierr.Internal("mark event", err)
	}
	return nil
}

// MarkAllEvents bulk-transitions every New event owned by serviceID to
// status, returning the number of rows affected.
func (s *Service) MarkAllEvents(ctx context.Context, serviceID uuid.UUID, status database.EventStatus) (int64, error) {
	n, err := s.repos.Events.MarkAllTransactionEvents(ctx, serviceID, status)
	if err != nil {
		return 0, apierr.Internal("mark all events", err)
	}
	return n, nil
}

// ListNewEvents returns native transaction events still awaiting callback
// dispatch, for operator inspection via the events route.
func (s *Service) ListNewEvents(ctx context.Context, limit int) ([]*database.TransactionEvent, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	out, err := s.repos.Events.ListNewTransactionEvents(ctx, limit)
	if err != nil {
		return nil, apierr.Internal("list events", err)
	}
	return out, nil
}

// ListNewTokenEvents returns token transaction events still awaiting
// callback dispatch, for operator inspection via the tokens/events route.
func (s *Service) ListNewTokenEvents(ctx context.Context, limit int) ([]*database.TokenTransactionEvent, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	out, err := s.repos.Events.ListNewTokenTransactionEvents(ctx, limit)
	if err != nil {
		return nil, apierr.Internal("list token events", err)
	}
	return out, nil
}

// MarkTokenEvent transitions a single token transaction event to status.
func (s *Service) MarkTokenEvent(ctx context.Context, id uuid.UUID, status database.EventStatus) error {
	if _, err := s.repos.Events.GetTokenTransactionEvent(ctx, id); err != nil {
		if err == database.ErrEventNotFound {
			return apierr.NotFound("token event not found")
		}
		return apierr.Internal("get token event", err)
	}
	if err := s.repos.Events.MarkTokenTransactionEvent(ctx, id, status); err != nil {
		return apierr.Internal("mark token event", err)
	}
	return nil
}
