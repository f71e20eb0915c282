// Copyright 2025 Certen Protocol
//
// Background worker draining New events through the dispatcher on a fixed
// interval. A single pass handles both native and token transaction events.
package callback

import (
	"context"
	"log"
	"time"

	"github.com/tonvault/gateway/internal/database"
)

// Worker polls internal/database for New events and drives them through a
// Dispatcher, advancing event_status on each outcome.
type Worker struct {
	events     *database.EventRepository
	dispatcher *Dispatcher
	interval   time.Duration
	batchSize  int
	logger     *log.Logger
}

func NewWorker(events *database.EventRepository, dispatcher *Dispatcher, interval time.Duration, logger *log.Logger) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Worker{events: events, dispatcher: dispatcher, interval: interval, batchSize: 100, logger: logger}
}

// Run drains events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) {
	nativeEvents, err := w.events.ListNewTransactionEvents(ctx, w.batchSize)
	if err != nil {
		w.logger.Printf("list new transaction events: %v", err)
	}
	for _, e := range nativeEvents {
		payload := Payload{
			ID: e.ID, TransactionID: e.ParentTransactionID, MessageHash: e.MessageHash,
			Account:              AccountPayload{WorkchainID: e.AccountWorkchain, Hex: e.AccountHex},
			TransactionDirection: string(e.TransactionDirection),
			TransactionStatus:    string(e.TransactionStatus),
			EventStatus:          string(e.EventStatus),
			CreatedAt:            e.CreatedAt.UnixMilli(),
			UpdatedAt:            e.UpdatedAt.UnixMilli(),
		}
		if e.BalanceChange.Valid {
			payload.BalanceChange = e.BalanceChange.String
		}
		outcome := w.dispatcher.Dispatch(ctx, e.ServiceID, payload)
		status := database.EventStatusNotified
		if outcome.Err != nil {
			status = database.EventStatusError
			w.logger.Printf("dispatch transaction event %s: %v", e.ID, outcome.Err)
		}
		if err := w.events.MarkTransactionEvent(ctx, e.ID, status); err != nil {
			w.logger.Printf("mark transaction event %s: %v", e.ID, err)
		}
	}

	tokenEvents, err := w.events.ListNewTokenTransactionEvents(ctx, w.batchSize)
	if err != nil {
		w.logger.Printf("list new token transaction events: %v", err)
	}
	for _, e := range tokenEvents {
		payload := Payload{
			ID: e.ID, TransactionID: e.ParentTransactionID, MessageHash: e.MessageHash,
			Account:              AccountPayload{WorkchainID: e.AccountWorkchain, Hex: e.AccountHex},
			RootAddress:          e.RootAddress,
			BalanceChange:        e.Value,
			TransactionDirection: string(e.TransactionDirection),
			TransactionStatus:    string(e.TransactionStatus),
			EventStatus:          string(e.EventStatus),
			CreatedAt:            e.CreatedAt.UnixMilli(),
			UpdatedAt:            e.UpdatedAt.UnixMilli(),
		}
		outcome := w.dispatcher.Dispatch(ctx, e.ServiceID, payload)
		status := database.EventStatusNotified
		if outcome.Err != nil {
			status = database.EventStatusError
			w.logger.Printf("dispatch token transaction event %s: %v", e.ID, outcome.Err)
		}
		if err := w.events.MarkTokenTransactionEvent(ctx, e.ID, status); err != nil {
			w.logger.Printf("mark token transaction event %s: %v", e.ID, err)
		}
	}
}
