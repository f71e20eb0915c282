// Copyright 2025 Certen Protocol
//
// get_metrics (C9, spec.md §4.7): a point-in-time snapshot of chain
// freshness and gateway backlog, and the hook that keeps the shared
// Prometheus registry's gauges in sync with the same numbers.

package orchestration

import (
	"context"
)

// Metrics is the get_metrics response payload.
type Metrics struct {
	GenUtime     int64 `json:"gen_utime"`
	PendingCount int   `json:"pending_message_count"`
}

// GetMetrics reports the latest chain time C4 has observed and the
// current size of the C3 pending-message backlog.
func (s *Service) GetMetrics(ctx context.Context) (*Metrics, error) {
	m := &Metrics{
		GenUtime:     s.subscriber.CurrentUTime(),
		PendingCount: s.pending.Len(),
	}
	if s.metrics != nil {
		s.metrics.SetGenUtime(m.GenUtime)
		s.metrics.SetPendingMessages(m.PendingCount)
	}
	return m, nil
}
