// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package call

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/qrcall/internal/config"
	"github.com/tomtom215/qrcall/internal/eventbus"
	"github.com/tomtom215/qrcall/internal/logging"
	"github.com/tomtom215/qrcall/internal/metrics"
	"github.com/tomtom215/qrcall/internal/models"
	"github.com/tomtom215/qrcall/internal/store"
)

// Sweeper transitions calls nobody answered within the ring timeout from
// initiated to missed. It implements suture.Service and is safe to restart.
type Sweeper struct {
	store       *store.Store
	publisher   Publisher
	ringTimeout time.Duration
	interval    time.Duration
}

// NewSweeper creates a missed-call sweeper from the calls configuration.
func NewSweeper(st *store.Store, pub Publisher, cfg config.CallsConfig) *Sweeper {
	return &Sweeper{
		store:       st,
		publisher:   pub,
		ringTimeout: cfg.RingTimeout,
		interval:    cfg.SweepInterval,
	}
}

// Serve runs the sweep loop until the context is canceled.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().
		Dur("ring_timeout", s.ringTimeout).
		Dur("interval", s.interval).
		Msg("missed-call sweeper started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("missed-call sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if swept := s.sweep(ctx); swept > 0 {
				logging.Info().Int("swept", swept).Msg("marked unanswered calls as missed")
			}
		}
	}
}

// sweep marks every stale initiated call as missed and returns the count.
// Ringing calls are left alone: a ringing device signals the receiver is
// reachable and may still answer.
func (s *Sweeper) sweep(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-s.ringTimeout)
	stale, err := s.store.ListStaleInitiatedCalls(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("stale call scan failed")
		return 0
	}

	swept := 0
	for _, candidate := range stale {
		now := time.Now().UTC()
		session, err := s.store.UpdateCall(ctx, candidate.CallID, func(call *models.Call) error {
			// Re-check under the transaction: the call may have been
			// answered between the scan and this update.
			if call.Status != models.StatusInitiated || !call.StartTime.Before(cutoff) {
				return ErrInvalidState
			}
			call.Status = models.StatusMissed
			call.EndTime = &now
			call.EndedBy = models.EndedByTimeout
			return nil
		})
		if errors.Is(err, ErrInvalidState) || errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			logging.Error().Err(err).Str("call_id", candidate.CallID).Msg("failed to mark call missed")
			continue
		}

		event := callTransitionEvent{
			CallID:  session.CallID,
			Status:  models.StatusMissed,
			EndedBy: models.EndedByTimeout,
		}
		s.publisher.Publish(session.ReceiverID, eventbus.EventCallEnded, event)
		s.publisher.Publish(callerRoom(session), eventbus.EventCallEnded, event)

		metrics.RecordCallTransition(string(models.StatusMissed))
		swept++
	}
	return swept
}

func (s *Sweeper) String() string {
	return "missed-call-sweeper"
}
