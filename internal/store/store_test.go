// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/qrcall/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	})
	return st
}

func newTestCall(callID, callerID, receiverID string) *models.Call {
	now := time.Now().UTC()
	return &models.Call{
		CallID:        callID,
		CallerID:      callerID,
		ReceiverID:    receiverID,
		QRCodeID:      "qr-1",
		ChannelName:   models.ChannelNameFor(callID),
		CallType:      models.CallTypeAudio,
		Status:        models.StatusInitiated,
		AnonymousCall: callerID == "",
		StartTime:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCreateAndGetCall(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	call := newTestCall("c1", "", "owner-1")
	if err := st.CreateCall(ctx, call); err != nil {
		t.Fatalf("CreateCall() failed: %v", err)
	}

	got, err := st.GetCall(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCall() failed: %v", err)
	}
	if got.ReceiverID != "owner-1" || got.Status != models.StatusInitiated {
		t.Errorf("unexpected call: %+v", got)
	}

	if _, err := st.GetCall(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing call, got %v", err)
	}
}

func TestUpdateCallRejectsBadTransition(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.CreateCall(ctx, newTestCall("c1", "", "owner-1")); err != nil {
		t.Fatalf("CreateCall() failed: %v", err)
	}

	wantErr := errors.New("wrong state")
	_, err := st.UpdateCall(ctx, "c1", func(c *models.Call) error {
		if c.Status != models.StatusAnswered {
			return wantErr
		}
		return nil
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected mutate error to propagate, got %v", err)
	}

	// The record is untouched after a rejected mutation.
	got, err := st.GetCall(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCall() failed: %v", err)
	}
	if got.Status != models.StatusInitiated {
		t.Errorf("status changed despite rejected mutation: %s", got.Status)
	}
}

func TestConcurrentCallUpdatesSingleWinner(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.CreateCall(ctx, newTestCall("c1", "", "owner-1")); err != nil {
		t.Fatalf("CreateCall() failed: %v", err)
	}

	transition := func(target models.CallStatus) error {
		_, err := st.UpdateCall(ctx, "c1", func(c *models.Call) error {
			if c.Status != models.StatusInitiated {
				return errors.New("already transitioned")
			}
			c.Status = target
			return nil
		})
		return err
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	targets := []models.CallStatus{models.StatusAnswered, models.StatusRejected}
	for i := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = transition(targets[i])
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning transition, got %d (errors: %v)", winners, results)
	}

	got, err := st.GetCall(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCall() failed: %v", err)
	}
	if got.Status != models.StatusAnswered && got.Status != models.StatusRejected {
		t.Errorf("final status %s is not a transition target", got.Status)
	}
}

func TestListCallsByParticipant(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c1 := newTestCall("c1", "", "owner-1")
	c1.CreatedAt = time.Now().UTC().Add(-time.Hour)
	c2 := newTestCall("c2", "caller-1", "owner-1")
	for _, c := range []*models.Call{c1, c2} {
		if err := st.CreateCall(ctx, c); err != nil {
			t.Fatalf("CreateCall(%s) failed: %v", c.CallID, err)
		}
	}

	calls, err := st.ListCallsByParticipant(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListCallsByParticipant() failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls for owner-1, got %d", len(calls))
	}
	if calls[0].CallID != "c2" {
		t.Errorf("expected newest call first, got %s", calls[0].CallID)
	}

	// Attributed caller sees the call too; anonymous calls are not indexed
	// under any caller.
	callerCalls, err := st.ListCallsByParticipant(ctx, "caller-1")
	if err != nil {
		t.Fatalf("ListCallsByParticipant(caller) failed: %v", err)
	}
	if len(callerCalls) != 1 || callerCalls[0].CallID != "c2" {
		t.Errorf("unexpected caller calls: %+v", callerCalls)
	}
}

func TestListStaleInitiatedCalls(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	stale := newTestCall("old", "", "owner-1")
	stale.StartTime = time.Now().UTC().Add(-5 * time.Minute)
	fresh := newTestCall("new", "", "owner-1")
	answered := newTestCall("done", "", "owner-1")
	answered.StartTime = stale.StartTime
	answered.Status = models.StatusAnswered

	for _, c := range []*models.Call{stale, fresh, answered} {
		if err := st.CreateCall(ctx, c); err != nil {
			t.Fatalf("CreateCall(%s) failed: %v", c.CallID, err)
		}
	}

	got, err := st.ListStaleInitiatedCalls(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ListStaleInitiatedCalls() failed: %v", err)
	}
	if len(got) != 1 || got[0].CallID != "old" {
		t.Errorf("expected only the old initiated call, got %+v", got)
	}
}

func TestUserEmailUniqueness(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	u := &models.User{UserID: "u1", Name: "Alice", Email: "alice@example.com", CreatedAt: now, UpdatedAt: now}
	if err := st.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	dup := &models.User{UserID: "u2", Name: "Mallory", Email: "Alice@Example.com ", CreatedAt: now, UpdatedAt: now}
	if err := st.CreateUser(ctx, dup); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken for duplicate email, got %v", err)
	}

	got, err := st.GetUserByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed: %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("expected u1, got %s", got.UserID)
	}
}

func TestUserCredentialsSurviveStorage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	u := &models.User{
		UserID:       "u1",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$fakehash",
		DeviceTokens: []string{"device-1", "device-2"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	got, err := st.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if got.PasswordHash != "$2a$10$fakehash" {
		t.Errorf("PasswordHash = %q, want the stored hash", got.PasswordHash)
	}
	if len(got.DeviceTokens) != 2 || got.DeviceTokens[0] != "device-1" {
		t.Errorf("DeviceTokens = %v, want both tokens back", got.DeviceTokens)
	}

	byEmail, err := st.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed: %v", err)
	}
	if byEmail.PasswordHash == "" || len(byEmail.DeviceTokens) != 2 {
		t.Errorf("email lookup dropped credentials: %+v", byEmail)
	}

	// Mutations through UpdateUser keep them too.
	updated, err := st.UpdateUser(ctx, "u1", func(user *models.User) error {
		user.DeviceTokens = append(user.DeviceTokens, "device-3")
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}
	if updated.PasswordHash != "$2a$10$fakehash" || len(updated.DeviceTokens) != 3 {
		t.Errorf("update dropped credentials: %+v", updated)
	}
}

func TestQRCodeOwnerIndex(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, id := range []string{"q1", "q2"} {
		qr := &models.QRCode{QRID: id, OwnerID: "owner-1", IsActive: true, CreatedAt: now, UpdatedAt: now}
		now = now.Add(time.Second)
		if err := st.CreateQRCode(ctx, qr); err != nil {
			t.Fatalf("CreateQRCode(%s) failed: %v", id, err)
		}
	}

	codes, err := st.ListQRCodesByOwner(ctx, "owner-1", 10)
	if err != nil {
		t.Fatalf("ListQRCodesByOwner() failed: %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("expected 2 codes, got %d", len(codes))
	}
	if codes[0].QRID != "q2" {
		t.Errorf("expected newest code first, got %s", codes[0].QRID)
	}

	if err := st.DeleteQRCode(ctx, "q1"); err != nil {
		t.Fatalf("DeleteQRCode() failed: %v", err)
	}
	codes, err = st.ListQRCodesByOwner(ctx, "owner-1", 10)
	if err != nil {
		t.Fatalf("ListQRCodesByOwner() after delete failed: %v", err)
	}
	if len(codes) != 1 || codes[0].QRID != "q2" {
		t.Errorf("expected only q2 after delete, got %+v", codes)
	}
}
