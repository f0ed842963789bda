// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("RunWithContext() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("hub did not stop after cancel")
		}
	})
	return hub, cancel
}

// waitFor polls cond until it holds or the deadline passes. Hub state changes
// are applied asynchronously on the run loop.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRegisterAndJoinRoom(t *testing.T) {
	hub, _ := startHub(t)

	client := NewClient(hub, nil)
	hub.Register <- client
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.join <- joinRequest{client: client, room: "user-1"}
	waitFor(t, func() bool { return hub.RoomSize("user-1") == 1 })
}

func TestJoinMovesClientBetweenRooms(t *testing.T) {
	hub, _ := startHub(t)

	client := NewClient(hub, nil)
	hub.Register <- client
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.join <- joinRequest{client: client, room: "user-1"}
	waitFor(t, func() bool { return hub.RoomSize("user-1") == 1 })

	hub.join <- joinRequest{client: client, room: "user-2"}
	waitFor(t, func() bool { return hub.RoomSize("user-2") == 1 })
	if hub.RoomSize("user-1") != 0 {
		t.Errorf("client still counted in the old room: %d", hub.RoomSize("user-1"))
	}
}

func TestPublishReachesOnlyRoomMembers(t *testing.T) {
	hub, _ := startHub(t)

	owner := NewClient(hub, nil)
	bystander := NewClient(hub, nil)
	for _, c := range []*Client{owner, bystander} {
		hub.Register <- c
	}
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.join <- joinRequest{client: owner, room: "user-1"}
	hub.join <- joinRequest{client: bystander, room: "user-2"}
	waitFor(t, func() bool { return hub.RoomSize("user-1") == 1 && hub.RoomSize("user-2") == 1 })

	hub.Publish("user-1", EventIncomingCall, map[string]string{"callId": "c1"})

	select {
	case msg := <-owner.send:
		if msg.Type != EventIncomingCall {
			t.Errorf("owner received %q, want incoming-call", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("owner never received the event")
	}

	select {
	case msg := <-bystander.send:
		t.Errorf("bystander received %q, expected nothing", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishOrderWithinRoom(t *testing.T) {
	hub, _ := startHub(t)

	client := NewClient(hub, nil)
	hub.Register <- client
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	hub.join <- joinRequest{client: client, room: "user-1"}
	waitFor(t, func() bool { return hub.RoomSize("user-1") == 1 })

	events := []string{EventIncomingCall, EventCallAccepted, EventCallEnded}
	for _, e := range events {
		hub.Publish("user-1", e, nil)
	}

	for _, want := range events {
		select {
		case msg := <-client.send:
			if msg.Type != want {
				t.Errorf("received %q, want %q", msg.Type, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("never received %q", want)
		}
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub, _ := startHub(t)

	client := NewClient(hub, nil)
	hub.Register <- client
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	hub.join <- joinRequest{client: client, room: "user-1"}
	waitFor(t, func() bool { return hub.RoomSize("user-1") == 1 })

	hub.Unregister <- client
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
	if hub.RoomSize("user-1") != 0 {
		t.Errorf("room still holds the unregistered client: %d", hub.RoomSize("user-1"))
	}

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected the send channel to be closed, got a message")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestShutdownClosesAllClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.RunWithContext(ctx)
	}()

	client := NewClient(hub, nil)
	hub.Register <- client
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop after cancel")
	}

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected the send channel to be closed on shutdown")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel was not closed on shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("clients remain after shutdown: %d", hub.ClientCount())
	}
}
