// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package call implements the call lifecycle: a scan of an active QR code
// creates a session in the initiated state, the receiver answers or rejects
// it, either side ends it, and a background sweeper times out calls nobody
// answered.
//
// State transitions are serialized through the store's conditional update:
// when two operations race on the same call, exactly one commits and the
// other observes the committed state and fails with ErrInvalidState or
// ErrAlreadyTerminal.
package call

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/qrcall/internal/eventbus"
	"github.com/tomtom215/qrcall/internal/logging"
	"github.com/tomtom215/qrcall/internal/metrics"
	"github.com/tomtom215/qrcall/internal/models"
	"github.com/tomtom215/qrcall/internal/qr"
	"github.com/tomtom215/qrcall/internal/store"
	"github.com/tomtom215/qrcall/internal/token"
)

// Issuer mints channel capability tokens for call participants.
type Issuer interface {
	AppID() string
	Issue(channel, identity string, role token.Role, ttl time.Duration) (string, error)
}

// Publisher delivers call lifecycle events to participant rooms.
type Publisher interface {
	Publish(room, eventType string, data interface{})
}

// Dispatcher sends best-effort push notifications to device tokens.
type Dispatcher interface {
	Send(ctx context.Context, tokens []string, payload models.PushPayload) models.DispatchResult
}

// Coordinator owns all call state transitions. It is safe for concurrent
// use; conflicting transitions on one call serialize through the store.
type Coordinator struct {
	store      *store.Store
	qr         *qr.Service
	issuer     Issuer
	publisher  Publisher
	dispatcher Dispatcher
}

// NewCoordinator wires the call lifecycle coordinator.
func NewCoordinator(st *store.Store, qrs *qr.Service, issuer Issuer, pub Publisher, disp Dispatcher) *Coordinator {
	return &Coordinator{
		store:      st,
		qr:         qrs,
		issuer:     issuer,
		publisher:  pub,
		dispatcher: disp,
	}
}

// InitiateResult is everything a caller needs to join the media channel and
// wait for the receiver.
type InitiateResult struct {
	CallID      string               `json:"callId"`
	CallerUID   string               `json:"callerUid"`
	ChannelName string               `json:"channelName"`
	Token       string               `json:"token"`
	AppID       string               `json:"appId"`
	Receiver    models.PublicProfile `json:"receiver"`
	Message     string               `json:"message"`
	Push        models.DispatchResult `json:"pushStatus"`
}

// AnswerResult is everything the receiver needs to join the media channel.
type AnswerResult struct {
	CallID      string               `json:"callId"`
	ChannelName string               `json:"channelName"`
	Token       string               `json:"token"`
	AppID       string               `json:"appId"`
	CallerInfo  models.PublicProfile `json:"callerInfo"`
}

// CallRecord is a call joined with display profiles for both participants.
// Unknown accounts render as the "Unknown" placeholder, anonymous callers
// under their self-reported name.
type CallRecord struct {
	*models.Call
	Caller   models.PublicProfile `json:"caller"`
	Receiver models.PublicProfile `json:"receiver"`
}

// incomingCallEvent is the payload published to the receiver's room when a
// call is initiated. Token is the receiver's channel credential, minted at
// initiate so the receiver can join straight from the notification.
type incomingCallEvent struct {
	CallID      string               `json:"callId"`
	ChannelName string               `json:"channelName"`
	CallType    models.CallType      `json:"callType"`
	CallerInfo  models.PublicProfile `json:"callerInfo"`
	Anonymous   bool                 `json:"anonymousCall"`
	Token       string               `json:"token"`
	AppID       string               `json:"appId"`
}

// callTransitionEvent is the payload for accepted/rejected/ended events.
type callTransitionEvent struct {
	CallID  string            `json:"callId"`
	Status  models.CallStatus `json:"status"`
	EndedBy models.EndedBy    `json:"endedBy,omitempty"`
}

// Initiate starts a call against the QR code qrID. callerUserID is empty
// for anonymous scan callers; info carries their self-reported metadata.
// The receiver is notified over the event bus and, best-effort, by push.
func (c *Coordinator) Initiate(ctx context.Context, qrID string, callType models.CallType, callerUserID string, info *models.CallerInfo) (*InitiateResult, error) {
	code, err := c.qr.Get(ctx, qrID)
	if errors.Is(err, qr.ErrNotFound) {
		return nil, ErrNotFound
	}
	if errors.Is(err, qr.ErrExpired) {
		return nil, ErrExpired
	}
	if err != nil {
		return nil, err
	}

	c.qr.RecordScan(ctx, qrID)

	callID := uuid.NewString()
	channel := models.ChannelNameFor(callID)
	anonymous := callerUserID == ""

	var callerUID string
	if anonymous {
		callerUID = models.CallerUIDFor(callID)
		if info == nil {
			info = models.DefaultAnonymousCallerInfo()
		}
	} else {
		callerUID = models.ReceiverUIDFor(callerUserID)
		if info == nil {
			info = &models.CallerInfo{Kind: models.CallerKindRegistered}
		}
	}

	now := time.Now().UTC()
	session := &models.Call{
		CallID:        callID,
		CallerID:      callerUserID,
		ReceiverID:    code.OwnerID,
		QRCodeID:      qrID,
		ChannelName:   channel,
		CallType:      callType,
		Status:        models.StatusInitiated,
		CallerInfo:    info,
		AnonymousCall: anonymous,
		StartTime:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := c.store.CreateCall(ctx, session); err != nil {
		return nil, fmt.Errorf("persist call: %w", err)
	}

	callerToken, err := c.issuer.Issue(channel, callerUID, token.RolePublisher, 0)
	if err != nil {
		return nil, fmt.Errorf("issue caller token: %w", err)
	}
	receiverToken, err := c.issuer.Issue(channel, models.ReceiverUIDFor(code.OwnerID), token.RolePublisher, 0)
	if err != nil {
		return nil, fmt.Errorf("issue receiver token: %w", err)
	}

	receiverProfile := c.profileFor(ctx, code.OwnerID)
	callerProfile := c.callerProfile(ctx, session)

	c.publisher.Publish(code.OwnerID, eventbus.EventIncomingCall, incomingCallEvent{
		CallID:      callID,
		ChannelName: channel,
		CallType:    callType,
		CallerInfo:  callerProfile,
		Anonymous:   anonymous,
		Token:       receiverToken,
		AppID:       c.issuer.AppID(),
	})

	push := c.notifyReceiver(ctx, session, callerProfile, receiverToken)

	metrics.RecordCallInitiated(string(callType), anonymous)
	logging.Info().
		Str("call_id", callID).
		Str("qr_id", qrID).
		Str("receiver_id", code.OwnerID).
		Bool("anonymous", anonymous).
		Msg("call initiated")

	return &InitiateResult{
		CallID:      callID,
		CallerUID:   callerUID,
		ChannelName: channel,
		Token:       callerToken,
		AppID:       c.issuer.AppID(),
		Receiver:    receiverProfile,
		Message:     fmt.Sprintf("Calling %s...", receiverProfile.Name),
		Push:        push,
	}, nil
}

// Ring marks the call as ringing on the receiver's device. Only the
// receiver may signal it, and only from the initiated state.
func (c *Coordinator) Ring(ctx context.Context, callID, userID string) (*models.Call, error) {
	session, err := c.transition(ctx, callID, func(call *models.Call) error {
		if call.ReceiverID != userID {
			return ErrForbidden
		}
		if call.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}
		if call.Status != models.StatusInitiated {
			return ErrInvalidState
		}
		call.Status = models.StatusRinging
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordCallTransition(string(models.StatusRinging))
	return session, nil
}

// Answer accepts a call. Only the receiver may answer, and only while the
// call is initiated or ringing. The caller's room is notified and the
// receiver gets a fresh channel token.
func (c *Coordinator) Answer(ctx context.Context, callID, userID string) (*AnswerResult, error) {
	now := time.Now().UTC()
	session, err := c.transition(ctx, callID, func(call *models.Call) error {
		if call.ReceiverID != userID {
			return ErrForbidden
		}
		if call.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}
		if call.Status != models.StatusInitiated && call.Status != models.StatusRinging {
			return ErrInvalidState
		}
		call.Status = models.StatusAnswered
		call.AnsweredAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	receiverToken, err := c.issuer.Issue(session.ChannelName, models.ReceiverUIDFor(userID), token.RolePublisher, 0)
	if err != nil {
		return nil, fmt.Errorf("issue receiver token: %w", err)
	}

	c.publisher.Publish(callerRoom(session), eventbus.EventCallAccepted, callTransitionEvent{
		CallID: callID,
		Status: models.StatusAnswered,
	})

	metrics.RecordCallTransition(string(models.StatusAnswered))
	logging.Info().Str("call_id", callID).Msg("call answered")

	return &AnswerResult{
		CallID:      callID,
		ChannelName: session.ChannelName,
		Token:       receiverToken,
		AppID:       c.issuer.AppID(),
		CallerInfo:  c.callerProfile(ctx, session),
	}, nil
}

// Reject declines a call. Only the receiver may reject, and only while the
// call is initiated or ringing.
func (c *Coordinator) Reject(ctx context.Context, callID, userID string) (*models.Call, error) {
	now := time.Now().UTC()
	session, err := c.transition(ctx, callID, func(call *models.Call) error {
		if call.ReceiverID != userID {
			return ErrForbidden
		}
		if call.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}
		if call.Status != models.StatusInitiated && call.Status != models.StatusRinging {
			return ErrInvalidState
		}
		call.Status = models.StatusRejected
		call.EndTime = &now
		call.EndedBy = models.EndedByReceiver
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.publisher.Publish(callerRoom(session), eventbus.EventCallRejected, callTransitionEvent{
		CallID:  callID,
		Status:  models.StatusRejected,
		EndedBy: models.EndedByReceiver,
	})

	metrics.RecordCallTransition(string(models.StatusRejected))
	logging.Info().Str("call_id", callID).Msg("call rejected")
	return session, nil
}

// End terminates a call from any live state. Either participant may end;
// actor is the receiver's user ID or the caller's identity (user ID for
// attributed calls, the anonymous caller UID otherwise). duration is the
// caller-reported call length in seconds; when absent the server derives it
// from AnsweredAt. A call that is already terminal fails with
// ErrAlreadyTerminal and keeps the first writer's EndTime and Duration.
func (c *Coordinator) End(ctx context.Context, callID, actor string, duration int64) (*models.Call, error) {
	current, err := c.store.GetCall(ctx, callID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	endedBy, ok := endAttribution(current, actor)
	if !ok {
		return nil, ErrForbidden
	}
	if current.Status.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	now := time.Now().UTC()
	session, err := c.transition(ctx, callID, func(call *models.Call) error {
		if call.Status.IsTerminal() {
			// Lost a race against another terminal transition.
			return ErrAlreadyTerminal
		}
		call.Status = models.StatusEnded
		call.EndTime = &now
		call.EndedBy = endedBy
		call.Duration = duration
		if call.Duration <= 0 && call.AnsweredAt != nil {
			call.Duration = int64(now.Sub(*call.AnsweredAt) / time.Second)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Notify the other side.
	event := callTransitionEvent{CallID: callID, Status: models.StatusEnded, EndedBy: endedBy}
	if endedBy == models.EndedByCaller {
		c.publisher.Publish(session.ReceiverID, eventbus.EventCallEnded, event)
	} else {
		c.publisher.Publish(callerRoom(session), eventbus.EventCallEnded, event)
	}

	metrics.RecordCallTransition(string(models.StatusEnded))
	if session.Duration > 0 {
		metrics.CallDuration.Observe(float64(session.Duration))
	}
	logging.Info().
		Str("call_id", callID).
		Str("ended_by", string(endedBy)).
		Int64("duration_s", session.Duration).
		Msg("call ended")
	return session, nil
}

// Status returns the lifecycle status of a call without participant gating.
// Anonymous callers poll it while waiting for the receiver.
func (c *Coordinator) Status(ctx context.Context, callID string) (*models.Call, error) {
	session, err := c.store.GetCall(ctx, callID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return session, err
}

// Detail returns the full call record to a participant, with both
// participants' display profiles joined in.
func (c *Coordinator) Detail(ctx context.Context, callID, actor string) (*CallRecord, error) {
	session, err := c.store.GetCall(ctx, callID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !isParticipant(session, actor) {
		return nil, ErrForbidden
	}
	return c.joinProfiles(ctx, session, nil), nil
}

// History lists the user's calls, newest first, capped at limit, with
// participant profiles joined in.
func (c *Coordinator) History(ctx context.Context, userID string, limit int) ([]*CallRecord, error) {
	calls, err := c.store.ListCallsByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(calls) > limit {
		calls = calls[:limit]
	}

	// One profile lookup per distinct account across the page.
	profiles := make(map[string]models.PublicProfile)
	records := make([]*CallRecord, 0, len(calls))
	for _, session := range calls {
		records = append(records, c.joinProfiles(ctx, session, profiles))
	}
	return records, nil
}

// joinProfiles builds the participant-facing projection of a call. cache, if
// non-nil, memoizes account profile lookups across calls.
func (c *Coordinator) joinProfiles(ctx context.Context, session *models.Call, cache map[string]models.PublicProfile) *CallRecord {
	lookup := func(userID string) models.PublicProfile {
		if cache != nil {
			if p, ok := cache[userID]; ok {
				return p
			}
		}
		p := c.profileFor(ctx, userID)
		if cache != nil {
			cache[userID] = p
		}
		return p
	}

	caller := models.AnonymousProfile(session.CallerInfo)
	if !session.AnonymousCall {
		caller = lookup(session.CallerID)
	}
	return &CallRecord{
		Call:     session,
		Caller:   caller,
		Receiver: lookup(session.ReceiverID),
	}
}

// transition applies a conditional state change, mapping store errors to
// package errors.
func (c *Coordinator) transition(ctx context.Context, callID string, mutate func(*models.Call) error) (*models.Call, error) {
	session, err := c.store.UpdateCall(ctx, callID, mutate)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// notifyReceiver pushes an incoming-call notification to all of the
// receiver's devices, carrying the receiver's channel token so the device
// can join directly. Failures degrade, never fail the initiate.
func (c *Coordinator) notifyReceiver(ctx context.Context, session *models.Call, caller models.PublicProfile, receiverToken string) models.DispatchResult {
	user, err := c.store.GetUser(ctx, session.ReceiverID)
	if err != nil {
		logging.Warn().Err(err).Str("receiver_id", session.ReceiverID).Msg("receiver lookup for push failed")
		return models.Degraded("receiver lookup failed")
	}

	result := c.dispatcher.Send(ctx, user.DeviceTokens, models.PushPayload{
		Title: fmt.Sprintf("Incoming %s call", session.CallType),
		Body:  fmt.Sprintf("%s is calling you", caller.Name),
		Data: map[string]string{
			"type":        "incoming_call",
			"callId":      session.CallID,
			"channelName": session.ChannelName,
			"callType":    string(session.CallType),
			"token":       receiverToken,
		},
	})
	metrics.PushDispatches.WithLabelValues(string(result.Status)).Inc()
	return result
}

// profileFor resolves a user's public profile, falling back to a
// placeholder when the account is missing.
func (c *Coordinator) profileFor(ctx context.Context, userID string) models.PublicProfile {
	user, err := c.store.GetUser(ctx, userID)
	if err != nil {
		return models.UnknownProfile()
	}
	return user.Profile()
}

// callerProfile resolves the display profile of a call's caller.
func (c *Coordinator) callerProfile(ctx context.Context, session *models.Call) models.PublicProfile {
	if session.AnonymousCall {
		return models.AnonymousProfile(session.CallerInfo)
	}
	return c.profileFor(ctx, session.CallerID)
}

// callerRoom is the event bus room the caller listens on: their user ID for
// attributed calls, the derived anonymous UID otherwise.
func callerRoom(session *models.Call) string {
	if session.AnonymousCall {
		return models.CallerUIDFor(session.CallID)
	}
	return session.CallerID
}

// isParticipant reports whether actor is the receiver or the caller.
func isParticipant(session *models.Call, actor string) bool {
	if actor == "" {
		return false
	}
	if actor == session.ReceiverID {
		return true
	}
	if session.AnonymousCall {
		return actor == models.CallerUIDFor(session.CallID)
	}
	return actor == session.CallerID
}

// endAttribution maps the acting identity to an EndedBy value.
func endAttribution(session *models.Call, actor string) (models.EndedBy, bool) {
	switch {
	case actor == models.EndedBySystemActor:
		return models.EndedBySystem, true
	case actor == session.ReceiverID:
		return models.EndedByReceiver, true
	case session.AnonymousCall && actor == models.CallerUIDFor(session.CallID):
		return models.EndedByCaller, true
	case !session.AnonymousCall && actor == session.CallerID:
		return models.EndedByCaller, true
	default:
		return "", false
	}
}
