// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/qrcall/internal/auth"
	"github.com/tomtom215/qrcall/internal/call"
	"github.com/tomtom215/qrcall/internal/config"
	"github.com/tomtom215/qrcall/internal/eventbus"
	"github.com/tomtom215/qrcall/internal/notify"
	"github.com/tomtom215/qrcall/internal/qr"
	"github.com/tomtom215/qrcall/internal/ratelimit"
	"github.com/tomtom215/qrcall/internal/store"
	"github.com/tomtom215/qrcall/internal/token"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:      "127.0.0.1",
			Port:      8080,
			Timeout:   10 * time.Second,
			PublicURL: "https://call.example.com",
		},
		Security: config.SecurityConfig{
			JWTSecret:   "0123456789abcdef0123456789abcdef",
			CORSOrigins: []string{"*"},
		},
		RTC: config.RTCConfig{
			AppID:     "test-app",
			AppSecret: "test-secret-0123456789abcdef0123",
		},
		Calls: config.CallsConfig{
			RingTimeout:   time.Minute,
			SweepInterval: time.Second,
		},
		RateLimit: config.RateLimitConfig{Disabled: true},
	}
}

// newTestServer wires the full handler stack against an in-memory store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := testConfig()
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	issuer, err := token.New(cfg.RTC)
	if err != nil {
		t.Fatalf("token.New() failed: %v", err)
	}
	jwtManager, err := auth.NewJWTManager(cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager() failed: %v", err)
	}

	hub := eventbus.NewHub()
	dispatcher := notify.New(cfg.Push)
	accounts := auth.NewService(st, jwtManager)
	qrService := qr.NewService(st, cfg.Server.PublicURL)
	coordinator := call.NewCoordinator(st, qrService, issuer, hub, dispatcher)
	limiter := ratelimit.New(cfg.RateLimit, ratelimit.NewMemoryCounter(0))

	handler := NewHandler(cfg, st, coordinator, qrService, accounts, jwtManager, issuer, dispatcher, hub)
	router := NewRouter(handler, limiter)

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// doJSON issues a request against the test server and decodes the envelope.
func doJSON(t *testing.T, method, url, bearer string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response envelope: %v", err)
	}
	return resp.StatusCode, env
}

func unmarshalData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

type sessionData struct {
	User struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Email  string `json:"email"`
	} `json:"user"`
	Token string `json:"token"`
}

func registerUser(t *testing.T, base, name, email string) sessionData {
	t.Helper()
	status, env := doJSON(t, http.MethodPost, base+"/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "hunter2hunter2",
	})
	if status != http.StatusCreated {
		t.Fatalf("register returned %d: %+v", status, env.Error)
	}
	var session sessionData
	unmarshalData(t, env, &session)
	return session
}

type qrData struct {
	Code struct {
		QRID     string `json:"qrId"`
		IsActive bool   `json:"isActive"`
	} `json:"qrCode"`
	URL      string `json:"url"`
	ImageURI string `json:"qrImage"`
}

func generateQR(t *testing.T, base, bearer string) qrData {
	t.Helper()
	status, env := doJSON(t, http.MethodPost, base+"/api/qr/generate", bearer, map[string]string{"name": "Front Door"})
	if status != http.StatusCreated {
		t.Fatalf("generate returned %d: %+v", status, env.Error)
	}
	var gen qrData
	unmarshalData(t, env, &gen)
	return gen
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	session := registerUser(t, srv.URL, "Alice", "alice@example.com")
	if session.Token == "" || session.User.UserID == "" {
		t.Fatalf("incomplete registration session: %+v", session)
	}

	// Duplicate email conflicts.
	status, env := doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "", map[string]string{
		"name": "Mallory", "email": "alice@example.com", "password": "password123",
	})
	if status != http.StatusConflict || env.Error == nil || env.Error.Code != "EMAIL_TAKEN" {
		t.Errorf("duplicate register = %d %+v, want 409 EMAIL_TAKEN", status, env.Error)
	}

	// Login round trip.
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "hunter2hunter2",
	})
	if status != http.StatusOK {
		t.Fatalf("login returned %d: %+v", status, env.Error)
	}

	// Wrong password.
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	if status != http.StatusUnauthorized || env.Error.Code != "INVALID_CREDENTIALS" {
		t.Errorf("bad login = %d %+v, want 401 INVALID_CREDENTIALS", status, env.Error)
	}

	// Profile requires auth.
	status, _ = doJSON(t, http.MethodGet, srv.URL+"/api/auth/profile", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("unauthenticated profile = %d, want 401", status)
	}
	status, env = doJSON(t, http.MethodGet, srv.URL+"/api/auth/profile", session.Token, nil)
	if status != http.StatusOK {
		t.Errorf("profile = %d: %+v", status, env.Error)
	}
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	status, env := doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "", map[string]string{
		"name": "Alice", "email": "not-an-email", "password": "short",
	})
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("invalid register = %d %+v, want 400 VALIDATION_ERROR", status, env.Error)
	}
}

func TestQRLifecycle(t *testing.T) {
	srv := newTestServer(t)
	session := registerUser(t, srv.URL, "Alice", "alice@example.com")

	gen := generateQR(t, srv.URL, session.Token)
	if gen.Code.QRID == "" || !gen.Code.IsActive {
		t.Fatalf("unexpected generated code: %+v", gen.Code)
	}

	// Public resolution names the owner.
	status, env := doJSON(t, http.MethodGet, srv.URL+"/api/qr/"+gen.Code.QRID, "", nil)
	if status != http.StatusOK {
		t.Fatalf("resolve returned %d: %+v", status, env.Error)
	}
	var resolved struct {
		QRID  string `json:"qrId"`
		Owner struct {
			Name string `json:"name"`
		} `json:"owner"`
	}
	unmarshalData(t, env, &resolved)
	if resolved.Owner.Name != "Alice" {
		t.Errorf("resolved owner = %q, want Alice", resolved.Owner.Name)
	}

	// Listing requires auth and includes the code.
	status, env = doJSON(t, http.MethodGet, srv.URL+"/api/qr/user/codes", session.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("code listing returned %d: %+v", status, env.Error)
	}
	var listing struct {
		Count int `json:"count"`
	}
	unmarshalData(t, env, &listing)
	if listing.Count != 1 {
		t.Errorf("code listing count = %d, want 1", listing.Count)
	}

	// Toggling deactivates; a deactivated code resolves like a missing one.
	status, _ = doJSON(t, http.MethodPatch, srv.URL+"/api/qr/"+gen.Code.QRID+"/toggle", session.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("toggle returned %d", status)
	}
	status, env = doJSON(t, http.MethodGet, srv.URL+"/api/qr/"+gen.Code.QRID, "", nil)
	if status != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("resolve toggled = %d %+v, want 404 NOT_FOUND", status, env.Error)
	}

	// Deleting removes the code entirely.
	status, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/qr/"+gen.Code.QRID, session.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete returned %d", status)
	}
	status, env = doJSON(t, http.MethodGet, srv.URL+"/api/qr/"+gen.Code.QRID, "", nil)
	if status != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("resolve deleted = %d %+v, want 404 NOT_FOUND", status, env.Error)
	}
}

type initiateData struct {
	CallID      string `json:"callId"`
	CallerUID   string `json:"callerUid"`
	ChannelName string `json:"channelName"`
	Token       string `json:"token"`
	AppID       string `json:"appId"`
	Receiver    struct {
		Name string `json:"name"`
	} `json:"receiver"`
}

func TestAnonymousCallFlow(t *testing.T) {
	srv := newTestServer(t)
	owner := registerUser(t, srv.URL, "Alice", "alice@example.com")
	gen := generateQR(t, srv.URL, owner.Token)

	// Anonymous scan starts a call.
	status, env := doJSON(t, http.MethodPost, srv.URL+"/api/calls/initiate", "", map[string]interface{}{
		"qrId":       gen.Code.QRID,
		"callerInfo": map[string]string{"name": "Gate Visitor"},
	})
	if status != http.StatusCreated {
		t.Fatalf("initiate returned %d: %+v", status, env.Error)
	}
	var initiated initiateData
	unmarshalData(t, env, &initiated)
	if initiated.Token == "" || initiated.AppID != "test-app" {
		t.Errorf("incomplete initiate result: %+v", initiated)
	}
	if initiated.ChannelName != "call_"+initiated.CallID {
		t.Errorf("channel = %q, want call_%s", initiated.ChannelName, initiated.CallID)
	}
	if initiated.Receiver.Name != "Alice" {
		t.Errorf("receiver = %q, want Alice", initiated.Receiver.Name)
	}

	// Anyone can poll status.
	status, env = doJSON(t, http.MethodGet, srv.URL+"/api/calls/"+initiated.CallID+"/status", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status returned %d: %+v", status, env.Error)
	}
	var polled struct {
		Status string `json:"status"`
	}
	unmarshalData(t, env, &polled)
	if polled.Status != "initiated" {
		t.Errorf("polled status = %q, want initiated", polled.Status)
	}

	// The owner answers and gets channel credentials.
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/calls/"+initiated.CallID+"/answer", owner.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("answer returned %d: %+v", status, env.Error)
	}
	var answered struct {
		Token      string `json:"token"`
		CallerInfo struct {
			Name        string `json:"name"`
			IsAnonymous bool   `json:"isAnonymous"`
		} `json:"callerInfo"`
	}
	unmarshalData(t, env, &answered)
	if answered.Token == "" {
		t.Error("answer returned no token")
	}
	if answered.CallerInfo.Name != "Gate Visitor" || !answered.CallerInfo.IsAnonymous {
		t.Errorf("callerInfo = %+v, want the self-reported anonymous name", answered.CallerInfo)
	}

	// The anonymous caller ends using its caller UID, reporting the talk
	// time; a second end conflicts.
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/calls/"+initiated.CallID+"/end", "", map[string]interface{}{
		"callerUid": initiated.CallerUID,
		"duration":  17,
	})
	if status != http.StatusOK {
		t.Fatalf("end returned %d: %+v", status, env.Error)
	}
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/calls/"+initiated.CallID+"/end", "", map[string]string{
		"callerUid": initiated.CallerUID,
	})
	if status != http.StatusConflict || env.Error.Code != "ALREADY_TERMINAL" {
		t.Errorf("second end = %d %+v, want 409 ALREADY_TERMINAL", status, env.Error)
	}

	status, env = doJSON(t, http.MethodGet, srv.URL+"/api/calls/"+initiated.CallID+"/status", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status returned %d", status)
	}
	var final struct {
		Status   string  `json:"status"`
		EndedBy  string  `json:"endedBy"`
		Duration int64   `json:"duration"`
		EndTime  *string `json:"endTime"`
	}
	unmarshalData(t, env, &final)
	if final.Status != "ended" || final.EndedBy != "caller" {
		t.Errorf("final status = %+v, want ended by caller", final)
	}
	if final.Duration != 17 {
		t.Errorf("final duration = %d, want the reported 17", final.Duration)
	}
	if final.EndTime == nil {
		t.Error("final status omits endTime")
	}
}

func TestCallErrorResponses(t *testing.T) {
	srv := newTestServer(t)
	owner := registerUser(t, srv.URL, "Alice", "alice@example.com")
	intruder := registerUser(t, srv.URL, "Mallory", "mallory@example.com")
	gen := generateQR(t, srv.URL, owner.Token)

	// Unknown QR code.
	status, env := doJSON(t, http.MethodPost, srv.URL+"/api/calls/initiate", "", map[string]string{
		"qrId": "00000000-0000-0000-0000-000000000000",
	})
	if status != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("initiate unknown = %d %+v, want 404 NOT_FOUND", status, env.Error)
	}

	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/calls/initiate", "", map[string]string{
		"qrId": gen.Code.QRID,
	})
	if status != http.StatusCreated {
		t.Fatalf("initiate returned %d: %+v", status, env.Error)
	}
	var initiated initiateData
	unmarshalData(t, env, &initiated)

	// Only the receiver may answer.
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/calls/"+initiated.CallID+"/answer", intruder.Token, nil)
	if status != http.StatusForbidden || env.Error.Code != "FORBIDDEN" {
		t.Errorf("foreign answer = %d %+v, want 403 FORBIDDEN", status, env.Error)
	}

	// Rejecting after the call ended conflicts.
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/calls/"+initiated.CallID+"/end", owner.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("end returned %d", status)
	}
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/calls/"+initiated.CallID+"/reject", owner.Token, nil)
	if status != http.StatusConflict || env.Error.Code != "ALREADY_TERMINAL" {
		t.Errorf("reject ended = %d %+v, want 409 ALREADY_TERMINAL", status, env.Error)
	}

	// Ending anonymously requires the caller UID.
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/calls/"+initiated.CallID+"/end", "", map[string]string{})
	if status != http.StatusBadRequest || env.Error.Code != "MISSING_ACTOR" {
		t.Errorf("end without actor = %d %+v, want 400 MISSING_ACTOR", status, env.Error)
	}

	// Unknown call.
	status, env = doJSON(t, http.MethodGet, srv.URL+"/api/calls/unknown-call/status", "", nil)
	if status != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("unknown status = %d %+v, want 404 NOT_FOUND", status, env.Error)
	}
}

func TestRTCTokenRefresh(t *testing.T) {
	srv := newTestServer(t)
	owner := registerUser(t, srv.URL, "Alice", "alice@example.com")
	gen := generateQR(t, srv.URL, owner.Token)

	status, env := doJSON(t, http.MethodPost, srv.URL+"/api/calls/initiate", "", map[string]string{
		"qrId": gen.Code.QRID,
	})
	if status != http.StatusCreated {
		t.Fatalf("initiate returned %d: %+v", status, env.Error)
	}
	var initiated initiateData
	unmarshalData(t, env, &initiated)

	// The anonymous caller refreshes its channel token.
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/rtc/token", "", map[string]string{
		"channelName": initiated.ChannelName,
		"uid":         initiated.CallerUID,
	})
	if status != http.StatusOK {
		t.Fatalf("rtc token returned %d: %+v", status, env.Error)
	}
	var refreshed struct {
		Token string `json:"token"`
		AppID string `json:"appId"`
	}
	unmarshalData(t, env, &refreshed)
	if refreshed.Token == "" || refreshed.AppID != "test-app" {
		t.Errorf("incomplete token response: %+v", refreshed)
	}

	// A non-call channel name is rejected.
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/rtc/token", "", map[string]string{
		"channelName": "lobby", "uid": initiated.CallerUID,
	})
	if status != http.StatusBadRequest || env.Error.Code != "INVALID_CHANNEL" {
		t.Errorf("bad channel = %d %+v, want 400 INVALID_CHANNEL", status, env.Error)
	}

	// A foreign uid is rejected.
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/rtc/token", "", map[string]string{
		"channelName": initiated.ChannelName, "uid": "user_stranger",
	})
	if status != http.StatusForbidden || env.Error.Code != "FORBIDDEN" {
		t.Errorf("foreign uid = %d %+v, want 403 FORBIDDEN", status, env.Error)
	}

	// No refresh after the call ends.
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/calls/"+initiated.CallID+"/end", owner.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("end returned %d", status)
	}
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/rtc/token", "", map[string]string{
		"channelName": initiated.ChannelName, "uid": initiated.CallerUID,
	})
	if status != http.StatusConflict || env.Error.Code != "ALREADY_TERMINAL" {
		t.Errorf("ended refresh = %d %+v, want 409 ALREADY_TERMINAL", status, env.Error)
	}
}

func TestCallHistory(t *testing.T) {
	srv := newTestServer(t)
	owner := registerUser(t, srv.URL, "Alice", "alice@example.com")
	gen := generateQR(t, srv.URL, owner.Token)

	for i := 0; i < 2; i++ {
		status, env := doJSON(t, http.MethodPost, srv.URL+"/api/calls/initiate", "", map[string]string{
			"qrId": gen.Code.QRID,
		})
		if status != http.StatusCreated {
			t.Fatalf("initiate returned %d: %+v", status, env.Error)
		}
	}

	status, env := doJSON(t, http.MethodGet, srv.URL+"/api/calls/history", owner.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("history returned %d: %+v", status, env.Error)
	}
	var history struct {
		Count int `json:"count"`
		Calls []struct {
			CallID string `json:"callId"`
			Caller struct {
				Name        string `json:"name"`
				IsAnonymous bool   `json:"isAnonymous"`
			} `json:"caller"`
			Receiver struct {
				Name string `json:"name"`
			} `json:"receiver"`
		} `json:"calls"`
	}
	unmarshalData(t, env, &history)
	if history.Count != 2 {
		t.Errorf("history count = %d, want 2", history.Count)
	}
	for _, item := range history.Calls {
		if item.Receiver.Name != "Alice" {
			t.Errorf("history receiver = %q, want Alice", item.Receiver.Name)
		}
		if !item.Caller.IsAnonymous || item.Caller.Name == "" {
			t.Errorf("history caller = %+v, want a named anonymous profile", item.Caller)
		}
	}

	// History requires authentication.
	status, _ = doJSON(t, http.MethodGet, srv.URL+"/api/calls/history", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("unauthenticated history = %d, want 401", status)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	srv := newTestServer(t)

	sender := registerUser(t, srv.URL, "Alice", "alice@example.com")
	target := registerUser(t, srv.URL, "Bob", "bob@example.com")

	// No devices registered yet.
	status, env := doJSON(t, http.MethodPost, srv.URL+"/api/notifications/test", sender.Token, nil)
	if status != http.StatusBadRequest || env.Error.Code != "NO_DEVICE_TOKENS" {
		t.Fatalf("test without devices = %d %+v, want 400 NO_DEVICE_TOKENS", status, env.Error)
	}

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/auth/device-token", sender.Token, map[string]string{"deviceToken": "device-alice"})
	if status != http.StatusOK {
		t.Fatalf("device-token registration returned %d", status)
	}

	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/notifications/test", sender.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("test notification returned %d: %+v", status, env.Error)
	}
	var outcome struct {
		SentTo   int  `json:"sentTo"`
		Degraded bool `json:"degraded"`
	}
	unmarshalData(t, env, &outcome)
	if outcome.SentTo != 1 || outcome.Degraded {
		t.Errorf("test dispatch outcome = %+v, want sentTo 1 not degraded", outcome)
	}

	// Directed send needs a target with a registered device.
	body := map[string]string{"userId": target.User.UserID, "title": "Hi", "body": "There"}
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/notifications/send", sender.Token, body)
	if status != http.StatusBadRequest || env.Error.Code != "NO_DEVICE_TOKENS" {
		t.Fatalf("send to deviceless user = %d %+v, want 400 NO_DEVICE_TOKENS", status, env.Error)
	}

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/auth/device-token", target.Token, map[string]string{"deviceToken": "device-bob"})
	if status != http.StatusOK {
		t.Fatalf("device-token registration returned %d", status)
	}
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/notifications/send", sender.Token, body)
	if status != http.StatusOK {
		t.Fatalf("send returned %d: %+v", status, env.Error)
	}
	unmarshalData(t, env, &outcome)
	if outcome.SentTo != 1 {
		t.Errorf("send sentTo = %d, want 1", outcome.SentTo)
	}

	// Unknown target and missing auth are rejected.
	status, env = doJSON(t, http.MethodPost, srv.URL+"/api/notifications/send", sender.Token, map[string]string{"userId": "user-missing", "title": "Hi", "body": "There"})
	if status != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("send to unknown user = %d %+v, want 404 NOT_FOUND", status, env.Error)
	}
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/notifications/test", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("unauthenticated test notification = %d, want 401", status)
	}
}
