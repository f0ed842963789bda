// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/qrcall/internal/logging"
	"github.com/tomtom215/qrcall/internal/models"
	"github.com/tomtom215/qrcall/internal/store"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// deliberately indistinguishable to the client.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("auth: email already registered")

	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("auth: user not found")
)

// maxDeviceTokens bounds how many push device tokens one account keeps.
const maxDeviceTokens = 10

// Service implements account operations over the document store.
type Service struct {
	store *store.Store
	jwt   *JWTManager
}

// NewService creates an auth Service.
func NewService(st *store.Store, jwt *JWTManager) *Service {
	return &Service{store: st, jwt: jwt}
}

// Session is a login or registration result: the user plus a fresh token.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates a new account and returns a signed-in session.
func (s *Service) Register(ctx context.Context, name, email, password, phone string) (*Session, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		UserID:       uuid.NewString(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwt.GenerateToken(user.UserID)
	if err != nil {
		return nil, err
	}

	logging.Info().Str("user_id", user.UserID).Msg("user registered")
	return &Session{User: user, Token: token}, nil
}

// Login verifies credentials and returns a fresh session. The user is
// marked online.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user, err = s.store.UpdateUser(ctx, user.UserID, func(u *models.User) error {
		u.IsOnline = true
		u.LastSeen = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.UserID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

// Logout marks the user offline and optionally drops one device token so
// the device stops receiving call pushes.
func (s *Service) Logout(ctx context.Context, userID, deviceToken string) error {
	_, err := s.store.UpdateUser(ctx, userID, func(u *models.User) error {
		u.IsOnline = false
		u.LastSeen = time.Now().UTC()
		if deviceToken != "" {
			u.RemoveDeviceToken(deviceToken)
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// Profile fetches the user's account.
func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// UpdateProfile changes the mutable profile fields. Empty values leave the
// existing field untouched.
func (s *Service) UpdateProfile(ctx context.Context, userID, name, phone, avatar string) (*models.User, error) {
	user, err := s.store.UpdateUser(ctx, userID, func(u *models.User) error {
		if name != "" {
			u.Name = name
		}
		if phone != "" {
			u.Phone = phone
		}
		if avatar != "" {
			u.Avatar = avatar
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// RegisterDeviceToken records a push device token for the account,
// deduplicated and capped at the oldest-out limit.
func (s *Service) RegisterDeviceToken(ctx context.Context, userID, deviceToken string) error {
	_, err := s.store.UpdateUser(ctx, userID, func(u *models.User) error {
		if u.HasDeviceToken(deviceToken) {
			return nil
		}
		u.DeviceTokens = append(u.DeviceTokens, deviceToken)
		if len(u.DeviceTokens) > maxDeviceTokens {
			u.DeviceTokens = u.DeviceTokens[len(u.DeviceTokens)-maxDeviceTokens:]
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	_, err = s.store.UpdateUser(ctx, userID, func(u *models.User) error {
		if !CheckPassword(u.PasswordHash, current) {
			return ErrInvalidCredentials
		}
		u.PasswordHash = hash
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
