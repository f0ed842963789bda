// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package models

import "time"

// User is a registered account that owns QR codes and receives calls.
// PasswordHash holds a bcrypt digest and is never serialized to clients.
type User struct {
	UserID       string   `json:"userId"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	PasswordHash string   `json:"-"`
	Avatar       string   `json:"avatar"`
	DeviceTokens []string `json:"-"`

	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile returns the public view of the user.
func (u *User) Profile() PublicProfile {
	return PublicProfile{UserID: u.UserID, Name: u.Name, Avatar: u.Avatar}
}

// HasDeviceToken reports whether the token is already registered.
func (u *User) HasDeviceToken(token string) bool {
	for _, t := range u.DeviceTokens {
		if t == token {
			return true
		}
	}
	return false
}

// RemoveDeviceToken drops the token from the user's registered devices.
func (u *User) RemoveDeviceToken(token string) {
	kept := u.DeviceTokens[:0]
	for _, t := range u.DeviceTokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	u.DeviceTokens = kept
}
