// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"unicode/utf8"
)

const (
	MaxUserIDLen   = 32
	MaxUsernameLen = 32
)

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUsernameTooLong = errors.New("username too long")
)

type LoginStatus string

const (
	LoginStatusUnlogin LoginStatus = "UNLOGIN"
	LoginStatusLogined LoginStatus = "LOGINED"
)

type UserProfile struct {
	UserID          string `json:"userID" validate:"required,max=32"`
	UserName        string `json:"userName,omitempty" validate:"max=32"`
	AvatarURL       string `json:"avatarURL,omitempty"`
	SelfSignature   string `json:"selfSignature,omitempty"`
	Level           int    `json:"level,omitempty"`
	IsAdministrator bool   `json:"isAdministrator,omitempty"`
}

// Validate checks the length limits the native SDK enforces on profiles.
func (u *UserProfile) Validate() error {
	if u.UserID == "" {
		return ErrUserIDEmpty
	}
	if len(u.UserID) > MaxUserIDLen {
		return ErrUserIDTooLong
	}
	if utf8.RuneCountInString(u.UserName) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
