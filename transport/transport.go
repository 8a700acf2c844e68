// Package transport defines the contract between the dispatch engine and
// the messaging gateway that owns the real protocol sessions.
package transport

import (
	"context"
	"fmt"
	"time"
)

// Credentials identify one sending account to the gateway.
type Credentials struct {
	APIID   string `json:"api_id"`
	APIHash string `json:"api_hash"`
	Session string `json:"session"`
	Proxy   string `json:"proxy,omitempty"`
}

// Identity is a resolved recipient profile.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsBot    bool   `json:"is_bot"`
	HasPhoto bool   `json:"has_photo"`
}

// Message is the tail of a conversation, used for reply detection.
type Message struct {
	Outgoing bool   `json:"outgoing"`
	Text     string `json:"text"`
}

// RateLimitedError is the transport-mandated cooldown. The caller must
// wait the full duration before the identity accepts further sends.
type RateLimitedError struct {
	Wait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: wait %ds", int(e.Wait.Seconds()))
}

// ProtocolError is a permanent protocol-level rejection, e.g. a privacy
// restriction. Not retried.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

// Conn is a live session for one account.
type Conn interface {
	// Connected reports whether the session is still usable.
	Connected() bool

	// Resolve looks up the full identity behind a phone/username.
	Resolve(ctx context.Context, identifier string) (*Identity, error)

	// Send delivers text to the recipient. May fail with
	// *RateLimitedError, *ProtocolError or any other error.
	Send(ctx context.Context, recipient, text string) error

	// LastMessage returns the most recent message exchanged with the
	// recipient, or nil when there is none.
	LastMessage(ctx context.Context, recipient string) (*Message, error)

	// Perform executes a warm-up action (read, join, react, online) and
	// returns a human-readable description of what was done.
	Perform(ctx context.Context, action string) (string, error)

	Close() error
}

// Dialer establishes sessions.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Conn, error)
}
