// Package filter evaluates configurable skip rules against a resolved
// recipient identity.
package filter

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"telereach/transport"
)

// SettingsKey is the shared-configuration document holding filter rules.
const SettingsKey = "filter_settings"

// Settings are the skip rules. Rule order is fixed: bots first, then
// missing photo; the first match wins.
type Settings struct {
	SkipBots    bool `json:"skip_bots"`
	SkipNoPhoto bool `json:"skip_no_photo"`
}

func DefaultSettings() Settings {
	return Settings{SkipBots: true, SkipNoPhoto: false}
}

// Evaluate returns a skip verdict with a human-readable reason, or
// (false, "") when the recipient passes. A nil identity yields no
// verdict: filter evaluation is best-effort and never blocks a send.
func (s Settings) Evaluate(identity *transport.Identity) (bool, string) {
	if identity == nil {
		return false, ""
	}
	if s.SkipBots && identity.IsBot {
		return true, "Filter: User is a bot"
	}
	if s.SkipNoPhoto && !identity.HasPhoto {
		return true, "Filter: User has no photo"
	}
	return false, ""
}

// Evaluator loads settings from the shared configuration store.
type Evaluator struct {
	rdb *redis.Client
}

func NewEvaluator(rdb *redis.Client) *Evaluator {
	return &Evaluator{rdb: rdb}
}

// Load fetches the current settings, falling back to defaults when the
// document is missing or unreadable.
func (e *Evaluator) Load(ctx context.Context) Settings {
	settings := DefaultSettings()

	raw, err := e.rdb.Get(ctx, SettingsKey).Result()
	if err == redis.Nil {
		return settings
	}
	if err != nil {
		logrus.WithError(err).Warn("could not load filter settings, using defaults")
		return settings
	}

	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		logrus.WithError(err).Warn("malformed filter settings, using defaults")
		return DefaultSettings()
	}
	return settings
}

// Save writes settings back to the shared configuration store.
func (e *Evaluator) Save(ctx context.Context, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return e.rdb.Set(ctx, SettingsKey, raw, 0).Err()
}
