// Package delay computes the inter-send pause applied after every
// outcome, bounding total throughput.
package delay

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// SettingsKey is the shared-configuration document holding delay rules.
const SettingsKey = "delay_settings"

const (
	TypeFixed  = "fixed"
	TypeRandom = "random"
)

// Settings is the globally shared delay configuration. When Type is
// random, the pause is drawn uniformly from [MinDelay, MaxDelay] seconds;
// otherwise the task's own delay applies.
type Settings struct {
	Type     string  `json:"type"`
	Delay    float64 `json:"delay,omitempty"`
	MinDelay float64 `json:"min_delay,omitempty"`
	MaxDelay float64 `json:"max_delay,omitempty"`
}

// Policy resolves the pause for one task. The random source is injected
// so tests are deterministic.
type Policy struct {
	rdb *redis.Client

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPolicy(rdb *redis.Client, rng *rand.Rand) *Policy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Policy{rdb: rdb, rng: rng}
}

// Next returns the pause to apply after the current task. A failure to
// read the shared configuration falls back to the task's own delay.
func (p *Policy) Next(ctx context.Context, taskDelay float64) time.Duration {
	fallback := secondsToDuration(taskDelay)

	raw, err := p.rdb.Get(ctx, SettingsKey).Result()
	if err == redis.Nil {
		return fallback
	}
	if err != nil {
		logrus.WithError(err).Warn("could not load delay settings, using task delay")
		return fallback
	}

	var settings Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		logrus.WithError(err).Warn("malformed delay settings, using task delay")
		return fallback
	}

	if settings.Type != TypeRandom {
		// A fixed global setting defers to the campaign's own delay.
		return fallback
	}

	min, max := settings.MinDelay, settings.MaxDelay
	if min <= 0 {
		min = 1.0
	}
	if max <= 0 {
		max = 5.0
	}
	if max < min {
		max = min
	}

	p.mu.Lock()
	d := min + p.rng.Float64()*(max-min)
	p.mu.Unlock()
	return secondsToDuration(d)
}

// Save writes settings to the shared configuration store.
func (p *Policy) Save(ctx context.Context, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return p.rdb.Set(ctx, SettingsKey, raw, 0).Err()
}

// Load returns the current settings document, or a zero fixed settings
// when absent.
func (p *Policy) Load(ctx context.Context) (Settings, error) {
	raw, err := p.rdb.Get(ctx, SettingsKey).Result()
	if err == redis.Nil {
		return Settings{Type: TypeFixed}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	var settings Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
