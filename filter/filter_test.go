package filter

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telereach/transport"
)

func TestEvaluateSkipsBotsFirst(t *testing.T) {
	s := Settings{SkipBots: true, SkipNoPhoto: true}

	skip, reason := s.Evaluate(&transport.Identity{IsBot: true, HasPhoto: false})
	assert.True(t, skip)
	assert.Equal(t, "Filter: User is a bot", reason)
}

func TestEvaluateSkipsMissingPhoto(t *testing.T) {
	s := Settings{SkipNoPhoto: true}

	skip, reason := s.Evaluate(&transport.Identity{HasPhoto: false})
	assert.True(t, skip)
	assert.Equal(t, "Filter: User has no photo", reason)
}

func TestEvaluatePassesHumanWithPhoto(t *testing.T) {
	s := Settings{SkipBots: true, SkipNoPhoto: true}

	skip, reason := s.Evaluate(&transport.Identity{IsBot: false, HasPhoto: true})
	assert.False(t, skip)
	assert.Empty(t, reason)
}

func TestEvaluateNilIdentityNeverSkips(t *testing.T) {
	s := Settings{SkipBots: true, SkipNoPhoto: true}

	skip, reason := s.Evaluate(nil)
	assert.False(t, skip)
	assert.Empty(t, reason)
}

func TestLoadDefaultsWhenAbsent(t *testing.T) {
	mr := miniredis.RunT(t)
	e := NewEvaluator(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	got := e.Load(context.Background())
	assert.Equal(t, DefaultSettings(), got)
}

func TestLoadDefaultsOnMalformedDocument(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.Set(SettingsKey, "{broken")
	e := NewEvaluator(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	got := e.Load(context.Background())
	assert.Equal(t, DefaultSettings(), got)
}

func TestSaveThenLoad(t *testing.T) {
	mr := miniredis.RunT(t)
	e := NewEvaluator(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	in := Settings{SkipBots: false, SkipNoPhoto: true}
	require.NoError(t, e.Save(ctx, in))
	assert.Equal(t, in, e.Load(ctx))
}
