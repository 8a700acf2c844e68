package delay

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T) (*Policy, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewPolicy(rdb, rand.New(rand.NewSource(1))), mr
}

func TestNextUsesTaskDelayWhenUnconfigured(t *testing.T) {
	p, _ := newTestPolicy(t)
	assert.Equal(t, 3*time.Second, p.Next(context.Background(), 3.0))
}

func TestNextRandomWithinBounds(t *testing.T) {
	p, mr := newTestPolicy(t)
	mr.Set(SettingsKey, `{"type":"random","min_delay":2,"max_delay":4}`)

	for i := 0; i < 50; i++ {
		d := p.Next(context.Background(), 10.0)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestNextFixedDefersToTaskDelay(t *testing.T) {
	p, mr := newTestPolicy(t)
	mr.Set(SettingsKey, `{"type":"fixed","delay":9}`)

	// A fixed global setting keeps the campaign's own delay.
	assert.Equal(t, 1500*time.Millisecond, p.Next(context.Background(), 1.5))
}

func TestNextMalformedSettingsFallsBack(t *testing.T) {
	p, mr := newTestPolicy(t)
	mr.Set(SettingsKey, `{not json`)

	assert.Equal(t, 2*time.Second, p.Next(context.Background(), 2.0))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p, _ := newTestPolicy(t)
	ctx := context.Background()

	in := Settings{Type: TypeRandom, MinDelay: 1, MaxDelay: 5}
	require.NoError(t, p.Save(ctx, in))

	out, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadAbsentReturnsFixed(t *testing.T) {
	p, _ := newTestPolicy(t)
	out, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TypeFixed, out.Type)
}
