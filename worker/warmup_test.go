package worker

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telereach/models"
)

func TestWarmupPerformsActionAndLogs(t *testing.T) {
	db := newWorkerDB(t)
	account := seedSessionAccount(t, db, "+15550001")
	require.NoError(t, db.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Update("warmup_enabled", true).Error)

	conn := newFakeConn()
	sleeps := &sleepRecorder{}
	// Seed 1's first draw is well above the 10% skip threshold.
	w := NewWarmupRunner(db, newPoolWithConn(db, conn), rand.New(rand.NewSource(1)))
	w.Sleep = sleeps.Sleep

	w.RunCycle(context.Background())

	require.Len(t, conn.performed, 1)
	assert.Contains(t, []string{"read", "react", "online", "join"}, conn.performed[0])

	var entry models.WarmupLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, account.ID, entry.AccountID)
	assert.Equal(t, conn.performed[0], entry.Action)
	assert.Equal(t, "done: "+conn.performed[0], entry.Details)

	var updated models.Account
	require.NoError(t, db.First(&updated, account.ID).Error)
	require.NotNil(t, updated.WarmupLastRun)
	assert.WithinDuration(t, time.Now().UTC(), *updated.WarmupLastRun, time.Minute)

	// Pacing between accounts stays in the 5..15s band.
	require.Len(t, sleeps.calls, 1)
	assert.GreaterOrEqual(t, sleeps.calls[0], 5*time.Second)
	assert.LessOrEqual(t, sleeps.calls[0], 15*time.Second)
}

func TestWarmupIgnoresDisabledAccounts(t *testing.T) {
	db := newWorkerDB(t)
	seedSessionAccount(t, db, "+15550001")

	conn := newFakeConn()
	w := NewWarmupRunner(db, newPoolWithConn(db, conn), rand.New(rand.NewSource(1)))
	w.Sleep = (&sleepRecorder{}).Sleep

	w.RunCycle(context.Background())

	assert.Empty(t, conn.performed)
	var count int64
	require.NoError(t, db.Model(&models.WarmupLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWarmupActionFailureIsRecorded(t *testing.T) {
	db := newWorkerDB(t)
	account := seedSessionAccount(t, db, "+15550001")
	require.NoError(t, db.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Update("warmup_enabled", true).Error)

	conn := newFakeConn()
	conn.performErr = assert.AnError
	w := NewWarmupRunner(db, newPoolWithConn(db, conn), rand.New(rand.NewSource(1)))
	w.Sleep = (&sleepRecorder{}).Sleep

	w.RunCycle(context.Background())

	var entry models.WarmupLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "error", entry.Action)
	assert.Equal(t, assert.AnError.Error(), entry.Details)
}

func TestWarmupSkipsSessionlessAccounts(t *testing.T) {
	db := newWorkerDB(t)
	account := models.Account{
		APIID:         "1",
		APIHash:       "h",
		PhoneNumber:   "+15550002",
		IsActive:      true,
		WarmupEnabled: true,
	}
	require.NoError(t, db.Create(&account).Error)

	conn := newFakeConn()
	w := NewWarmupRunner(db, newPoolWithConn(db, conn), rand.New(rand.NewSource(1)))
	w.Sleep = (&sleepRecorder{}).Sleep

	w.RunCycle(context.Background())

	assert.Empty(t, conn.performed)
	var count int64
	require.NoError(t, db.Model(&models.WarmupLog{}).Count(&count).Error)
	assert.Zero(t, count)
}
