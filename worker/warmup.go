package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telereach/models"
	"telereach/pool"
)

// Weighted toward passive actions; joining channels is rare.
var warmupActions = []string{"read", "read", "react", "react", "online", "join"}

// WarmupRunner performs periodic human-like actions on accounts with
// warm-up enabled, to build sending reputation.
type WarmupRunner struct {
	DB     *gorm.DB
	Pool   *pool.ClientPool
	Logger *logrus.Entry
	Sleep  func(time.Duration)
	rng    *rand.Rand
}

func NewWarmupRunner(db *gorm.DB, p *pool.ClientPool, rng *rand.Rand) *WarmupRunner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &WarmupRunner{
		DB:     db,
		Pool:   p,
		Logger: logrus.WithField("component", "warmup"),
		Sleep:  time.Sleep,
		rng:    rng,
	}
}

// RunCycle performs at most one action per warm-up-enabled account,
// pacing between accounts to spread load. Per-account failures are
// logged and never abort the cycle.
func (w *WarmupRunner) RunCycle(ctx context.Context) {
	var accounts []models.Account
	if err := w.DB.Where("warmup_enabled = ?", true).Find(&accounts).Error; err != nil {
		w.Logger.WithError(err).Error("failed to fetch warmup accounts")
		return
	}

	for _, account := range accounts {
		// Random skip so the activity pattern stays irregular.
		if w.rng.Float64() < 0.1 {
			w.Logger.WithField("account_id", account.ID).Debug("skipping account this cycle")
			continue
		}

		w.performAction(ctx, account)

		if err := w.DB.Model(&models.Account{}).Where("id = ?", account.ID).
			Update("warmup_last_run", time.Now().UTC()).Error; err != nil {
			w.Logger.WithError(err).WithField("account_id", account.ID).
				Error("failed to update warmup_last_run")
		}

		w.Sleep(time.Duration(5+w.rng.Intn(11)) * time.Second)
	}
}

func (w *WarmupRunner) performAction(ctx context.Context, account models.Account) {
	log := w.Logger.WithField("account_id", account.ID)

	conn, err := w.Pool.Acquire(ctx, account.ID)
	if err != nil {
		log.WithError(err).Warn("could not connect account for warmup")
		return
	}
	if conn == nil {
		log.Warn("account has no session, skipping warmup")
		return
	}

	action := warmupActions[w.rng.Intn(len(warmupActions))]
	detail, err := conn.Perform(ctx, action)

	entry := models.WarmupLog{AccountID: account.ID, Action: action, Details: detail}
	if err != nil {
		log.WithError(err).WithField("action", action).Warn("warmup action failed")
		entry.Action = "error"
		entry.Details = err.Error()
	} else {
		log.WithField("action", action).WithField("details", detail).Info("warmup action done")
	}

	if err := w.DB.Create(&entry).Error; err != nil {
		log.WithError(err).Error("failed to persist warmup log")
	}
}
