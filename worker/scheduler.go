package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telereach/models"
	"telereach/queue"
)

// Scheduler is the periodic orchestrator tying campaign lifecycle
// transitions together. Exactly one instance may run; a second instance
// risks duplicate activations and duplicate drip sends.
type Scheduler struct {
	DB       *gorm.DB
	Queue    *queue.Queue
	Drip     *DripProcessor
	Warmup   *WarmupRunner
	Interval time.Duration
	Logger   *logrus.Entry
	rng      *rand.Rand
}

func NewScheduler(db *gorm.DB, q *queue.Queue, drip *DripProcessor, warmup *WarmupRunner, interval time.Duration, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		DB:       db,
		Queue:    q,
		Drip:     drip,
		Warmup:   warmup,
		Interval: interval,
		Logger:   logrus.WithField("component", "scheduler"),
		rng:      rng,
	}
}

// Start runs the loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.Logger.WithField("interval", s.Interval).Info("scheduler started")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("scheduler shutting down")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs the four phases in order. Each phase is error-isolated: a
// failure is logged and must not prevent the next phase or future ticks.
func (s *Scheduler) tick(ctx context.Context) {
	s.runPhase("activate_scheduled", func() { s.activateScheduled(ctx) })
	s.runPhase("detect_completion", func() { s.detectCompletion() })
	s.runPhase("process_drip", func() { s.Drip.ProcessBatch(ctx) })
	s.runPhase("warmup_cycle", func() { s.Warmup.RunCycle(ctx) })
}

func (s *Scheduler) runPhase(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.WithField("phase", name).WithField("panic", r).Error("scheduler phase panicked")
		}
	}()
	fn()
}

// activateScheduled promotes due scheduled campaigns to running and
// enqueues their tasks, using the same selection logic as direct start.
func (s *Scheduler) activateScheduled(ctx context.Context) {
	now := time.Now().UTC()

	var campaigns []models.Campaign
	err := s.DB.
		Where("status = ? AND scheduled_for <= ?", models.CampaignScheduled, now).
		Find(&campaigns).Error
	if err != nil {
		s.Logger.WithError(err).Error("failed to fetch scheduled campaigns")
		return
	}

	for i := range campaigns {
		campaign := &campaigns[i]
		log := s.Logger.WithField("campaign_id", campaign.ID).WithField("name", campaign.Name)
		log.Info("starting scheduled campaign")

		if err := s.DB.Model(campaign).Update("status", models.CampaignRunning).Error; err != nil {
			log.WithError(err).Error("failed to mark campaign running")
			continue
		}

		appended, err := EnqueueCampaign(ctx, s.DB, s.Queue, campaign, s.rng)
		if err != nil {
			log.WithError(err).Error("failed to start scheduled campaign")
			if uerr := s.DB.Model(campaign).Update("status", models.CampaignFailed).Error; uerr != nil {
				log.WithError(uerr).Error("failed to mark campaign failed")
			}
			continue
		}
		log.WithField("tasks", appended).Info("scheduled campaign started")
	}
}

// detectCompletion transitions running campaigns whose persisted outcome
// count has reached the target list size. An empty list completes
// immediately without entering a send pipeline.
func (s *Scheduler) detectCompletion() {
	var campaigns []models.Campaign
	if err := s.DB.Where("status = ?", models.CampaignRunning).Find(&campaigns).Error; err != nil {
		s.Logger.WithError(err).Error("failed to fetch running campaigns")
		return
	}

	for i := range campaigns {
		campaign := &campaigns[i]
		log := s.Logger.WithField("campaign_id", campaign.ID)

		var list models.ContactList
		if err := s.DB.First(&list, campaign.Config.ListID).Error; err != nil {
			log.WithError(err).Warn("contact list missing, skipping completion check")
			continue
		}
		target := int64(list.RecipientCount())

		var logged int64
		if err := s.DB.Model(&models.SendLog{}).
			Where("campaign_id = ?", campaign.ID).
			Count(&logged).Error; err != nil {
			log.WithError(err).Error("failed to count outcomes")
			continue
		}

		if logged >= target {
			if err := s.DB.Model(campaign).Update("status", models.CampaignCompleted).Error; err != nil {
				log.WithError(err).Error("failed to mark campaign completed")
				continue
			}
			log.WithField("outcomes", logged).Info("campaign completed")
		}
	}
}
