package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telereach/delay"
	"telereach/filter"
	"telereach/models"
	"telereach/pool"
	"telereach/queue"
	"telereach/utils"
)

const (
	readBlock    = 5 * time.Second
	errorBackoff = 5 * time.Second
	// Pending entries older than this are claimed from dead consumers.
	staleAfter = 5 * time.Minute
)

// Dispatcher is one competing consumer over the task queue. It pulls one
// task at a time, runs the send pipeline, persists the outcome, acks,
// then pauses per the delay policy.
type Dispatcher struct {
	DB       *gorm.DB
	Queue    *queue.Queue
	Pool     *pool.ClientPool
	Filters  *filter.Evaluator
	Delays   *delay.Policy
	Consumer string
	Logger   *logrus.Entry

	// Sleep is swapped out in tests.
	Sleep func(time.Duration)
	rng   *rand.Rand
}

func NewDispatcher(db *gorm.DB, q *queue.Queue, p *pool.ClientPool, f *filter.Evaluator, d *delay.Policy, consumer string, rng *rand.Rand) *Dispatcher {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Dispatcher{
		DB:       db,
		Queue:    q,
		Pool:     p,
		Filters:  f,
		Delays:   d,
		Consumer: consumer,
		Logger:   logrus.WithField("component", "dispatcher").WithField("consumer", consumer),
		Sleep:    time.Sleep,
		rng:      rng,
	}
}

// Start runs the consumer loop until the context is cancelled. Loop
// errors are logged and backed off, never fatal.
func (d *Dispatcher) Start(ctx context.Context) {
	if err := d.Queue.EnsureGroup(ctx); err != nil {
		d.Logger.WithError(err).Error("could not ensure consumer group")
	}

	// Pick up work a crashed consumer left unacked.
	if stale, err := d.Queue.ClaimStale(ctx, d.Consumer, staleAfter); err != nil {
		d.Logger.WithError(err).Warn("could not claim stale tasks")
	} else {
		for _, ev := range stale {
			d.handleEvent(ctx, ev)
		}
	}

	d.Logger.Info("dispatch worker started")

	for {
		select {
		case <-ctx.Done():
			d.Logger.Info("dispatch worker shutting down")
			return
		default:
		}

		events, err := d.Queue.ReadNext(ctx, d.Consumer, readBlock)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.Logger.WithError(err).Error("error in worker loop")
			d.Sleep(errorBackoff)
			continue
		}

		for _, ev := range events {
			d.handleEvent(ctx, ev)
		}
	}
}

// handleEvent runs the pipeline for one queue entry. The ack happens
// strictly after the outcome row is committed, so a crash in between
// causes a redelivery (and at worst a duplicate outcome), never a
// silently lost attempt.
func (d *Dispatcher) handleEvent(ctx context.Context, ev queue.Event) {
	if ev.Type != queue.EventSendMessage {
		d.ack(ctx, ev.ID)
		return
	}

	var task queue.SendTask
	if err := json.Unmarshal(ev.Data, &task); err != nil {
		d.Logger.WithError(err).WithField("event_id", ev.ID).Error("undecodable task payload")
		d.ack(ctx, ev.ID)
		return
	}

	d.processTask(ctx, task)
	d.ack(ctx, ev.ID)
	d.Sleep(d.Delays.Next(ctx, task.Delay))
}

func (d *Dispatcher) ack(ctx context.Context, eventID string) {
	if err := d.Queue.Ack(ctx, eventID); err != nil {
		d.Logger.WithError(err).WithField("event_id", eventID).Error("failed to ack event")
	}
}

// processTask executes the send pipeline for one task and persists
// exactly one outcome row.
func (d *Dispatcher) processTask(ctx context.Context, task queue.SendTask) {
	log := d.Logger.WithField("campaign_id", task.CampaignID).WithField("recipient", task.Recipient)

	status := models.SendStatusFailed
	var errMsg *string
	var accountID *uint

	defer func() {
		d.logOutcome(&task.CampaignID, "", accountID, task.Recipient, status, errMsg)
	}()

	if len(task.AccountIDs) == 0 {
		msg := "no candidate accounts for task"
		errMsg = &msg
		return
	}

	var template models.MessageTemplate
	if err := d.DB.First(&template, task.TemplateID).Error; err != nil {
		msg := fmt.Sprintf("template %d not found", task.TemplateID)
		errMsg = &msg
		return
	}

	// Uniform random pick from the candidate pool. Not weighted by load
	// or health; fairness is statistical only.
	selected := task.AccountIDs[d.rng.Intn(len(task.AccountIDs))]
	accountID = &selected

	content := utils.Render(template.Content, task.Variables)

	conn, err := d.Pool.Acquire(ctx, selected)
	if err != nil {
		msg := err.Error()
		errMsg = &msg
		return
	}
	if conn == nil {
		msg := fmt.Sprintf("could not initialize connection for account %d", selected)
		errMsg = &msg
		log.Error(msg)
		return
	}

	// Best-effort identity resolution for filtering; a resolve failure
	// must never fail the task.
	identity, rerr := conn.Resolve(ctx, task.Recipient)
	if rerr != nil {
		log.WithError(rerr).Debug("could not resolve recipient, skipping filters")
		identity = nil
	}
	if skip, reason := d.Filters.Load(ctx).Evaluate(identity); skip {
		log.WithField("reason", reason).Info("recipient filtered")
		status = models.SendStatusSkipped
		errMsg = &reason
		return
	}

	status, errMsg = attemptSend(ctx, conn, task.Recipient, content, d.Sleep, log)
	if status == models.SendStatusSent {
		log.WithField("account_id", selected).Info("message sent")
	}
}

// logOutcome persists one SendLog row. A persistence failure must not
// crash the loop; it is logged and reported.
func (d *Dispatcher) logOutcome(campaignID *uint, ref string, accountID *uint, recipient, status string, errMsg *string) {
	entry := models.SendLog{
		CampaignID:   campaignID,
		CampaignRef:  ref,
		AccountID:    accountID,
		Recipient:    recipient,
		Status:       status,
		ErrorMessage: errMsg,
		Timestamp:    time.Now().UTC(),
	}
	if err := d.DB.Create(&entry).Error; err != nil {
		d.Logger.WithError(err).Error("failed to persist send outcome")
		sentry.CaptureException(err)
	}
}
