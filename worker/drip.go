package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telereach/models"
	"telereach/pool"
	"telereach/transport"
	"telereach/utils"
)

// dripBatchSize bounds how many due progress rows one tick handles.
const dripBatchSize = 100

// DripProcessor advances per-recipient drip progressions. Drip sends
// bypass the task queue: each row is already serialized by its own
// next_execution_time.
type DripProcessor struct {
	DB     *gorm.DB
	Pool   *pool.ClientPool
	Logger *logrus.Entry
	Sleep  func(time.Duration)
}

func NewDripProcessor(db *gorm.DB, p *pool.ClientPool) *DripProcessor {
	return &DripProcessor{
		DB:     db,
		Pool:   p,
		Logger: logrus.WithField("component", "drip"),
		Sleep:  time.Sleep,
	}
}

// ProcessBatch selects due pending rows of active campaigns, grouped by
// owning account to amortize connection setup, and advances each one.
func (p *DripProcessor) ProcessBatch(ctx context.Context) {
	now := time.Now().UTC()

	var due []models.DripProgress
	err := p.DB.
		Joins("JOIN drip_campaigns ON drip_campaigns.id = drip_progresses.drip_campaign_id").
		Where("drip_progresses.status = ?", models.ProgressPending).
		Where("drip_progresses.next_execution_time <= ?", now).
		Where("drip_campaigns.status = ?", models.DripActive).
		Limit(dripBatchSize).
		Find(&due).Error
	if err != nil {
		p.Logger.WithError(err).Error("failed to query due drip progress")
		return
	}
	if len(due) == 0 {
		return
	}

	p.Logger.WithField("count", len(due)).Info("processing drip items")

	campaigns := make(map[uint]*models.DripCampaign)
	byAccount := make(map[uint][]*models.DripProgress)
	for i := range due {
		row := &due[i]
		campaign, ok := campaigns[row.DripCampaignID]
		if !ok {
			campaign = &models.DripCampaign{}
			if err := p.DB.First(campaign, row.DripCampaignID).Error; err != nil {
				p.Logger.WithError(err).WithField("drip_campaign_id", row.DripCampaignID).
					Error("drip campaign vanished mid-batch")
				continue
			}
			campaigns[row.DripCampaignID] = campaign
		}
		byAccount[campaign.AccountID] = append(byAccount[campaign.AccountID], row)
	}

	for accountID, rows := range byAccount {
		conn, err := p.Pool.Acquire(ctx, accountID)
		if err != nil {
			p.Logger.WithError(err).WithField("account_id", accountID).
				Error("could not connect drip account")
			continue
		}
		if conn == nil {
			p.Logger.WithField("account_id", accountID).
				Error("drip account has no session, skipping its items this tick")
			continue
		}

		for _, row := range rows {
			campaign := campaigns[row.DripCampaignID]
			p.processRow(ctx, conn, campaign, row, now)
		}
	}
}

// processRow runs the drip state machine for one enrolled recipient:
// reply check, step send, then advance or terminate.
func (p *DripProcessor) processRow(ctx context.Context, conn transport.Conn, campaign *models.DripCampaign, row *models.DripProgress, now time.Time) {
	log := p.Logger.WithField("drip_campaign_id", campaign.ID).WithField("progress_id", row.ID)

	recipient := row.ContactData.Recipient()
	if recipient == "" {
		p.terminate(row, models.ProgressFailed, log)
		return
	}

	// Stop-on-reply: an inbound last message terminates the sequence
	// regardless of remaining steps. A failed check never blocks
	// progression.
	if msg, err := conn.LastMessage(ctx, recipient); err != nil {
		log.WithError(err).Warn("could not check for reply, proceeding")
	} else if msg != nil && !msg.Outgoing {
		log.WithField("recipient", recipient).Info("recipient replied, stopping drip")
		p.terminate(row, models.ProgressReplied, log)
		return
	}

	var step models.DripStep
	err := p.DB.
		Where("drip_campaign_id = ? AND step_order = ?", campaign.ID, row.CurrentStepOrder).
		First(&step).Error
	if err != nil {
		log.WithField("step_order", row.CurrentStepOrder).Error("drip step not found")
		p.terminate(row, models.ProgressFailed, log)
		return
	}

	p.dispatchStep(ctx, conn, campaign, row, &step, recipient, log)

	// A send failure does not retry the step; progression advances
	// regardless of the send outcome.
	var next models.DripStep
	err = p.DB.
		Where("drip_campaign_id = ? AND step_order > ?", campaign.ID, row.CurrentStepOrder).
		Order("step_order").
		First(&next).Error
	if err != nil {
		row.Status = models.ProgressCompleted
		row.NextExecutionTime = nil
	} else {
		row.CurrentStepOrder = next.StepOrder
		row.NextExecutionTime = utils.Pointer(now.Add(time.Duration(next.DelayMinutes) * time.Minute))
	}
	p.save(row, log)
}

// dispatchStep renders and sends one step's template and records the
// outcome under the synthetic drip campaign reference.
func (p *DripProcessor) dispatchStep(ctx context.Context, conn transport.Conn, campaign *models.DripCampaign, row *models.DripProgress, step *models.DripStep, recipient string, log *logrus.Entry) {
	status := models.SendStatusFailed
	var errMsg *string

	var template models.MessageTemplate
	if err := p.DB.First(&template, step.TemplateID).Error; err != nil {
		msg := fmt.Sprintf("template %d not found", step.TemplateID)
		errMsg = &msg
	} else {
		content := utils.Render(template.Content, row.ContactData)
		status, errMsg = attemptSend(ctx, conn, recipient, content, p.Sleep, log)
	}

	entry := models.SendLog{
		CampaignRef:  fmt.Sprintf("drip_%d_%d", campaign.ID, row.ID),
		AccountID:    utils.Pointer(campaign.AccountID),
		Recipient:    recipient,
		Status:       status,
		ErrorMessage: errMsg,
		Timestamp:    time.Now().UTC(),
	}
	if err := p.DB.Create(&entry).Error; err != nil {
		log.WithError(err).Error("failed to persist drip outcome")
		sentry.CaptureException(err)
	}
}

func (p *DripProcessor) terminate(row *models.DripProgress, status string, log *logrus.Entry) {
	row.Status = status
	row.NextExecutionTime = nil
	p.save(row, log)
}

func (p *DripProcessor) save(row *models.DripProgress, log *logrus.Entry) {
	// Select forces NULL writes for cleared execution times.
	err := p.DB.Model(row).
		Select("status", "current_step_order", "next_execution_time").
		Updates(map[string]interface{}{
			"status":              row.Status,
			"current_step_order":  row.CurrentStepOrder,
			"next_execution_time": row.NextExecutionTime,
		}).Error
	if err != nil {
		log.WithError(err).Error("failed to persist drip progress")
	}
}
