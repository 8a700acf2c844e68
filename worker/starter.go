package worker

import (
	"context"
	"fmt"
	"math/rand"

	"gorm.io/gorm"

	"telereach/models"
	"telereach/queue"
	"telereach/strategy"
)

// EnqueueCampaign appends one send task per addressable recipient of the
// campaign's list, assigning templates via the campaign's selection
// strategy. Returns the number of tasks appended. Used both by the
// campaign-start endpoint and by scheduled-campaign activation.
func EnqueueCampaign(ctx context.Context, db *gorm.DB, q *queue.Queue, campaign *models.Campaign, rng *rand.Rand) (int, error) {
	cfg := campaign.Config

	var list models.ContactList
	if err := db.First(&list, cfg.ListID).Error; err != nil {
		return 0, fmt.Errorf("contact list %d: %w", cfg.ListID, err)
	}

	var variants []models.ABTestVariant
	if cfg.ABTestID != nil {
		if err := db.Where("ab_test_id = ?", *cfg.ABTestID).Find(&variants).Error; err != nil {
			return 0, fmt.Errorf("ab test %d: %w", *cfg.ABTestID, err)
		}
	}

	selector, err := strategy.ForCampaign(cfg, variants, rng)
	if err != nil {
		return 0, err
	}

	appended := 0
	for i, contact := range list.Contacts {
		recipient := contact.Recipient()
		if recipient == "" {
			continue
		}

		task := queue.SendTask{
			CampaignID: campaign.ID,
			Recipient:  recipient,
			TemplateID: selector(i),
			AccountIDs: cfg.AccountIDs,
			Delay:      cfg.Delay,
			Variables:  contact,
			ABTestID:   cfg.ABTestID,
		}
		if err := q.Append(ctx, queue.EventSendMessage, task); err != nil {
			return appended, fmt.Errorf("append task for %s: %w", recipient, err)
		}
		appended++
	}
	return appended, nil
}
