package controller

import (
	"log"
	"math/rand"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"telereach/models"
	"telereach/queue"
	"telereach/strategy"
	"telereach/utils"
	"telereach/worker"
)

type CampaignController struct {
	DB     *gorm.DB
	Queue  *queue.Queue
	Logger *log.Logger
}

func NewCampaignController(db *gorm.DB, q *queue.Queue, logger *log.Logger) *CampaignController {
	return &CampaignController{DB: db, Queue: q, Logger: logger}
}

type CampaignStartRequest struct {
	Name          string                `json:"name" validate:"required"`
	ListID        uint                  `json:"list_id" validate:"required"`
	TemplateID    *uint                 `json:"template_id"`
	ABTestID      *uint                 `json:"ab_test_id"`
	RotationSteps []models.RotationStep `json:"rotation_steps"`
	AccountIDs    []uint                `json:"account_ids" validate:"required,min=1"`
	Delay         float64               `json:"delay"`
	ScheduledFor  *time.Time            `json:"scheduled_for"`
}

// StartCampaign validates the configuration, creates the campaign and,
// unless scheduled for later, appends one task per recipient before
// responding.
func (cc *CampaignController) StartCampaign(c *fiber.Ctx) error {
	var req CampaignStartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Delay <= 0 {
		req.Delay = 1.0
	}

	var list models.ContactList
	if err := cc.DB.First(&list, req.ListID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Contact list not found"})
	}

	// Exactly one selection strategy must resolve; rotation wins over
	// A/B, which wins over a bare template id.
	switch {
	case len(req.RotationSteps) > 0:
		templateIDs := make([]uint, 0, len(req.RotationSteps))
		total := 0
		for _, step := range req.RotationSteps {
			templateIDs = append(templateIDs, step.TemplateID)
			total += step.Count
		}
		if total == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": strategy.ErrEmptyRotation.Error()})
		}
		var found int64
		cc.DB.Model(&models.MessageTemplate{}).Where("id IN ?", templateIDs).Count(&found)
		if found != int64(len(uniqueIDs(templateIDs))) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "One or more templates in rotation not found"})
		}
	case req.ABTestID != nil:
		var abTest models.ABTest
		if err := cc.DB.First(&abTest, *req.ABTestID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "A/B test not found"})
		}
	case req.TemplateID != nil:
		var template models.MessageTemplate
		if err := cc.DB.First(&template, *req.TemplateID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message template not found"})
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Must provide template_id, ab_test_id, or rotation_steps"})
	}

	var accountCount int64
	cc.DB.Model(&models.Account{}).Where("id IN ?", req.AccountIDs).Count(&accountCount)
	if accountCount != int64(len(req.AccountIDs)) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "One or more accounts not found"})
	}

	status := models.CampaignRunning
	if req.ScheduledFor != nil {
		status = models.CampaignScheduled
	}

	campaign := models.Campaign{
		Name:   req.Name,
		Status: status,
		Config: models.CampaignConfig{
			ListID:        req.ListID,
			TemplateID:    req.TemplateID,
			ABTestID:      req.ABTestID,
			RotationSteps: req.RotationSteps,
			AccountIDs:    req.AccountIDs,
			Delay:         req.Delay,
		},
		ScheduledFor: req.ScheduledFor,
	}
	if err := cc.DB.Create(&campaign).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create campaign"})
	}

	if status == models.CampaignRunning {
		// Handlers run concurrently; each start draws from its own source.
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		appended, err := worker.EnqueueCampaign(c.Context(), cc.DB, cc.Queue, &campaign, rng)
		if err != nil {
			cc.Logger.Printf("Failed to enqueue campaign %d: %v", campaign.ID, err)
			cc.DB.Model(&campaign).Update("status", models.CampaignFailed)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to enqueue campaign tasks"})
		}
		cc.Logger.Printf("Campaign %d started with %d tasks", campaign.ID, appended)
	}

	return c.JSON(fiber.Map{"status": status, "campaign_id": campaign.ID})
}

// StopCampaign sets the campaign status to stopped.
func (cc *CampaignController) StopCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
	}

	if err := cc.DB.Model(&campaign).Update("status", models.CampaignStopped).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to stop campaign"})
	}
	return c.JSON(fiber.Map{"status": models.CampaignStopped, "campaign_id": campaign.ID})
}

// CampaignStatus returns the current status of a campaign.
func (cc *CampaignController) CampaignStatus(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
	}
	return c.JSON(fiber.Map{
		"campaign_id": campaign.ID,
		"status":      campaign.Status,
		"name":        campaign.Name,
	})
}

// ListCampaigns returns all campaigns.
func (cc *CampaignController) ListCampaigns(c *fiber.Ctx) error {
	var campaigns []models.Campaign
	if err := cc.DB.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list campaigns"})
	}
	return c.JSON(campaigns)
}

// DeleteCampaign removes a campaign and its outcome rows.
func (cc *CampaignController) DeleteCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
	}

	if err := cc.DB.Where("campaign_id = ?", campaign.ID).Delete(&models.SendLog{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete campaign logs"})
	}
	if err := cc.DB.Delete(&campaign).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete campaign"})
	}
	return c.JSON(fiber.Map{"status": "deleted", "campaign_id": campaign.ID})
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	var out []uint
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
