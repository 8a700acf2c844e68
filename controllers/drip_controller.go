package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"telereach/models"
	"telereach/utils"
)

type DripController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDripController(db *gorm.DB, logger *log.Logger) *DripController {
	return &DripController{DB: db, Logger: logger}
}

type DripStepRequest struct {
	TemplateID   uint `json:"template_id" validate:"required"`
	DelayMinutes int  `json:"delay_minutes" validate:"min=0"`
	StepOrder    int  `json:"step_order"`
}

type DripCreateRequest struct {
	Name      string            `json:"name" validate:"required"`
	ListID    uint              `json:"list_id" validate:"required"`
	AccountID uint              `json:"account_id" validate:"required"`
	Steps     []DripStepRequest `json:"steps" validate:"required,min=1"`
}

// CreateDrip creates a draft drip campaign with its ordered steps.
func (dc *DripController) CreateDrip(c *fiber.Ctx) error {
	var req DripCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var list models.ContactList
	if err := dc.DB.First(&list, req.ListID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Contact list not found"})
	}

	campaign := models.DripCampaign{
		Name:      req.Name,
		ListID:    req.ListID,
		AccountID: req.AccountID,
		Status:    models.DripDraft,
	}
	for _, step := range req.Steps {
		campaign.Steps = append(campaign.Steps, models.DripStep{
			TemplateID:   step.TemplateID,
			DelayMinutes: step.DelayMinutes,
			StepOrder:    step.StepOrder,
		})
	}

	if err := dc.DB.Create(&campaign).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create drip campaign"})
	}
	return c.JSON(campaign)
}

// ListDrips returns all drip campaigns with their steps.
func (dc *DripController) ListDrips(c *fiber.Ctx) error {
	var campaigns []models.DripCampaign
	if err := dc.DB.Preload("Steps").Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list drip campaigns"})
	}
	return c.JSON(campaigns)
}

// StartDrip enrolls every recipient of the target list and activates the
// campaign. Each progress row starts at the first step with its next
// execution at enrollment time + the first step's delay.
func (dc *DripController) StartDrip(c *fiber.Ctx) error {
	var campaign models.DripCampaign
	if err := dc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Drip campaign not found"})
	}
	if campaign.Status == models.DripActive {
		return c.JSON(fiber.Map{"status": "already_active"})
	}

	var firstStep models.DripStep
	if err := dc.DB.Where("drip_campaign_id = ?", campaign.ID).
		Order("step_order").First(&firstStep).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No steps in campaign"})
	}

	var list models.ContactList
	if err := dc.DB.First(&list, campaign.ListID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Contact list not found"})
	}

	startTime := time.Now().UTC().Add(time.Duration(firstStep.DelayMinutes) * time.Minute)
	enrolled := 0
	for _, contact := range list.Contacts {
		progress := models.DripProgress{
			DripCampaignID:    campaign.ID,
			ContactData:       contact,
			CurrentStepOrder:  firstStep.StepOrder,
			NextExecutionTime: utils.Pointer(startTime),
			Status:            models.ProgressPending,
		}
		if err := dc.DB.Create(&progress).Error; err != nil {
			dc.Logger.Printf("Failed to enroll contact in drip %d: %v", campaign.ID, err)
			continue
		}
		enrolled++
	}

	if err := dc.DB.Model(&campaign).Update("status", models.DripActive).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to activate campaign"})
	}
	return c.JSON(fiber.Map{"status": "started", "enrolled_users": enrolled})
}

// PauseDrip pauses an active drip campaign; pending rows stop being
// picked up until resume.
func (dc *DripController) PauseDrip(c *fiber.Ctx) error {
	return dc.setStatus(c, models.DripPaused)
}

// ResumeDrip reactivates a paused drip campaign.
func (dc *DripController) ResumeDrip(c *fiber.Ctx) error {
	return dc.setStatus(c, models.DripActive)
}

func (dc *DripController) setStatus(c *fiber.Ctx, status string) error {
	var campaign models.DripCampaign
	if err := dc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Drip campaign not found"})
	}
	if err := dc.DB.Model(&campaign).Update("status", status).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update campaign"})
	}
	return c.JSON(fiber.Map{"status": status})
}

// DripStats returns progress counts grouped by status.
func (dc *DripController) DripStats(c *fiber.Ctx) error {
	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var counts []statusCount
	err := dc.DB.Model(&models.DripProgress{}).
		Select("status, count(id) as count").
		Where("drip_campaign_id = ?", c.Params("id")).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load stats"})
	}

	stats := make(map[string]int64, len(counts))
	for _, sc := range counts {
		stats[sc.Status] = sc.Count
	}
	return c.JSON(stats)
}
