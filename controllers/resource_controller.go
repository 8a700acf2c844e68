package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"telereach/models"
	"telereach/utils"
)

// ResourceController covers the simple CRUD collaborators: contact
// lists, message templates and A/B tests.
type ResourceController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewResourceController(db *gorm.DB, logger *log.Logger) *ResourceController {
	return &ResourceController{DB: db, Logger: logger}
}

type ListCreateRequest struct {
	Name     string           `json:"name" validate:"required"`
	Contacts []models.Contact `json:"contacts" validate:"required"`
}

func (rc *ResourceController) CreateList(c *fiber.Ctx) error {
	var req ListCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	list := models.ContactList{Name: req.Name, Contacts: req.Contacts}
	if err := rc.DB.Create(&list).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create list"})
	}
	return c.JSON(list)
}

func (rc *ResourceController) ListLists(c *fiber.Ctx) error {
	var lists []models.ContactList
	if err := rc.DB.Find(&lists).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list contact lists"})
	}
	return c.JSON(lists)
}

func (rc *ResourceController) DeleteList(c *fiber.Ctx) error {
	if err := rc.DB.Delete(&models.ContactList{}, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete list"})
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

type TemplateCreateRequest struct {
	Name     string  `json:"name" validate:"required"`
	Content  string  `json:"content" validate:"required"`
	MediaURL *string `json:"media_url"`
}

func (rc *ResourceController) CreateTemplate(c *fiber.Ctx) error {
	var req TemplateCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	template := models.MessageTemplate{Name: req.Name, Content: req.Content, MediaURL: req.MediaURL}
	if err := rc.DB.Create(&template).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create template"})
	}
	return c.JSON(template)
}

func (rc *ResourceController) ListTemplates(c *fiber.Ctx) error {
	var templates []models.MessageTemplate
	if err := rc.DB.Find(&templates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list templates"})
	}
	return c.JSON(templates)
}

func (rc *ResourceController) DeleteTemplate(c *fiber.Ctx) error {
	if err := rc.DB.Delete(&models.MessageTemplate{}, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete template"})
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

type ABTestCreateRequest struct {
	Name     string `json:"name" validate:"required"`
	Variants []struct {
		TemplateID uint `json:"template_id" validate:"required"`
		Weight     int  `json:"weight" validate:"gt=0"`
	} `json:"variants" validate:"required,min=2,dive"`
}

func (rc *ResourceController) CreateABTest(c *fiber.Ctx) error {
	var req ABTestCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	abTest := models.ABTest{Name: req.Name, Status: "draft"}
	for _, v := range req.Variants {
		abTest.Variants = append(abTest.Variants, models.ABTestVariant{
			TemplateID: v.TemplateID,
			Weight:     v.Weight,
		})
	}
	if err := rc.DB.Create(&abTest).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create A/B test"})
	}
	return c.JSON(abTest)
}

func (rc *ResourceController) ListABTests(c *fiber.Ctx) error {
	var tests []models.ABTest
	if err := rc.DB.Preload("Variants").Find(&tests).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list A/B tests"})
	}
	return c.JSON(tests)
}

// ListSendLogs exposes outcome rows for analytics export, filterable by
// campaign and status.
func (rc *ResourceController) ListSendLogs(c *fiber.Ctx) error {
	q := rc.DB.Model(&models.SendLog{}).Order("id DESC").Limit(c.QueryInt("limit", 500))
	if campaignID := c.Query("campaign_id"); campaignID != "" {
		q = q.Where("campaign_id = ?", campaignID)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var logs []models.SendLog
	if err := q.Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list send logs"})
	}
	return c.JSON(logs)
}
