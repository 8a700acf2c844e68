package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"telereach/delay"
	"telereach/filter"
)

// SettingsController exposes the shared filter and delay configuration
// documents consumed by the dispatch engine.
type SettingsController struct {
	Filters *filter.Evaluator
	Delays  *delay.Policy
	Logger  *log.Logger
}

func NewSettingsController(filters *filter.Evaluator, delays *delay.Policy, logger *log.Logger) *SettingsController {
	return &SettingsController{Filters: filters, Delays: delays, Logger: logger}
}

func (sc *SettingsController) GetFilters(c *fiber.Ctx) error {
	return c.JSON(sc.Filters.Load(c.Context()))
}

func (sc *SettingsController) SetFilters(c *fiber.Ctx) error {
	settings := filter.DefaultSettings()
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := sc.Filters.Save(c.Context(), settings); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save filter settings"})
	}
	return c.JSON(settings)
}

func (sc *SettingsController) GetDelay(c *fiber.Ctx) error {
	settings, err := sc.Delays.Load(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load delay settings"})
	}
	return c.JSON(settings)
}

func (sc *SettingsController) SetDelay(c *fiber.Ctx) error {
	var settings delay.Settings
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if settings.Type != delay.TypeFixed && settings.Type != delay.TypeRandom {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "type must be fixed or random"})
	}
	if err := sc.Delays.Save(c.Context(), settings); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save delay settings"})
	}
	return c.JSON(settings)
}
