package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"telereach/models"
	"telereach/utils"
)

type AccountController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewAccountController(db *gorm.DB, logger *log.Logger) *AccountController {
	return &AccountController{DB: db, Logger: logger}
}

type AccountCreateRequest struct {
	APIID         string  `json:"api_id" validate:"required"`
	APIHash       string  `json:"api_hash" validate:"required"`
	PhoneNumber   string  `json:"phone_number" validate:"required"`
	SessionString *string `json:"session_string"`
	ProxyURL      *string `json:"proxy_url"`
	WarmupEnabled bool    `json:"warmup_enabled"`
}

// CreateAccount registers a sending identity. The session string, when
// provided, is encrypted before it touches the database.
func (ac *AccountController) CreateAccount(c *fiber.Ctx) error {
	var req AccountCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	account := models.Account{
		APIID:         req.APIID,
		APIHash:       req.APIHash,
		PhoneNumber:   req.PhoneNumber,
		ProxyURL:      req.ProxyURL,
		IsActive:      true,
		WarmupEnabled: req.WarmupEnabled,
		HealthStatus:  models.HealthUnknown,
	}
	if req.SessionString != nil && *req.SessionString != "" {
		encrypted, err := utils.Encrypt(*req.SessionString)
		if err != nil {
			ac.Logger.Printf("Failed to encrypt session: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store session"})
		}
		account.SessionString = &encrypted
	}

	if err := ac.DB.Create(&account).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Failed to create account"})
	}
	return c.JSON(account)
}

func (ac *AccountController) ListAccounts(c *fiber.Ctx) error {
	var accounts []models.Account
	if err := ac.DB.Find(&accounts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list accounts"})
	}
	return c.JSON(accounts)
}

func (ac *AccountController) GetAccount(c *fiber.Ctx) error {
	var account models.Account
	if err := ac.DB.First(&account, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
	}
	return c.JSON(account)
}

func (ac *AccountController) DeleteAccount(c *fiber.Ctx) error {
	if err := ac.DB.Delete(&models.Account{}, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete account"})
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// ToggleWarmup flips warm-up participation for an account.
func (ac *AccountController) ToggleWarmup(c *fiber.Ctx) error {
	var account models.Account
	if err := ac.DB.First(&account, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
	}
	if err := ac.DB.Model(&account).Update("warmup_enabled", !account.WarmupEnabled).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update account"})
	}
	return c.JSON(fiber.Map{"account_id": account.ID, "warmup_enabled": !account.WarmupEnabled})
}
