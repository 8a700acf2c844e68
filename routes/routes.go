package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	controller "telereach/controllers"
	"telereach/delay"
	"telereach/filter"
	"telereach/middleware"
	"telereach/queue"
)

// SetupRoutes wires the collaborator API. All routes require an API
// token; the dispatch engine itself runs outside this surface.
func SetupRoutes(app *fiber.App, db *gorm.DB, q *queue.Queue, filters *filter.Evaluator, delays *delay.Policy) {
	apiLogger := log.New(os.Stdout, "API: ", log.Ldate|log.Ltime|log.Lshortfile)

	campaignCtrl := controller.NewCampaignController(db, q, apiLogger)
	dripCtrl := controller.NewDripController(db, apiLogger)
	settingsCtrl := controller.NewSettingsController(filters, delays, apiLogger)
	accountCtrl := controller.NewAccountController(db, apiLogger)
	resourceCtrl := controller.NewResourceController(db, apiLogger)

	api := app.Group("/api",
		logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}),
		middleware.TokenAuth(db),
	)

	campaign := api.Group("/campaign")
	campaign.Post("/start", campaignCtrl.StartCampaign)
	campaign.Post("/stop/:id", campaignCtrl.StopCampaign)
	campaign.Get("/status/:id", campaignCtrl.CampaignStatus)
	campaign.Get("/", campaignCtrl.ListCampaigns)
	campaign.Delete("/:id", campaignCtrl.DeleteCampaign)

	drip := api.Group("/drip")
	drip.Post("/", dripCtrl.CreateDrip)
	drip.Get("/", dripCtrl.ListDrips)
	drip.Post("/:id/start", dripCtrl.StartDrip)
	drip.Post("/:id/pause", dripCtrl.PauseDrip)
	drip.Post("/:id/resume", dripCtrl.ResumeDrip)
	drip.Get("/:id/stats", dripCtrl.DripStats)

	api.Get("/filters", settingsCtrl.GetFilters)
	api.Post("/filters", settingsCtrl.SetFilters)
	api.Get("/delay", settingsCtrl.GetDelay)
	api.Post("/delay", settingsCtrl.SetDelay)

	accounts := api.Group("/accounts")
	accounts.Post("/", accountCtrl.CreateAccount)
	accounts.Get("/", accountCtrl.ListAccounts)
	accounts.Get("/:id", accountCtrl.GetAccount)
	accounts.Delete("/:id", accountCtrl.DeleteAccount)
	accounts.Post("/:id/warmup", accountCtrl.ToggleWarmup)

	lists := api.Group("/lists")
	lists.Post("/", resourceCtrl.CreateList)
	lists.Get("/", resourceCtrl.ListLists)
	lists.Delete("/:id", resourceCtrl.DeleteList)

	templates := api.Group("/templates")
	templates.Post("/", resourceCtrl.CreateTemplate)
	templates.Get("/", resourceCtrl.ListTemplates)
	templates.Delete("/:id", resourceCtrl.DeleteTemplate)

	abtests := api.Group("/ab-tests")
	abtests.Post("/", resourceCtrl.CreateABTest)
	abtests.Get("/", resourceCtrl.ListABTests)

	api.Get("/logs", resourceCtrl.ListSendLogs)
}
