package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"telereach/config"
	"telereach/models"
	"telereach/queue"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	config.AppConfig.EncryptionKey = "0123456789abcdef0123456789abcdef"

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection to :memory: is its own database; keep one
	// so concurrent handlers see the same data.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Account{},
		&models.WarmupLog{},
		&models.Campaign{},
		&models.ContactList{},
		&models.MessageTemplate{},
		&models.ABTest{},
		&models.ABTestVariant{},
		&models.SendLog{},
		&models.DripCampaign{},
		&models.DripStep{},
		&models.DripProgress{},
		&models.ApiToken{},
	))
	return db
}

func newTestQueue(t *testing.T) (*queue.Queue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(rdb, "telereach:events", "campaign_workers")
	require.NoError(t, q.EnsureGroup(context.Background()))
	return q, rdb
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "TEST: ", log.LstdFlags)
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// doJSON performs the request against the app and decodes the JSON body.
func doJSON(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}
