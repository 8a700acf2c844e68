package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"telereach/config"
	"telereach/delay"
	"telereach/filter"
	"telereach/models"
	"telereach/pool"
	"telereach/queue"
	"telereach/transport"
	"telereach/utils"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

type sentMessage struct {
	Recipient string
	Text      string
}

// fakeConn is a scriptable gateway session shared by the worker tests.
type fakeConn struct {
	mu sync.Mutex

	connected  bool
	identity   *transport.Identity
	resolveErr error
	sendErr    error
	lastMsg    map[string]*transport.Message
	lastMsgErr error
	performErr error

	sent      []sentMessage
	performed []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{connected: true, lastMsg: map[string]*transport.Message{}}
}

func (c *fakeConn) Connected() bool { return c.connected }

func (c *fakeConn) Resolve(ctx context.Context, identifier string) (*transport.Identity, error) {
	if c.resolveErr != nil {
		return nil, c.resolveErr
	}
	return c.identity, nil
}

func (c *fakeConn) Send(ctx context.Context, recipient, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, sentMessage{Recipient: recipient, Text: text})
	return nil
}

func (c *fakeConn) LastMessage(ctx context.Context, recipient string) (*transport.Message, error) {
	if c.lastMsgErr != nil {
		return nil, c.lastMsgErr
	}
	return c.lastMsg[recipient], nil
}

func (c *fakeConn) Perform(ctx context.Context, action string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.performErr != nil {
		return "", c.performErr
	}
	c.performed = append(c.performed, action)
	return "done: " + action, nil
}

func (c *fakeConn) Close() error { return nil }

type fakeDialer struct {
	conn *fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, creds transport.Credentials) (transport.Conn, error) {
	return d.conn, nil
}

// sleepRecorder replaces time.Sleep so tests observe pacing without
// actually pausing.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) Sleep(d time.Duration) {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	s.mu.Unlock()
}

func newWorkerDB(t *testing.T) *gorm.DB {
	t.Helper()
	config.AppConfig.EncryptionKey = testEncryptionKey

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
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
	))
	return db
}

func newWorkerQueue(t *testing.T) (*queue.Queue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(rdb, "telereach:events", "campaign_workers")
	require.NoError(t, q.EnsureGroup(context.Background()))
	return q, rdb
}

func seedSessionAccount(t *testing.T, db *gorm.DB, phone string) models.Account {
	t.Helper()
	encrypted, err := utils.Encrypt("session-" + phone)
	require.NoError(t, err)
	account := models.Account{
		APIID:         "12345",
		APIHash:       "hash",
		PhoneNumber:   phone,
		SessionString: &encrypted,
		IsActive:      true,
	}
	require.NoError(t, db.Create(&account).Error)
	return account
}

func seedTemplate(t *testing.T, db *gorm.DB, content string) models.MessageTemplate {
	t.Helper()
	tmpl := models.MessageTemplate{Name: "tmpl", Content: content}
	require.NoError(t, db.Create(&tmpl).Error)
	return tmpl
}

func newPoolWithConn(db *gorm.DB, conn *fakeConn) *pool.ClientPool {
	return pool.New(db, &fakeDialer{conn: conn})
}

func newFilterEvaluator(t *testing.T) (*filter.Evaluator, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return filter.NewEvaluator(rdb), rdb
}

func newDelayPolicy(t *testing.T) *delay.Policy {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return delay.NewPolicy(rdb, nil)
}
