// Package pool caches one live gateway connection per sending account.
package pool

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"telereach/models"
	"telereach/transport"
	"telereach/utils"
)

// ClientPool lazily connects accounts and reuses live connections.
// Connections are never proactively closed here; dead ones are evicted
// and re-dialed on the next Acquire.
type ClientPool struct {
	db     *gorm.DB
	dialer transport.Dialer

	mu    sync.Mutex
	conns map[uint]transport.Conn
}

func New(db *gorm.DB, dialer transport.Dialer) *ClientPool {
	return &ClientPool{
		db:     db,
		dialer: dialer,
		conns:  make(map[uint]transport.Conn),
	}
}

// Acquire returns a live connection for the account, dialing if needed.
// Returns (nil, nil) when the account has no stored session: that is an
// uninitialized identity, not a retryable error.
func (p *ClientPool) Acquire(ctx context.Context, accountID uint) (transport.Conn, error) {
	p.mu.Lock()
	if conn, ok := p.conns[accountID]; ok {
		if conn.Connected() {
			p.mu.Unlock()
			return conn, nil
		}
		delete(p.conns, accountID)
	}
	p.mu.Unlock()

	var account models.Account
	if err := p.db.First(&account, accountID).Error; err != nil {
		return nil, fmt.Errorf("load account %d: %w", accountID, err)
	}
	if account.SessionString == nil || *account.SessionString == "" {
		return nil, nil
	}

	session, err := utils.Decrypt(*account.SessionString)
	if err != nil {
		return nil, fmt.Errorf("decrypt session for account %d: %w", accountID, err)
	}

	creds := transport.Credentials{
		APIID:   account.APIID,
		APIHash: account.APIHash,
		Session: session,
	}
	if account.ProxyURL != nil {
		creds.Proxy = *account.ProxyURL
	}

	conn, err := p.dialer.Dial(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("dial account %d: %w", accountID, err)
	}

	p.mu.Lock()
	p.conns[accountID] = conn
	p.mu.Unlock()
	return conn, nil
}

// Evict drops a cached connection after a detected disconnect.
func (p *ClientPool) Evict(accountID uint) {
	p.mu.Lock()
	delete(p.conns, accountID)
	p.mu.Unlock()
}
