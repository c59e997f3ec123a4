// Package database provides MySQL connection management for GoSeed.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dbsmedya/goseed/internal/config"
)

// Manager owns the connection to the document store database.
type Manager struct {
	DB     *sql.DB
	config *config.DatabaseConfig

	maxRetries int
	backoff    time.Duration
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.DatabaseConfig) *Manager {
	return &Manager{
		config:     cfg,
		maxRetries: 3,
		backoff:    time.Second,
	}
}

// Connect opens the store connection, retrying with exponential backoff.
func (m *Manager) Connect(ctx context.Context) error {
	if m.config == nil {
		return fmt.Errorf("database config is nil")
	}

	db, err := m.connectWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to store database: %w", err)
	}
	m.DB = db
	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context) (*sql.DB, error) {
	var err error
	backoff := m.backoff

	for i := 0; i < m.maxRetries; i++ {
		var db *sql.DB
		db, err = m.open()
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				return db, nil
			}
			db.Close()
		}

		if i < m.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", m.maxRetries, err)
}

func (m *Manager) open() (*sql.DB, error) {
	db, err := sql.Open("mysql", BuildDSN(m.config))
	if err != nil {
		return nil, err
	}

	if m.config.MaxConnections > 0 {
		db.SetMaxOpenConns(m.config.MaxConnections)
	}
	if m.config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(m.config.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) string {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = cfg.Host + ":" + strconv.Itoa(cfg.Port)
	dsn.DBName = cfg.Database
	dsn.ParseTime = true

	switch cfg.TLS {
	case "disable":
		dsn.TLSConfig = "false"
	case "required":
		dsn.TLSConfig = "true"
	default:
		dsn.TLSConfig = "preferred"
	}

	return dsn.FormatDSN()
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.DB == nil {
		return fmt.Errorf("not connected")
	}
	if err := m.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}

// Close closes the connection. Safe to call when never connected.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	if err := m.DB.Close(); err != nil {
		return fmt.Errorf("store close: %w", err)
	}
	return nil
}
