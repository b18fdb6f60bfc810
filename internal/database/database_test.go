package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/godelegate/internal/config"
	"github.com/dbsmedya/godelegate/internal/logger"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.DatabaseConfig
		expected string
	}{
		{
			name: "basic DSN",
			cfg: &config.DatabaseConfig{
				Host: "localhost", Port: 3306, User: "root", Password: "secret",
				Database: "wallets", TLS: "preferred",
			},
			expected: "root:secret@tcp(localhost:3306)/wallets?parseTime=true&charset=utf8mb4&tls=preferred",
		},
		{
			name: "DSN without database",
			cfg: &config.DatabaseConfig{
				Host: "localhost", Port: 3306, User: "root", Password: "secret",
			},
			expected: "root:secret@tcp(localhost:3306)/?parseTime=true&charset=utf8mb4&tls=preferred",
		},
		{
			name: "DSN with TLS disabled",
			cfg: &config.DatabaseConfig{
				Host: "db", Port: 3307, User: "app", Password: "p@ss", Database: "w", TLS: "disable",
			},
			expected: "app:p@ss@tcp(db:3307)/w?parseTime=true&charset=utf8mb4&tls=false",
		},
		{
			name: "DSN with TLS required",
			cfg: &config.DatabaseConfig{
				Host: "db", Port: 3306, User: "app", Password: "x", Database: "w", TLS: "required",
			},
			expected: "app:x@tcp(db:3306)/w?parseTime=true&charset=utf8mb4&tls=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildDSN(tt.cfg); got != tt.expected {
				t.Errorf("BuildDSN() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestManagerCloseWithoutConnect(t *testing.T) {
	manager := NewManager(&config.DatabaseConfig{Host: "localhost"}, logger.NewNop())

	if err := manager.Close(); err != nil {
		t.Errorf("Close() returned error for unconnected manager: %v", err)
	}
	if err := manager.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail before Connect()")
	}
}

func TestManagerConnect_Success(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectClose()

	manager := NewManager(&config.DatabaseConfig{Host: "localhost", Port: 3306, MaxConnections: 5}, logger.NewNop())
	manager.open = func(string) (*sql.DB, error) { return db, nil }

	require.NoError(t, manager.Connect(context.Background()))
	assert.Same(t, db, manager.DB)

	require.NoError(t, manager.Close())
	assert.Nil(t, manager.DB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerConnect_RetriesThenFails(t *testing.T) {
	attempts := 0
	manager := NewManager(&config.DatabaseConfig{Host: "localhost", Port: 3306}, logger.NewNop())
	manager.backoff = time.Millisecond
	manager.open = func(string) (*sql.DB, error) {
		attempts++
		return nil, errors.New("dial refused")
	}

	err := manager.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 retries")
	assert.Equal(t, 3, attempts)
	assert.Nil(t, manager.DB)
}

func TestManagerConnect_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewManager(&config.DatabaseConfig{Host: "localhost"}, logger.NewNop())
	manager.backoff = time.Hour
	manager.open = func(string) (*sql.DB, error) {
		cancel()
		return nil, errors.New("dial refused")
	}

	err := manager.Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
