package database

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/quote-vault/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "vault",
		Password: "secret",
		DBName:   "quotes",
		SSLMode:  "disable",
	})
	assert.Equal(t, "host=db port=5432 user=vault password=secret dbname=quotes sslmode=disable", dsn)
}

func TestConnectGivesUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := Connect(ctx, config.DatabaseConfig{
		Driver:         "postgres",
		Host:           "127.0.0.1",
		Port:           "1",
		User:           "nobody",
		DBName:         "none",
		SSLMode:        "disable",
		ConnectTimeout: time.Second,
	}, zap.NewNop())
	assert.Error(t, err)
}
