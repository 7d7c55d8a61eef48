package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnect(t *testing.T) {
	t.Run("Invalid Connection", func(t *testing.T) {
		cfg := Config{
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "sniffstore",
			TimeoutSeconds: 1,
		}

		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3306, User: "app", Password: "p@ss:word", Name: "ledger", TimeoutSeconds: 5}

	assert.Equal(t,
		"app:p%40ss%3Aword@tcp(db:3306)/ledger?charset=utf8mb4&parseTime=True&loc=Local&timeout=5s&readTimeout=5s&writeTimeout=5s",
		DSN(cfg))

	cfg.TimeoutSeconds = 0
	assert.Contains(t, DSN(cfg), "timeout=30s&")
}
