package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/dmr-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "dmr",
		Password: "secret",
		Name:     "dmr",
		SSLMode:  "disable",
	})
	assert.Equal(t, "host=db port=5432 user=dmr password=secret dbname=dmr sslmode=disable", dsn)
}
