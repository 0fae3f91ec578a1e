package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-analytics-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "reader",
		Password: "secret",
		Name:     "school_analytics",
		SSLMode:  "require",
	})
	assert.Equal(t, "host=db port=5433 user=reader password=secret dbname=school_analytics sslmode=require", dsn)
}
