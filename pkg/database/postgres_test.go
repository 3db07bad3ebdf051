package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/wfh-scheduler/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "wfh", Password: "secret", Name: "wfh_scheduler", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=wfh password=secret dbname=wfh_scheduler sslmode=disable", dsn)
}
