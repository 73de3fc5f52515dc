package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPoliciesDefault(t *testing.T) {
	table, err := loadPolicies("")
	require.NoError(t, err)
	assert.Contains(t, table.Policies, "Dairy")
	assert.NotNil(t, table.Default)
}

func TestLoadPoliciesOverride(t *testing.T) {
	raw := `{"policies":{"Frozen":{"safety_multiplier":1.2,"max_order_weeks":4}}}`
	table, err := loadPolicies(raw)
	require.NoError(t, err)

	p, err := table.Resolve("Frozen")
	require.NoError(t, err)
	assert.InDelta(t, 1.2, p.SafetyMultiplier, 1e-9)
	assert.Equal(t, 4, p.MaxOrderWeeks)

	// override has no default: unknown categories must error
	_, err = table.Resolve("Dairy")
	assert.Error(t, err)
}

func TestLoadPoliciesRejectsBadInput(t *testing.T) {
	_, err := loadPolicies("{not json")
	assert.Error(t, err)

	_, err = loadPolicies(`{"policies":{"Frozen":{"safety_multiplier":0,"max_order_weeks":4}}}`)
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	dsn := DatabaseConfig{
		Host: "db", Port: "5432", User: "app", Password: "secret",
		DBName: "stockcast", SSLMode: "disable",
	}.DSN()
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=stockcast sslmode=disable", dsn)
}
