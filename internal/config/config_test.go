package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bikeservice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Config{
		Database: DatabaseConfig{Path: "path"},
		API:      APIConfig{Auth: APIAuthConfig{JWTSecret: "secret"}},
	}
	cfg.applyDefaults()
	return cfg
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("BIKESERVICE_JWT_SECRET", "from-env")

	yamlContent := `
database:
  path: "test.db"
api:
  auth:
    jwt_secret: "${BIKESERVICE_JWT_SECRET}"
booking:
  conflict_window: symmetric
  scope_by_bike: true
security:
  lockout_duration: 10m
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.API.Auth.JWTSecret)
	assert.Equal(t, ConflictWindowSymmetric, cfg.Booking.ConflictWindow)
	assert.True(t, cfg.Booking.ScopeByBike)
	assert.Equal(t, 10*time.Minute, cfg.Security.LockoutDuration)
	assert.Equal(t, models.DefaultTimezone, cfg.Booking.Timezone)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "placeholder secret", mutate: func(c *Config) { c.API.Auth.JWTSecret = "CHANGE_ME" }, wantErr: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.Booking.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "unknown conflict window", mutate: func(c *Config) { c.Booking.ConflictWindow = "fuzzy" }, wantErr: true},
		{name: "reminder hour out of range", mutate: func(c *Config) { c.Reminders.Hour = 24 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, ConflictWindowLiteral, cfg.Booking.ConflictWindow)
	assert.Equal(t, 2*time.Hour, cfg.Booking.SlotDuration)
	assert.False(t, cfg.Booking.ScopeByBike)
	assert.False(t, cfg.Booking.SerializeCreation)
	assert.Equal(t, models.MaxFailedLogins, cfg.Security.MaxFailedLogins)
	assert.Equal(t, 5*time.Minute, cfg.Security.LockoutDuration)
	assert.Equal(t, 90*24*time.Hour, cfg.Security.PasswordMaxAge)
	assert.Equal(t, 10*time.Minute, cfg.Security.OTPTTL)
	assert.Equal(t, models.MaxOTPAttempts, cfg.Security.MaxOTPAttempts)
	assert.Equal(t, 5, cfg.Worker.MaxRetries)
	assert.Zero(t, cfg.Reminders.Hour)

	cfg = &Config{Reminders: ReminderConfig{Enabled: true}}
	cfg.applyDefaults()
	assert.Equal(t, 9, cfg.Reminders.Hour)
}

func TestValidateBikes(t *testing.T) {
	tests := []struct {
		name    string
		bikes   []models.Bike
		wantErr bool
	}{
		{
			name: "Valid bikes",
			bikes: []models.Bike{
				{ID: "b1", Name: "Pulsar", Price: 1500},
				{Name: "Apache", Price: 1200},
			},
		},
		{
			name: "Duplicate ID",
			bikes: []models.Bike{
				{ID: "b1", Name: "Pulsar", Price: 1500},
				{ID: "b1", Name: "Apache", Price: 1200},
			},
			wantErr: true,
		},
		{
			name:    "Missing name",
			bikes:   []models.Bike{{ID: "b1", Price: 1}},
			wantErr: true,
		},
		{
			name:    "Zero price",
			bikes:   []models.Bike{{Name: "Pulsar"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBikes(tt.bikes)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBikes() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
