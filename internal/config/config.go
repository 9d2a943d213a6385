package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"bikeservice/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Security   SecurityConfig   `yaml:"security"`
	Khalti     KhaltiConfig     `yaml:"khalti"`
	Worker     WorkerConfig     `yaml:"worker"`
	Exports    ExportConfig     `yaml:"exports"`
	Reminders  ReminderConfig   `yaml:"reminders"`
	Admins     []string         `yaml:"admins"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type APIAuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Issuer    string        `yaml:"issuer"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// ConflictWindow modes.
const (
	ConflictWindowLiteral   = "literal"
	ConflictWindowSymmetric = "symmetric"
)

type BookingConfig struct {
	Timezone          string        `yaml:"timezone"`
	ConflictWindow    string        `yaml:"conflict_window"`
	SlotDuration      time.Duration `yaml:"slot_duration"`
	ScopeByBike       bool          `yaml:"scope_by_bike"`
	SerializeCreation bool          `yaml:"serialize_creation"`
}

type SecurityConfig struct {
	MaxFailedLogins     int           `yaml:"max_failed_logins"`
	LockoutDuration     time.Duration `yaml:"lockout_duration"`
	PasswordMaxAge      time.Duration `yaml:"password_max_age"`
	PasswordHistorySize int           `yaml:"password_history_size"`
	LoginOTP            bool          `yaml:"login_otp"`
	OTPTTL              time.Duration `yaml:"otp_ttl"`
	OTPRequestLimit     int           `yaml:"otp_request_limit"`
	OTPRequestWindow    time.Duration `yaml:"otp_request_window"`
	MaxOTPAttempts      int           `yaml:"max_otp_attempts"`
}

type KhaltiConfig struct {
	BaseURL    string        `yaml:"base_url"`
	SecretKey  string        `yaml:"secret_key"`
	ReturnURL  string        `yaml:"return_url"`
	WebsiteURL string        `yaml:"website_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type WorkerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// ReminderConfig schedules next-day booking reminders; Hour is in the booking timezone.
type ReminderConfig struct {
	Enabled bool `yaml:"enabled"`
	Hour    int  `yaml:"hour"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.API.Auth.JWTSecret == "" || c.API.Auth.JWTSecret == "CHANGE_ME" {
		return errors.New("api.auth.jwt_secret is required")
	}

	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid booking timezone %q: %w", c.Booking.Timezone, err)
	}

	switch c.Booking.ConflictWindow {
	case ConflictWindowLiteral, ConflictWindowSymmetric:
	default:
		return fmt.Errorf("booking.conflict_window must be %q or %q, got %q",
			ConflictWindowLiteral, ConflictWindowSymmetric, c.Booking.ConflictWindow)
	}

	if c.Reminders.Hour < 0 || c.Reminders.Hour > 23 {
		return fmt.Errorf("reminders.hour must be between 0 and 23, got %d", c.Reminders.Hour)
	}

	return nil
}

// ValidateBikes checks a catalog seed for missing names and duplicate IDs.
func ValidateBikes(bikes []models.Bike) error {
	ids := make(map[string]bool)
	for _, bike := range bikes {
		if strings.TrimSpace(bike.Name) == "" {
			return fmt.Errorf("bike %q has no name", bike.ID)
		}
		if bike.Price <= 0 {
			return fmt.Errorf("bike '%s' has invalid price %v", bike.Name, bike.Price)
		}
		if bike.ID == "" {
			continue
		}
		if ids[bike.ID] {
			return fmt.Errorf("duplicate bike ID found: %s", bike.ID)
		}
		ids[bike.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "bikeservice"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.ReadTimeout == 0 {
		c.API.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.API.HTTP.WriteTimeout == 0 {
		c.API.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.API.HTTP.ShutdownTimeout == 0 {
		c.API.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.API.Auth.TokenTTL == 0 {
		c.API.Auth.TokenTTL = 24 * time.Hour
	}
	if c.API.Auth.Issuer == "" {
		c.API.Auth.Issuer = c.App.Name
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// Booking defaults
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = models.DefaultTimezone
	}
	if c.Booking.ConflictWindow == "" {
		c.Booking.ConflictWindow = ConflictWindowLiteral
	}
	if c.Booking.SlotDuration == 0 {
		c.Booking.SlotDuration = models.DefaultConflictWindow * time.Second
	}

	// Security defaults
	if c.Security.MaxFailedLogins == 0 {
		c.Security.MaxFailedLogins = models.MaxFailedLogins
	}
	if c.Security.LockoutDuration == 0 {
		c.Security.LockoutDuration = models.LockoutDuration * time.Second
	}
	if c.Security.PasswordMaxAge == 0 {
		c.Security.PasswordMaxAge = models.PasswordMaxAgeDays * 24 * time.Hour
	}
	if c.Security.PasswordHistorySize == 0 {
		c.Security.PasswordHistorySize = models.PasswordHistorySize
	}
	if c.Security.OTPTTL == 0 {
		c.Security.OTPTTL = models.OTPTTL * time.Second
	}
	if c.Security.OTPRequestLimit == 0 {
		c.Security.OTPRequestLimit = models.OTPRequestLimit
	}
	if c.Security.OTPRequestWindow == 0 {
		c.Security.OTPRequestWindow = models.OTPRequestWindow * time.Second
	}
	if c.Security.MaxOTPAttempts == 0 {
		c.Security.MaxOTPAttempts = models.MaxOTPAttempts
	}

	if c.Khalti.BaseURL == "" {
		c.Khalti.BaseURL = "https://a.khalti.com/api/v2/"
	}
	if c.Khalti.Timeout == 0 {
		c.Khalti.Timeout = 10 * time.Second
	}

	// Worker defaults
	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = 30 * time.Second
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 5
	}
	if c.Worker.InitialDelay == 0 {
		c.Worker.InitialDelay = 2 * time.Second
	}
	if c.Worker.MaxDelay == 0 {
		c.Worker.MaxDelay = 5 * time.Minute
	}

	if c.Reminders.Enabled && c.Reminders.Hour == 0 {
		c.Reminders.Hour = 9
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "./exports"
	}
}
