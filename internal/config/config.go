package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/stockcast/internal/optimizer"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Drive     DriveConfig
	Forecast  ForecastConfig
	Economics optimizer.Economics
	Policies  optimizer.PolicyTable
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
	// WriteSlots bounds concurrent transactions below the pool size so
	// reads keep a share of the connections during a batch save.
	WriteSlots int64
}

type AppConfig struct {
	UploadDir string
	DataDir   string
	LogLevel  string
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	ResultsTTLSeconds int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsFile string
	FolderID        string
	Port            string
}

type ForecastConfig struct {
	Lookback         int
	Horizon          int
	ValSplitFraction float64
	Margin           int
	UseLogTarget     bool
	BundlePath       string
	ModelTimeout     time.Duration
	Workers          int
	ModelConcurrency int64
	ByStore          bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "stockcast")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
		viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
		viper.SetDefault("DB_WRITE_SLOTS", 10)
		viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
		viper.SetDefault("APP_DATA_DIR", "./data/output")
		viper.SetDefault("APP_LOG_LEVEL", "info")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_RESULTS_TTL_SECONDS", 300)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "stockcast-artifacts")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("DRIVE_CREDENTIALS_FILE", "")
		viper.SetDefault("DRIVE_FOLDER_ID", "")
		viper.SetDefault("DRIVE_PORT", "8090")
		viper.SetDefault("FORECAST_LOOKBACK", 28)
		viper.SetDefault("FORECAST_HORIZON", 7)
		viper.SetDefault("FORECAST_VAL_SPLIT", 0.15)
		viper.SetDefault("FORECAST_MARGIN", 5)
		viper.SetDefault("FORECAST_USE_LOG_TARGET", false)
		viper.SetDefault("FORECAST_BUNDLE_PATH", "./data/output/preprocess.json")
		viper.SetDefault("FORECAST_MODEL_TIMEOUT_SECONDS", 30)
		viper.SetDefault("FORECAST_WORKERS", 4)
		viper.SetDefault("FORECAST_MODEL_CONCURRENCY", 2)
		viper.SetDefault("FORECAST_BY_STORE", true)
		viper.SetDefault("ECON_ORDER_COST", 50.0)
		viper.SetDefault("ECON_HOLDING_COST_RATE", 0.25)
		viper.SetDefault("ECON_LEAD_TIME_DAYS", 7.0)
		viper.SetDefault("ECON_SERVICE_LEVEL_Z", 1.65)
		viper.SetDefault("ECON_REVIEW_PERIOD_DAYS", 7.0)
		viper.SetDefault("ECON_MAX_REORDER_POINT", 100.0)
		viper.SetDefault("ECON_MAX_ORDER_QTY", 100.0)
		viper.SetDefault("CATEGORY_POLICY_JSON", "")

		// Read from environment variables
		viper.AutomaticEnv()

		// Ensure upload and data directories exist
		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		policies, err := loadPolicies(viper.GetString("CATEGORY_POLICY_JSON"))
		if err != nil {
			log.Fatalf("Failed to load category policies: %v", err)
		}

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),

				MaxOpenConns: viper.GetInt("DB_MAX_OPEN_CONNS"),
				MaxIdleConns: viper.GetInt("DB_MAX_IDLE_CONNS"),
				WriteSlots:   viper.GetInt64("DB_WRITE_SLOTS"),
			},
			App: AppConfig{
				UploadDir: viper.GetString("APP_UPLOAD_DIR"),
				DataDir:   viper.GetString("APP_DATA_DIR"),
				LogLevel:  viper.GetString("APP_LOG_LEVEL"),
			},
			Cache: CacheConfig{
				Enabled:           viper.GetBool("CACHE_ENABLED"),
				RedisURL:          viper.GetString("REDIS_URL"),
				RedisHost:         viper.GetString("REDIS_HOST"),
				RedisPort:         viper.GetString("REDIS_PORT"),
				RedisPassword:     viper.GetString("REDIS_PASSWORD"),
				RedisDB:           viper.GetInt("REDIS_DB"),
				ResultsTTLSeconds: viper.GetInt("CACHE_RESULTS_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
			Drive: DriveConfig{
				CredentialsFile: viper.GetString("DRIVE_CREDENTIALS_FILE"),
				FolderID:        viper.GetString("DRIVE_FOLDER_ID"),
				Port:            viper.GetString("DRIVE_PORT"),
			},
			Forecast: ForecastConfig{
				Lookback:         viper.GetInt("FORECAST_LOOKBACK"),
				Horizon:          viper.GetInt("FORECAST_HORIZON"),
				ValSplitFraction: viper.GetFloat64("FORECAST_VAL_SPLIT"),
				Margin:           viper.GetInt("FORECAST_MARGIN"),
				UseLogTarget:     viper.GetBool("FORECAST_USE_LOG_TARGET"),
				BundlePath:       viper.GetString("FORECAST_BUNDLE_PATH"),
				ModelTimeout:     time.Duration(viper.GetInt("FORECAST_MODEL_TIMEOUT_SECONDS")) * time.Second,
				Workers:          viper.GetInt("FORECAST_WORKERS"),
				ModelConcurrency: viper.GetInt64("FORECAST_MODEL_CONCURRENCY"),
				ByStore:          viper.GetBool("FORECAST_BY_STORE"),
			},
			Economics: optimizer.Economics{
				OrderCost:        viper.GetFloat64("ECON_ORDER_COST"),
				HoldingCostRate:  viper.GetFloat64("ECON_HOLDING_COST_RATE"),
				LeadTimeDays:     viper.GetFloat64("ECON_LEAD_TIME_DAYS"),
				ServiceLevelZ:    viper.GetFloat64("ECON_SERVICE_LEVEL_Z"),
				ReviewPeriodDays: viper.GetFloat64("ECON_REVIEW_PERIOD_DAYS"),
				MaxReorderPoint:  viper.GetFloat64("ECON_MAX_REORDER_POINT"),
				MaxOrderQty:      viper.GetFloat64("ECON_MAX_ORDER_QTY"),
			},
			Policies: policies,
		}

		if err := instance.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	})

	return instance
}

// loadPolicies returns the built-in grocery policy table, or the table
// parsed from the CATEGORY_POLICY_JSON override when set.
func loadPolicies(raw string) (optimizer.PolicyTable, error) {
	if raw == "" {
		return optimizer.DefaultPolicyTable(), nil
	}
	var table optimizer.PolicyTable
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return optimizer.PolicyTable{}, fmt.Errorf("parse CATEGORY_POLICY_JSON: %w", err)
	}
	if err := table.Validate(nil); err != nil {
		return optimizer.PolicyTable{}, err
	}
	return table, nil
}

// Validate rejects configurations that cannot produce a working pipeline.
func (c *Config) Validate() error {
	f := c.Forecast
	if f.Lookback < 1 || f.Horizon < 1 {
		return fmt.Errorf("forecast lookback and horizon must be >= 1")
	}
	if f.ValSplitFraction <= 0 || f.ValSplitFraction >= 1 {
		return fmt.Errorf("forecast validation split must be in (0, 1)")
	}
	if f.Workers < 1 {
		return fmt.Errorf("forecast workers must be >= 1")
	}
	if c.Economics.HoldingCostRate <= 0 {
		return fmt.Errorf("holding cost rate must be > 0")
	}
	if c.Economics.ServiceLevelZ <= 0 {
		return fmt.Errorf("service level z must be > 0")
	}
	return c.Policies.Validate(nil)
}

// DSN returns the lib/pq connection string for the configured database.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
