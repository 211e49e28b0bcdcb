package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// ConfigPaths defines the paths to look for config files
var ConfigPaths = []string{
	"./configs",
	"../configs",
	"../../configs",
}

// DotEnvPaths defines the paths to look for .env files
var DotEnvPaths = []string{
	".env",
	"./.env",
	"../.env",
	"./configs/.env",
	"../configs/.env",
}

// LoadConfig loads configuration from file based on the environment
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file first
	if err := loadDotEnvFile(); err != nil {
		fmt.Println("Warning: Could not load .env file:", err)
	}

	env := getEnvironment()

	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")

	for _, path := range ConfigPaths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Environment variables override config values
	v.SetEnvPrefix("NP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	processEnvOverrides(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.Environment = env

	processDurations(&config)

	return &config, nil
}

// loadDotEnvFile attempts to load environment variables from .env files
func loadDotEnvFile() error {
	var lastError error

	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return nil
			} else {
				lastError = err
			}
		}
	}

	if lastError != nil {
		return fmt.Errorf("could not load any .env file: %w", lastError)
	}

	return fmt.Errorf("no .env file found in search paths")
}

// setDefaults sets default values for non-critical configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15)       // seconds
	v.SetDefault("server.writeTimeout", 15)      // seconds
	v.SetDefault("server.idleTimeout", 60)       // seconds
	v.SetDefault("server.readHeaderTimeout", 10) // seconds
	v.SetDefault("server.shutdownTimeout", 10)   // seconds

	// Database defaults for non-sensitive settings
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 50)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetime", 30) // minutes
	v.SetDefault("database.connMaxIdleTime", 15) // minutes
	v.SetDefault("database.queryTimeout", 5)     // seconds
	v.SetDefault("database.retryAttempts", 3)
	v.SetDefault("database.retryDelay", 1) // seconds

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")

	// Gateway defaults (sandbox endpoints; credentials must come from env)
	v.SetDefault("mpesa.baseUrl", "https://sandbox.safaricom.co.ke")
	v.SetDefault("mpesa.requestTimeout", 15) // seconds
	v.SetDefault("mpesa.tokenSlack", 60)     // seconds

	// Payment policy defaults
	v.SetDefault("payment.amountCeiling", 250000)
	v.SetDefault("payment.pendingTimeout", 2) // minutes
	v.SetDefault("payment.sweepInterval", 30) // seconds
	v.SetDefault("payment.maxQueryAttempts", 5)
	v.SetDefault("payment.sweepBatchLimit", 100)
}

// getEnvironment determines the environment based on NP_ENV
func getEnvironment() string {
	env := os.Getenv("NP_ENV")
	if env == "" {
		env = Development
	}
	return strings.ToLower(env)
}

// processEnvOverrides ensures environment variables override config values
// for sensitive settings
func processEnvOverrides(v *viper.Viper) {
	// Database credentials
	if dbHost := os.Getenv("NP_DB_HOST"); dbHost != "" {
		v.Set("database.host", dbHost)
	}
	if dbPort := os.Getenv("NP_DB_PORT"); dbPort != "" {
		v.Set("database.port", dbPort)
	}
	if dbUser := os.Getenv("NP_DB_USERNAME"); dbUser != "" {
		v.Set("database.username", dbUser)
	}
	if dbPass := os.Getenv("NP_DB_PASSWORD"); dbPass != "" {
		v.Set("database.password", dbPass)
	}
	if dbName := os.Getenv("NP_DB_NAME"); dbName != "" {
		v.Set("database.database", dbName)
	}
	if sslMode := os.Getenv("NP_DB_SSL_MODE"); sslMode != "" {
		v.Set("database.sslMode", sslMode)
	}

	// Gateway credentials are secrets; never shipped in yaml
	if key := os.Getenv("NP_MPESA_CONSUMER_KEY"); key != "" {
		v.Set("mpesa.consumerKey", key)
	}
	if secret := os.Getenv("NP_MPESA_CONSUMER_SECRET"); secret != "" {
		v.Set("mpesa.consumerSecret", secret)
	}
	if passkey := os.Getenv("NP_MPESA_PASSKEY"); passkey != "" {
		v.Set("mpesa.passkey", passkey)
	}
	if shortCode := os.Getenv("NP_MPESA_SHORT_CODE"); shortCode != "" {
		v.Set("mpesa.shortCode", shortCode)
	}
	if cbURL := os.Getenv("NP_MPESA_CALLBACK_URL"); cbURL != "" {
		v.Set("mpesa.callbackUrl", cbURL)
	}
	if cbSecret := os.Getenv("NP_MPESA_CALLBACK_SECRET"); cbSecret != "" {
		v.Set("mpesa.callbackSecret", cbSecret)
	}

	// Server settings
	if serverHost := os.Getenv("NP_SERVER_HOST"); serverHost != "" {
		v.Set("server.host", serverHost)
	}
	if serverPort := os.Getenv("NP_SERVER_PORT"); serverPort != "" {
		v.Set("server.port", serverPort)
	}

	// Logger settings
	if logLevel := os.Getenv("NP_LOGGER_LEVEL"); logLevel != "" {
		v.Set("logger.level", logLevel)
	}

	// Payment policy
	if ceiling := getEnvInt("NP_PAYMENT_AMOUNT_CEILING", 0); ceiling > 0 {
		v.Set("payment.amountCeiling", ceiling)
	}
	if pending := getEnvInt("NP_PAYMENT_PENDING_TIMEOUT_MINUTES", 0); pending > 0 {
		v.Set("payment.pendingTimeout", pending)
	}
	if interval := getEnvInt("NP_PAYMENT_SWEEP_INTERVAL_SECONDS", 0); interval > 0 {
		v.Set("payment.sweepInterval", interval)
	}
	if attempts := getEnvInt("NP_PAYMENT_MAX_QUERY_ATTEMPTS", 0); attempts > 0 {
		v.Set("payment.maxQueryAttempts", attempts)
	}
}

// Helper function to get environment variable as int
func getEnvInt(name string, defaultVal int) int {
	valStr := os.Getenv(name)
	if valStr == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// processDurations converts duration fields from their raw values
func processDurations(config *Config) {
	// Seconds
	config.Server.ReadTimeout = time.Duration(config.Server.ReadTimeout) * time.Second
	config.Server.WriteTimeout = time.Duration(config.Server.WriteTimeout) * time.Second
	config.Server.IdleTimeout = time.Duration(config.Server.IdleTimeout) * time.Second
	config.Server.ReadHeaderTimeout = time.Duration(config.Server.ReadHeaderTimeout) * time.Second
	config.Server.ShutdownTimeout = time.Duration(config.Server.ShutdownTimeout) * time.Second
	config.Database.QueryTimeout = time.Duration(config.Database.QueryTimeout) * time.Second
	config.Database.RetryDelay = time.Duration(config.Database.RetryDelay) * time.Second
	config.Mpesa.RequestTimeout = time.Duration(config.Mpesa.RequestTimeout) * time.Second
	config.Mpesa.TokenSlack = time.Duration(config.Mpesa.TokenSlack) * time.Second
	config.Payment.SweepInterval = time.Duration(config.Payment.SweepInterval) * time.Second

	// Minutes
	config.Database.ConnMaxLifetime = time.Duration(config.Database.ConnMaxLifetime) * time.Minute
	config.Database.ConnMaxIdleTime = time.Duration(config.Database.ConnMaxIdleTime) * time.Minute
	config.Payment.PendingTimeout = time.Duration(config.Payment.PendingTimeout) * time.Minute
}
