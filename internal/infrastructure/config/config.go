package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Logger      LoggerConfig   `mapstructure:"logger"`
	Mpesa       MpesaConfig    `mapstructure:"mpesa"`
	Payment     PaymentConfig  `mapstructure:"payment"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`       // seconds
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`      // seconds
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`       // seconds
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"` // seconds
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`   // seconds
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // minutes
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"` // minutes
	QueryTimeout    time.Duration `mapstructure:"queryTimeout"`    // seconds
	RetryAttempts   int           `mapstructure:"retryAttempts"`
	RetryDelay      time.Duration `mapstructure:"retryDelay"` // seconds
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MpesaConfig contains the gateway credentials and endpoints
type MpesaConfig struct {
	BaseURL        string        `mapstructure:"baseUrl"`
	ShortCode      string        `mapstructure:"shortCode"`
	Passkey        string        `mapstructure:"passkey"`
	ConsumerKey    string        `mapstructure:"consumerKey"`
	ConsumerSecret string        `mapstructure:"consumerSecret"`
	CallbackURL    string        `mapstructure:"callbackUrl"`
	CallbackSecret string        `mapstructure:"callbackSecret"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"` // seconds
	TokenSlack     time.Duration `mapstructure:"tokenSlack"`     // seconds shaved off token lifetime
}

// PaymentConfig contains the payment-core policy knobs
type PaymentConfig struct {
	AmountCeiling    int64         `mapstructure:"amountCeiling"`
	PendingTimeout   time.Duration `mapstructure:"pendingTimeout"`   // minutes before a pending row is reconciled
	SweepInterval    time.Duration `mapstructure:"sweepInterval"`    // seconds
	MaxQueryAttempts int           `mapstructure:"maxQueryAttempts"`
	SweepBatchLimit  int           `mapstructure:"sweepBatchLimit"`
}
