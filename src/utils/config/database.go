package config

import (
	"time"

	"github.com/spf13/viper"
)

type Database struct {
	Port        uint16
	Host        string
	User        string
	Password    string
	Name        string
	SslMode     string
	PingTimeout time.Duration

	// TLS configuration
	ClientKey  string
	ClientCert string
	CaCert     string

	// Connection pool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	// Startup connection retries. 0 means no limit
	ConnectMaxElapsedTime time.Duration
	ConnectMaxInterval    time.Duration

	// User allowed to run migrations, empty disables migrations
	MigrationUser     string
	MigrationPassword string
}

func setDatabaseDefaults() {
	viper.SetDefault("Database.Port", "5433")
	viper.SetDefault("Database.Host", "127.0.0.1")
	viper.SetDefault("Database.User", "postgres")
	viper.SetDefault("Database.Password", "postgres")
	viper.SetDefault("Database.Name", "administration_data")
	viper.SetDefault("Database.SslMode", "disable")
	viper.SetDefault("Database.PingTimeout", "15s")
	viper.SetDefault("Database.MaxOpenConns", "10")
	viper.SetDefault("Database.MaxIdleConns", "2")
	viper.SetDefault("Database.ConnMaxIdleTime", "10m")
	viper.SetDefault("Database.ConnMaxLifetime", "1h")
	viper.SetDefault("Database.ConnectMaxElapsedTime", "1m")
	viper.SetDefault("Database.ConnectMaxInterval", "16s")
	viper.SetDefault("Database.MigrationUser", "postgres")
	viper.SetDefault("Database.MigrationPassword", "postgres")
}
