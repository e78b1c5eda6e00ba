package database

import (
	"fmt"
	"net/url"
)

// DatabaseConfig represents Postgres connection configuration
type DatabaseConfig struct {
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	Username string `json:"username" yaml:"username" mapstructure:"username"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	Database string `json:"database" yaml:"database" mapstructure:"database"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode" mapstructure:"ssl_mode"`
}

// DSN returns the Postgres connection string for the configuration
func (dc DatabaseConfig) DSN() string {
	sslMode := dc.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(dc.Username),
		url.QueryEscape(dc.Password),
		dc.Host,
		dc.Port,
		dc.Database,
		sslMode,
	)
}

// Validate checks the configuration for required fields
func (dc DatabaseConfig) Validate() error {
	if dc.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if dc.Port <= 0 || dc.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535, got %d", dc.Port)
	}
	if dc.Username == "" {
		return fmt.Errorf("database username is required")
	}
	if dc.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}
