package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/conf"
)

// Config holds the export settings.
type Config struct {
	SQLitePath string

	MySQLHost     string
	MySQLPort     int
	MySQLUser     string
	MySQLPass     string
	MySQLDatabase string

	BatchSize  int
	SkipVerify bool
	Verbose    bool

	ConfigPath string
}

// Load fills unset connection fields from the blink config file and validates.
func (c *Config) Load() error {
	if c.SQLitePath == "" || c.MySQLUser == "" {
		if err := c.loadFromConfigFile(); err != nil && c.SQLitePath == "" {
			return fmt.Errorf("--sqlite-path is required (or provide config.yaml): %w", err)
		}
	}

	if _, err := os.Stat(c.SQLitePath); err != nil {
		return fmt.Errorf("SQLite catalog not found: %s", c.SQLitePath)
	}
	if c.BatchSize < 1 || c.BatchSize > 10000 {
		return fmt.Errorf("batch-size must be between 1 and 10000")
	}
	return nil
}

func (c *Config) loadFromConfigFile() error {
	v := viper.New()
	path := c.ConfigPath
	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	if c.SQLitePath == "" {
		c.SQLitePath = v.GetString("catalog.path")
	}
	if c.MySQLUser == "" {
		c.MySQLHost = v.GetString("catalog.mysql.host")
		if p := v.GetInt("catalog.mysql.port"); p != 0 {
			c.MySQLPort = p
		}
		c.MySQLUser = v.GetString("catalog.mysql.username")
		c.MySQLPass = v.GetString("catalog.mysql.password")
		c.MySQLDatabase = v.GetString("catalog.mysql.database")
	}
	return nil
}

// Source returns the settings of the SQLite catalog.
func (c *Config) Source() conf.CatalogSettings {
	return conf.CatalogSettings{Driver: catalog.DriverSQLite, Path: c.SQLitePath}
}

// Target returns the settings of the MySQL catalog.
func (c *Config) Target() conf.CatalogSettings {
	return conf.CatalogSettings{
		Driver: catalog.DriverMySQL,
		MySQL: conf.MySQLSettings{
			Host:     c.MySQLHost,
			Port:     c.MySQLPort,
			Username: c.MySQLUser,
			Password: c.MySQLPass,
			Database: c.MySQLDatabase,
		},
	}
}

// SanitizedTarget describes the target without the password.
func (c *Config) SanitizedTarget() string {
	return fmt.Sprintf("%s@%s:%d/%s", c.MySQLUser, c.MySQLHost, c.MySQLPort, c.MySQLDatabase)
}
