package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const configDirName = "serial-monitor-examples"
const envFileName = "students.env"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// Database holds the connection settings for the students demo.
type Database struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file, ":memory:" allowed
}

// Placeholder values; real deployments set them through the environment.
var defaults = map[string]string{
	"DB_DRIVER":   DriverPostgres,
	"DB_HOST":     "localhost",
	"DB_PORT":     "5432",
	"DB_USER":     "students",
	"DB_PASSWORD": "students",
	"DB_NAME":     "students_demo",
	"DB_SSLMODE":  "disable",
	"DB_PATH":     "students.db",
}

// DefaultFiles returns the env files Load consults, most specific first:
// .env in the working directory, then students.env in the user config dir.
func DefaultFiles() []string {
	files := []string{".env"}
	if dir, err := os.UserConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, configDirName, envFileName))
	}
	return files
}

// Load reads the settings from the environment and the default env files.
func Load() (Database, error) {
	return LoadFrom(DefaultFiles()...)
}

// LoadFrom reads the settings from the environment, then from files in
// order, then the defaults. Missing files are skipped. The process
// environment is never modified.
func LoadFrom(files ...string) (Database, error) {
	var layers []map[string]string
	for _, path := range files {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Database{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		layers = append(layers, values)
	}

	get := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		for _, layer := range layers {
			if v, ok := layer[key]; ok {
				return v
			}
		}
		return defaults[key]
	}

	cfg := Database{
		Driver:   get("DB_DRIVER"),
		Host:     get("DB_HOST"),
		Port:     get("DB_PORT"),
		User:     get("DB_USER"),
		Password: get("DB_PASSWORD"),
		Name:     get("DB_NAME"),
		SSLMode:  get("DB_SSLMODE"),
		Path:     get("DB_PATH"),
	}
	if err := cfg.Validate(); err != nil {
		return Database{}, err
	}
	return cfg, nil
}

func (d Database) Validate() error {
	switch d.Driver {
	case DriverPostgres, DriverSQLite:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownDriver, d.Driver)
}

// PostgresDSN renders the settings as a postgres connection URL.
func (d Database) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
