package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultServerURL = "http://127.0.0.1:5500"
	clientEnvPrefix  = "BOOKFORM"
)

// ClientConfig holds configuration for the terminal form
type ClientConfig struct {
	ServerURL string
	Username  string
	Password  string
	LogLevel  string
	LogFile   string
}

// DefaultClientConfig returns the terminal form defaults
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerURL: DefaultServerURL,
		LogLevel:  DefaultLogLevel,
		LogFile:   "bookform.log",
	}
}

// LoadClientFromFlags parses the terminal form's flags and BOOKFORM_* variables
func LoadClientFromFlags() (*ClientConfig, error) {
	cfg := DefaultClientConfig()

	viper.SetEnvPrefix(clientEnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("server", cfg.ServerURL)
	viper.SetDefault("username", cfg.Username)
	viper.SetDefault("password", cfg.Password)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("log-file", cfg.LogFile)

	pflag.String("server", cfg.ServerURL, "Book server base URL")
	pflag.String("username", cfg.Username, "Account username")
	pflag.String("password", cfg.Password, "Account password (prefer BOOKFORM_PASSWORD)")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("log-file", cfg.LogFile, "File the form writes its log to")
	for _, name := range []string{"server", "username", "password", "log-level", "log-file"} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nBook Form - request a generated book from a pdf-bookmaker server\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  BOOKFORM_SERVER    Server URL\n")
		fmt.Fprintf(os.Stderr, "  BOOKFORM_USERNAME  Username\n")
		fmt.Fprintf(os.Stderr, "  BOOKFORM_PASSWORD  Password\n")
	}

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	cfg.ServerURL = viper.GetString("server")
	cfg.Username = viper.GetString("username")
	cfg.Password = viper.GetString("password")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.LogFile = viper.GetString("log-file")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the client configuration is valid
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL: %q", c.ServerURL)
	}
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.LogFile == "" {
		return errors.New("log file cannot be empty")
	}
	return nil
}
