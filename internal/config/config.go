package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Database drivers
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	// Default values
	DefaultPort        = 5500
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultGeminiModel = "gemini-1.5-flash"
	DefaultCacheTTL    = 24 * time.Hour
	DefaultWorkers     = 4
	DefaultDatabase    = "users.db"
	DefaultBooksDir    = "user_files"

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "BOOKMAKER"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Config holds all configuration for the book server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Storage configuration
	BooksDirectory string
	DBDriver       string
	DBDSN          string
	MaxFileSize    int64 // Maximum generated PDF size in bytes

	// Generation configuration
	GeminiAPIKey string
	GeminiModel  string
	RedisAddr    string // empty selects the in-process cache
	CacheTTL     time.Duration
	Workers      int // concurrent topic requests per book

	// Auth configuration
	JWTSecret string
	MCPUser   string // account the stdio tools act for

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeServer,
		Host:           DefaultHost,
		Port:           DefaultPort,
		BooksDirectory: DefaultBooksDir,
		DBDriver:       DriverSQLite,
		DBDSN:          DefaultDatabase,
		MaxFileSize:    DefaultMaxFileSize,
		GeminiModel:    DefaultGeminiModel,
		CacheTTL:       DefaultCacheTTL,
		Workers:        DefaultWorkers,
		JWTSecret:      randomSecret(),
		Version:        "1.0.0",
		ServerName:     "pdf-bookmaker",
		LogLevel:       DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.BooksDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.BooksDirectory); err == nil {
			cfg.BooksDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.BooksDirectory)
	viper.SetDefault("db-driver", cfg.DBDriver)
	viper.SetDefault("db-dsn", cfg.DBDSN)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
	viper.SetDefault("gemini-api-key", cfg.GeminiAPIKey)
	viper.SetDefault("gemini-model", cfg.GeminiModel)
	viper.SetDefault("redis-addr", cfg.RedisAddr)
	viper.SetDefault("cache-ttl", cfg.CacheTTL)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("jwt-secret", cfg.JWTSecret)
	viper.SetDefault("mcp-user", cfg.MCPUser)
	viper.SetDefault("log-level", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for the web server, 'stdio' for MCP standard I/O")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.BooksDirectory, "Directory generated books are stored under")
	pflag.String("db-driver", cfg.DBDriver, "Database driver: sqlite, postgres or mysql")
	pflag.String("db-dsn", cfg.DBDSN, "Database DSN (file path for sqlite)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum generated PDF size in bytes")
	pflag.String("gemini-api-key", cfg.GeminiAPIKey, "Gemini API key used to write chapters")
	pflag.String("gemini-model", cfg.GeminiModel, "Gemini model name")
	pflag.String("redis-addr", cfg.RedisAddr, "Redis address for the chapter cache (empty: in-process)")
	pflag.Duration("cache-ttl", cfg.CacheTTL, "How long generated chapter text is cached")
	pflag.Int("workers", cfg.Workers, "Concurrent chapter requests per book")
	pflag.String("jwt-secret", "", "Secret used to sign session tokens (random when empty)")
	pflag.String("mcp-user", cfg.MCPUser, "Username the MCP tools act for (stdio mode)")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "db-driver", "db-dsn", "max-file-size",
		"gemini-api-key", "gemini-model", "redis-addr", "cache-ttl", "workers",
		"jwt-secret", "mcp-user", "log-level",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF Bookmaker - turns a list of topics into a typeset book\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                   # web server on 127.0.0.1:5500\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --host=0.0.0.0 --port=8080        # web server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio --mcp-user=alice     # MCP tools over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --db-driver=postgres --db-dsn=postgres://u:p@localhost/books\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  BOOKMAKER_MODE            Run mode\n")
		fmt.Fprintf(os.Stderr, "  BOOKMAKER_HOST            Server host\n")
		fmt.Fprintf(os.Stderr, "  BOOKMAKER_PORT            Server port\n")
		fmt.Fprintf(os.Stderr, "  BOOKMAKER_DIR             Book directory\n")
		fmt.Fprintf(os.Stderr, "  BOOKMAKER_DB_DRIVER       Database driver\n")
		fmt.Fprintf(os.Stderr, "  BOOKMAKER_DB_DSN          Database DSN\n")
		fmt.Fprintf(os.Stderr, "  BOOKMAKER_GEMINI_API_KEY  Gemini API key\n")
		fmt.Fprintf(os.Stderr, "  BOOKMAKER_REDIS_ADDR      Redis address\n")
		fmt.Fprintf(os.Stderr, "  BOOKMAKER_JWT_SECRET      Session signing secret\n")
		fmt.Fprintf(os.Stderr, "  BOOKMAKER_LOG_LEVEL       Log level\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.BooksDirectory = viper.GetString("dir")
	cfg.DBDriver = viper.GetString("db-driver")
	cfg.DBDSN = viper.GetString("db-dsn")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
	cfg.GeminiAPIKey = viper.GetString("gemini-api-key")
	cfg.GeminiModel = viper.GetString("gemini-model")
	cfg.RedisAddr = viper.GetString("redis-addr")
	cfg.CacheTTL = viper.GetDuration("cache-ttl")
	cfg.Workers = viper.GetInt("workers")
	cfg.MCPUser = viper.GetString("mcp-user")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.JWTSecret = viper.GetString("jwt-secret")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Mode == ModeStdio && c.MCPUser == "" {
		return errors.New("mcp-user is required in stdio mode")
	}

	if c.BooksDirectory == "" {
		return errors.New("book directory cannot be empty")
	}

	// Check if the book directory exists, create if it doesn't
	if _, err := os.Stat(c.BooksDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.BooksDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create book directory %s: %w", c.BooksDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access book directory %s: %w", c.BooksDirectory, err)
	}

	switch c.DBDriver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("invalid database driver: %s (must be one of: sqlite, postgres, mysql)", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("database DSN cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	if c.JWTSecret == "" {
		return errors.New("JWT secret cannot be empty")
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. Secrets are
// reported only as set or unset.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, BooksDirectory: %s, DBDriver: %s, "+
		"GeminiModel: %s, GeminiAPIKey: %s, RedisAddr: %s, Workers: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.BooksDirectory, c.DBDriver,
		c.GeminiModel, setOrUnset(c.GeminiAPIKey), c.RedisAddr, c.Workers, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if running the web server
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if running the MCP stdio server
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

func setOrUnset(s string) string {
	if s == "" {
		return "unset"
	}
	return "set"
}

func randomSecret() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("config: crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}
