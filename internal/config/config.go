// Package config assembles the server configuration from defaults, an optional JSON file,
// environment variables (including a .env file) and command-line flags, in that order of
// increasing priority, and validates the result.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the contactkeeper server.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	GRPCAddr            string        `env:"GRPC_ADDRESS" validate:"omitempty,hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseURI         string        `env:"DATABASE_URI" validate:"required,databaseuri"`
	JWTSecret           string        `env:"JWT_SECRET" validate:"required"`
	TokenTTL            time.Duration `env:"TOKEN_TTL" validate:"gt=0"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	ConfigFile          string        `env:"CONFIG"`
}

type jsonConfig struct {
	RunAddr             string `json:"server_address"`
	GRPCAddr            string `json:"grpc_address"`
	LogLevel            string `json:"log_level"`
	DatabaseURI         string `json:"database_uri"`
	JWTSecret           string `json:"jwt_secret"`
	TokenTTL            string `json:"token_ttl"`
	DBConnectionTimeout string `json:"db_connection_timeout"`
	TrustedSubnet       string `json:"trusted_subnet"`
}

var defaultConfig = Config{
	RunAddr:             ":5000",
	LogLevel:            "info",
	TokenTTL:            100 * time.Hour,
	DBConnectionTimeout: 10 * time.Second,
}

// Supported DatabaseURI schemes.
var databaseURISchemes = []string{
	"mongodb://",
	"mongodb+srv://",
	"postgres://",
	"postgresql://",
	"file://",
	"memory://",
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command-line flags entirely.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses the given arguments instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds and validates a Config.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `godotenv.Load()` calling: %w", err)
	}

	cfg := &Config{}
	applyDefaults(cfg, defaultConfig)

	var fromFlags Config
	var setFlags map[string]bool
	if !options.disableFlagsParsing {
		var err error
		fromFlags, setFlags, err = parseFlags(options.args)
		if err != nil {
			return nil, err
		}
	}

	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	configFile := fromEnv.ConfigFile
	if setFlags["c"] {
		configFile = fromFlags.ConfigFile
	}
	if configFile != "" {
		if err := cfg.loadJSON(configFile); err != nil {
			return nil, err
		}
		cfg.ConfigFile = configFile
	}

	cfg.override(fromEnv)

	if setFlags != nil {
		cfg.overrideFromFlags(fromFlags, setFlags)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config, defaults Config) {
	if cfg.RunAddr == "" {
		cfg.RunAddr = defaults.RunAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.DBConnectionTimeout == 0 {
		cfg.DBConnectionTimeout = defaults.DBConnectionTimeout
	}
}

func parseFlags(args []string) (Config, map[string]bool, error) {
	var values Config
	flags := flag.NewFlagSet("contactkeeper", flag.ContinueOnError)
	flags.StringVar(&values.RunAddr, "a", "", "address and port to run the HTTP server")
	flags.StringVar(&values.GRPCAddr, "g", "", "address and port to run the gRPC server")
	flags.StringVar(&values.LogLevel, "l", "", "logger level")
	flags.StringVar(&values.DatabaseURI, "d", "", "database connection URI (mongodb://, postgres://, file://, memory://)")
	flags.StringVar(&values.JWTSecret, "s", "", "secret used to sign identity tokens")
	flags.DurationVar(&values.TokenTTL, "ttl", 0, "identity token lifetime")
	flags.StringVar(&values.TrustedSubnet, "t", "", "CIDR allowed to query internal stats")
	flags.StringVar(&values.ConfigFile, "c", "", "path to a JSON configuration file")

	if err := flags.Parse(args); err != nil {
		return Config{}, nil, fmt.Errorf("in internal/config/config.go/parseFlags(): error while `flags.Parse()` calling: %w", err)
	}

	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	return values, set, nil
}

func (c *Config) loadJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromFile jsonConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	parsed := Config{
		RunAddr:       fromFile.RunAddr,
		GRPCAddr:      fromFile.GRPCAddr,
		LogLevel:      fromFile.LogLevel,
		DatabaseURI:   fromFile.DatabaseURI,
		JWTSecret:     fromFile.JWTSecret,
		TrustedSubnet: fromFile.TrustedSubnet,
	}
	if fromFile.TokenTTL != "" {
		if parsed.TokenTTL, err = time.ParseDuration(fromFile.TokenTTL); err != nil {
			return fmt.Errorf("in internal/config/config.go/loadJSON(): bad token_ttl: %w", err)
		}
	}
	if fromFile.DBConnectionTimeout != "" {
		if parsed.DBConnectionTimeout, err = time.ParseDuration(fromFile.DBConnectionTimeout); err != nil {
			return fmt.Errorf("in internal/config/config.go/loadJSON(): bad db_connection_timeout: %w", err)
		}
	}

	c.override(parsed)

	return nil
}

// override copies every non-zero field of src onto c.
func (c *Config) override(src Config) {
	if src.RunAddr != "" {
		c.RunAddr = src.RunAddr
	}
	if src.GRPCAddr != "" {
		c.GRPCAddr = src.GRPCAddr
	}
	if src.LogLevel != "" {
		c.LogLevel = src.LogLevel
	}
	if src.DatabaseURI != "" {
		c.DatabaseURI = src.DatabaseURI
	}
	if src.JWTSecret != "" {
		c.JWTSecret = src.JWTSecret
	}
	if src.TokenTTL != 0 {
		c.TokenTTL = src.TokenTTL
	}
	if src.DBConnectionTimeout != 0 {
		c.DBConnectionTimeout = src.DBConnectionTimeout
	}
	if src.TrustedSubnet != "" {
		c.TrustedSubnet = src.TrustedSubnet
	}
}

func (c *Config) overrideFromFlags(src Config, set map[string]bool) {
	if set["a"] {
		c.RunAddr = src.RunAddr
	}
	if set["g"] {
		c.GRPCAddr = src.GRPCAddr
	}
	if set["l"] {
		c.LogLevel = src.LogLevel
	}
	if set["d"] {
		c.DatabaseURI = src.DatabaseURI
	}
	if set["s"] {
		c.JWTSecret = src.JWTSecret
	}
	if set["ttl"] {
		c.TokenTTL = src.TokenTTL
	}
	if set["t"] {
		c.TrustedSubnet = src.TrustedSubnet
	}
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func validateDatabaseURI(fieldLevel validator.FieldLevel) bool {
	uri := fieldLevel.Field().String()
	for _, scheme := range databaseURISchemes {
		if strings.HasPrefix(uri, scheme) {
			return true
		}
	}

	return false
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("databaseuri", validateDatabaseURI); err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
