package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	LLM           LLMConfig
	MCP           MCPConfig
	Neo4j         Neo4jConfig
	Gateway       GatewayConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LLMConfig configures the text-generation backend shared by the
// translator and the summarizer.
type LLMConfig struct {
	BaseURL              string
	APIKey               string
	Model                string
	TranslateTemperature float64
	SummaryTemperature   float64
	Timeout              time.Duration
	MaxGroundingChars    int
}

type MCPConfig struct {
	Endpoint           string
	ConnectTimeout     time.Duration
	CallTimeout        time.Duration
	MaxConnectAttempts int
}

type Neo4jConfig struct {
	URI            string
	Username       string
	Password       string
	Database       string
	ConnectTimeout time.Duration
}

type GatewayConfig struct {
	// RawDiagnostics controls whether the raw tool payload is echoed to
	// callers when query extraction fails. Off in prod.
	RawDiagnostics bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("GRAPHGATE_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid GRAPHGATE_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "GRAPHGATE_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GRAPHGATE_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "GRAPHGATE_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "GRAPHGATE_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "GRAPHGATE_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GRAPHGATE_LLM_BASE_URL", &cfg.LLM.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GRAPHGATE_LLM_API_KEY", &cfg.LLM.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GRAPHGATE_LLM_MODEL", &cfg.LLM.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "GRAPHGATE_LLM_TRANSLATE_TEMPERATURE", &cfg.LLM.TranslateTemperature); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "GRAPHGATE_LLM_SUMMARY_TEMPERATURE", &cfg.LLM.SummaryTemperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "GRAPHGATE_LLM_TIMEOUT", &cfg.LLM.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "GRAPHGATE_LLM_MAX_GROUNDING_CHARS", &cfg.LLM.MaxGroundingChars); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GRAPHGATE_MCP_ENDPOINT", &cfg.MCP.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "GRAPHGATE_MCP_CONNECT_TIMEOUT", &cfg.MCP.ConnectTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "GRAPHGATE_MCP_CALL_TIMEOUT", &cfg.MCP.CallTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "GRAPHGATE_MCP_MAX_CONNECT_ATTEMPTS", &cfg.MCP.MaxConnectAttempts); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GRAPHGATE_NEO4J_URI", &cfg.Neo4j.URI); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GRAPHGATE_NEO4J_USER", &cfg.Neo4j.Username); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GRAPHGATE_NEO4J_PASSWORD", &cfg.Neo4j.Password); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GRAPHGATE_NEO4J_DATABASE", &cfg.Neo4j.Database); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "GRAPHGATE_NEO4J_CONNECT_TIMEOUT", &cfg.Neo4j.ConnectTimeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "GRAPHGATE_GATEWAY_RAW_DIAGNOSTICS", &cfg.Gateway.RawDiagnostics); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "GRAPHGATE_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "GRAPHGATE_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "GRAPHGATE_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GRAPHGATE_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.LLM.MaxGroundingChars <= 0 {
		return Config{}, fmt.Errorf("GRAPHGATE_LLM_MAX_GROUNDING_CHARS must be positive")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "graphgate-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:              "https://api.openai.com",
			Model:                "gpt-4o-mini",
			TranslateTemperature: 0,
			SummaryTemperature:   0.2,
			Timeout:              30 * time.Second,
			MaxGroundingChars:    10000,
		},
		MCP: MCPConfig{
			Endpoint:           "http://localhost:8005/mcp",
			ConnectTimeout:     10 * time.Second,
			CallTimeout:        30 * time.Second,
			MaxConnectAttempts: 5,
		},
		Neo4j: Neo4jConfig{
			URI:            "bolt://localhost:7687",
			Username:       "neo4j",
			Password:       "password",
			Database:       "neo4j",
			ConnectTimeout: 10 * time.Second,
		},
		Gateway: GatewayConfig{
			RawDiagnostics: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Gateway.RawDiagnostics = false
		cfg.Auth.Required = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
