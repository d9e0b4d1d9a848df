package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig         `toml:"server" yaml:"server" json:"server"`
	APIFox  APIFoxConfig         `toml:"apifox" yaml:"apifox" json:"apifox"`
	MCP     MCPConfig            `toml:"mcp" yaml:"mcp" json:"mcp"`
	Swagger SwaggerConfig        `toml:"swagger" yaml:"swagger" json:"swagger"`
	SSE     SSEConfig            `toml:"sse" yaml:"sse" json:"sse"`
	Logging common.LoggingConfig `toml:"logging" yaml:"logging" json:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port" yaml:"port" json:"port"`
	Host string `toml:"host" yaml:"host" json:"host"`
}

// APIFoxConfig contains the ApiFox open API settings.
// ProjectID and AccessToken are only defaults for the upload command; the
// upload tool always takes them as arguments.
type APIFoxConfig struct {
	BaseURL     string `toml:"base_url" yaml:"base_url" json:"base_url"`
	APIVersion  string `toml:"api_version" yaml:"api_version" json:"api_version"`
	ProjectID   string `toml:"project_id" yaml:"project_id" json:"project_id"`
	AccessToken string `toml:"access_token" yaml:"access_token" json:"access_token"`
	Timeout     string `toml:"timeout" yaml:"timeout" json:"timeout"`
}

// GetTimeout parses and returns the upload timeout.
func (c *APIFoxConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// MCPConfig describes the server in MCP handshakes.
type MCPConfig struct {
	Name         string `toml:"name" yaml:"name" json:"name"`
	Version      string `toml:"version" yaml:"version" json:"version"`
	Instructions string `toml:"instructions" yaml:"instructions" json:"instructions"`
}

// SwaggerConfig overrides the embedded example document.
type SwaggerConfig struct {
	SpecPath string `toml:"spec_path" yaml:"spec_path" json:"spec_path"`
}

// SSEConfig contains event-stream settings.
type SSEConfig struct {
	HeartbeatInterval string `toml:"heartbeat_interval" yaml:"heartbeat_interval" json:"heartbeat_interval"`
}

// GetHeartbeatInterval parses and returns the heartbeat interval.
func (c *SSEConfig) GetHeartbeatInterval() time.Duration {
	d, err := time.ParseDuration(c.HeartbeatInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. The decoder is chosen by extension:
// .toml (default), .yaml/.yml or .json.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := decode(path, data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

func decode(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return decodeJSON(data, config)
	default:
		return toml.Unmarshal(data, config)
	}
}

// legacyJSON is the camelCase config.json layout used by earlier deployments
// of the server ({app, apifox.api, mcp.server}).
type legacyJSON struct {
	App *struct {
		Port int `json:"port"`
	} `json:"app"`
	APIFox *struct {
		API *struct {
			BaseURL     string `json:"baseUrl"`
			Version     string `json:"version"`
			ProjectID   string `json:"projectId"`
			AccessToken string `json:"accessToken"`
		} `json:"api"`
	} `json:"apifox"`
	MCP *struct {
		Server *struct {
			Name         string `json:"name"`
			Version      string `json:"version"`
			Instructions string `json:"instructions"`
		} `json:"server"`
	} `json:"mcp"`
}

// decodeJSON accepts both the native layout and the legacy camelCase one.
// Legacy values are applied after native values and only when non-empty.
func decodeJSON(data []byte, config *Config) error {
	if err := json.Unmarshal(data, config); err != nil {
		return err
	}

	var legacy legacyJSON
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	if legacy.App != nil && legacy.App.Port > 0 {
		config.Server.Port = legacy.App.Port
	}
	if legacy.APIFox != nil && legacy.APIFox.API != nil {
		api := legacy.APIFox.API
		setIfNotEmpty(&config.APIFox.BaseURL, api.BaseURL)
		setIfNotEmpty(&config.APIFox.APIVersion, api.Version)
		setIfNotEmpty(&config.APIFox.ProjectID, api.ProjectID)
		setIfNotEmpty(&config.APIFox.AccessToken, api.AccessToken)
	}
	if legacy.MCP != nil && legacy.MCP.Server != nil {
		srv := legacy.MCP.Server
		setIfNotEmpty(&config.MCP.Name, srv.Name)
		setIfNotEmpty(&config.MCP.Version, srv.Version)
		setIfNotEmpty(&config.MCP.Instructions, srv.Instructions)
	}
	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// applyEnvOverrides applies DOC_MCP_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("DOC_MCP_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DOC_MCP_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if v := os.Getenv("DOC_MCP_APIFOX_BASE_URL"); v != "" {
		config.APIFox.BaseURL = v
	}
	if v := os.Getenv("DOC_MCP_APIFOX_API_VERSION"); v != "" {
		config.APIFox.APIVersion = v
	}
	if v := os.Getenv("DOC_MCP_APIFOX_PROJECT_ID"); v != "" {
		config.APIFox.ProjectID = v
	}
	if v := os.Getenv("DOC_MCP_APIFOX_ACCESS_TOKEN"); v != "" {
		config.APIFox.AccessToken = v
	}
	if v := os.Getenv("DOC_MCP_SWAGGER_SPEC_PATH"); v != "" {
		config.Swagger.SpecPath = v
	}
	if level := os.Getenv("DOC_MCP_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate returns a list of human-readable configuration problems.
// An empty list means the configuration is usable.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}

	if c.APIFox.BaseURL == "" {
		issues = append(issues, "apifox.base_url is required")
	} else if u, err := url.Parse(c.APIFox.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		issues = append(issues, fmt.Sprintf("apifox.base_url must be an absolute http(s) URL (got %q)", c.APIFox.BaseURL))
	}
	if c.APIFox.APIVersion == "" {
		issues = append(issues, "apifox.api_version is required")
	}
	if c.APIFox.Timeout != "" {
		if d, err := time.ParseDuration(c.APIFox.Timeout); err != nil || d <= 0 {
			issues = append(issues, fmt.Sprintf("apifox.timeout must be a positive duration (got %q)", c.APIFox.Timeout))
		}
	}
	if c.SSE.HeartbeatInterval != "" {
		if d, err := time.ParseDuration(c.SSE.HeartbeatInterval); err != nil || d <= 0 {
			issues = append(issues, fmt.Sprintf("sse.heartbeat_interval must be a positive duration (got %q)", c.SSE.HeartbeatInterval))
		}
	}
	if c.MCP.Name == "" {
		issues = append(issues, "mcp.name is required")
	}

	return issues
}
