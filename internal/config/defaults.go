package config

import "github.com/bobmcallan/doc-mcp-server/internal/common"

// DefaultInstructions is announced to MCP clients during initialize.
const DefaultInstructions = "Call getSwaggerSpecification to see the expected Swagger 2.0 layout, " +
	"then call uploadSwaggerToApiFox with the ApiFox project ID, access token and the complete Swagger JSON."

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		APIFox: APIFoxConfig{
			BaseURL:    "https://api.apifox.com",
			APIVersion: "2024-03-28",
			Timeout:    "30s",
		},
		MCP: MCPConfig{
			Name:         common.ServiceName,
			Version:      common.GetVersion(),
			Instructions: DefaultInstructions,
		},
		SSE: SSEConfig{
			HeartbeatInterval: "30s",
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Outputs: []string{"console"},
		},
	}
}
