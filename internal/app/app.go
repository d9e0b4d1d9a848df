package app

import (
	"fmt"

	"github.com/bobmcallan/doc-mcp-server/internal/apifox"
	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/config"
	"github.com/bobmcallan/doc-mcp-server/internal/handlers"
	"github.com/bobmcallan/doc-mcp-server/internal/mcp"
	"github.com/bobmcallan/doc-mcp-server/internal/swagger"
	"github.com/bobmcallan/doc-mcp-server/internal/tools"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Registry   *tools.Registry
	Dispatcher *tools.Dispatcher

	// HTTP handlers
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	ToolsHandler   *handlers.ToolsHandler
	SSEHandler     *handlers.SSEHandler
	MCPHandler     *mcp.Handler

	uploader apifox.Uploader
	spec     swagger.Reader
}

// Option customises App construction.
type Option func(*App)

// WithUploader replaces the ApiFox HTTP client.
func WithUploader(u apifox.Uploader) Option {
	return func(a *App) { a.uploader = u }
}

// WithSpecReader replaces the Swagger document source.
func WithSpecReader(r swagger.Reader) Option {
	return func(a *App) { a.spec = r }
}

// New initializes the application with all dependencies. Any error here
// means the process must not start serving.
func New(cfg *config.Config, logger *common.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.initCollaborators(); err != nil {
		return nil, err
	}
	if err := a.initTools(); err != nil {
		return nil, err
	}
	a.initHandlers()

	logger.Info().
		Int("tools", len(a.Registry.Names())).
		Msg("application initialization complete")

	return a, nil
}

func (a *App) initCollaborators() error {
	if a.spec == nil {
		src, err := swagger.NewSource(a.Config.Swagger.SpecPath)
		if err != nil {
			return fmt.Errorf("failed to initialise swagger source: %w", err)
		}
		a.Logger.Debug().Str("origin", src.Origin()).Msg("swagger source ready")
		a.spec = src
	}

	if a.uploader == nil {
		a.uploader = apifox.NewClient(
			a.Config.APIFox.BaseURL,
			a.Config.APIFox.APIVersion,
			a.Config.APIFox.GetTimeout(),
			a.Logger,
		)
	}
	return nil
}

func (a *App) initTools() error {
	registry, err := tools.NewRegistry(
		swagger.SpecificationTool(a.spec, a.Logger),
		apifox.UploadTool(a.uploader, a.Logger),
	)
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}
	a.Registry = registry
	a.Dispatcher = tools.NewDispatcher(registry, a.Logger)
	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Config.MCP.Name, a.Config.MCP.Version)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ToolsHandler = handlers.NewToolsHandler(a.Dispatcher, a.Logger)
	a.SSEHandler = handlers.NewSSEHandler(
		a.Registry,
		a.Config.MCP.Name,
		a.Config.MCP.Version,
		a.Config.SSE.GetHeartbeatInterval(),
		a.Logger,
	)
	a.MCPHandler = mcp.NewHandler(a.Config, a.Dispatcher, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}
