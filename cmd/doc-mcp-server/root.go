package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bobmcallan/doc-mcp-server/internal/app"
	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/config"
	"github.com/bobmcallan/doc-mcp-server/internal/server"
	"github.com/bobmcallan/doc-mcp-server/internal/transport/stdio"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// configNames are tried in order, first next to the binary and then in the
// working directory.
var configNames = []string{
	"doc-mcp-server.toml",
	filepath.Join("config", "doc-mcp-server.toml"),
	filepath.Join("config", "config.json"),
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           common.ServiceName,
		Short:         "MCP server for Swagger examples and ApiFox uploads",
		Version:       common.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.PersistentFlags().StringArrayP("config", "c", nil, "Configuration file path (repeatable, later files win)")
	root.Flags().Bool("stdio", false, "Serve JSON-RPC on stdin/stdout instead of HTTP")
	root.Flags().IntP("port", "p", 0, "Server port (overrides config)")
	root.Flags().String("host", "", "Server host (overrides config)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newUploadCmd())

	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	useStdio, _ := cmd.Flags().GetBool("stdio")

	cfg, files, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	config.ApplyFlagOverrides(cfg, port, host)
	if err := checkConfig(cmd.ErrOrStderr(), cfg); err != nil {
		return err
	}

	logger := common.NewLoggerFromConfig(cfg.Logging, cmd.ErrOrStderr())
	logger.Info().
		Bool("stdio", useStdio).
		Str("config_files", strings.Join(files, ",")).
		Msg("configuration loaded")

	application, err := app.New(cfg, logger)
	if err != nil {
		return exitError(1, "failed to initialize application: %v", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if useStdio {
		return serveStdio(ctx, cmd, application)
	}
	return serveHTTP(ctx, application)
}

func serveStdio(ctx context.Context, cmd *cobra.Command, application *app.App) error {
	srv, err := stdio.New(application.Dispatcher, stdio.Options{
		Name:         application.Config.MCP.Name,
		Version:      application.Config.MCP.Version,
		Instructions: application.Config.MCP.Instructions,
		In:           cmd.InOrStdin(),
		Out:          cmd.OutOrStdout(),
		Logger:       application.Logger,
	})
	if err != nil {
		return exitError(1, "failed to create stdio server: %v", err)
	}

	application.Logger.Info().Msg("serving on stdio")
	if err := srv.Serve(ctx); err != nil {
		return exitError(1, "stdio server failed: %v", err)
	}
	application.Logger.Info().Msg("stdio server stopped")
	return nil
}

func serveHTTP(ctx context.Context, application *app.App) error {
	srv := server.New(application)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return exitError(1, "%v", err)
		}
		return nil
	case <-ctx.Done():
		application.Logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return exitError(1, "%v", err)
	}
	return nil
}

// loadConfig merges the -c files, or the first discovered default file when
// none are given, over the built-in defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, []string, error) {
	files, _ := cmd.Flags().GetStringArray("config")
	if len(files) == 0 {
		if found := discoverConfig(configSearchPaths(executableDir(), workingDir())); found != "" {
			files = []string{found}
		}
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, nil, exitError(1, "failed to load configuration: %v", err)
	}
	return cfg, files, nil
}

func checkConfig(w io.Writer, cfg *config.Config) error {
	issues := cfg.Validate()
	if len(issues) == 0 {
		return nil
	}
	fmt.Fprintln(w, "Configuration error, fields are missing or invalid:")
	for _, issue := range issues {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
	fmt.Fprintln(w, "Values can be set via config file, DOC_MCP_* environment variables, or CLI flags.")
	return exitError(1, "invalid configuration")
}

// configSearchPaths lists candidate config files, binary-relative first.
// Duplicates are dropped when the binary runs from the working directory.
func configSearchPaths(exeDir, cwd string) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, dir := range []string{exeDir, cwd} {
		if dir == "" {
			continue
		}
		for _, name := range configNames {
			p := filepath.Clean(filepath.Join(dir, name))
			if seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

func discoverConfig(paths []string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
