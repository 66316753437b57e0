package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/generic-mcp/internal/app"
	"github.com/bobmcallan/generic-mcp/internal/common"
	"github.com/bobmcallan/generic-mcp/internal/config"
	"github.com/bobmcallan/generic-mcp/internal/dispatch"
	"github.com/bobmcallan/generic-mcp/internal/server"
)

var (
	configFiles []string
	serverPort  int
	serverHost  string
	useStdio    bool
)

var rootCmd = &cobra.Command{
	Use:           "generic-mcp",
	Short:         "Expose any REST API described by OpenAPI as MCP tools",
	Long:          `generic-mcp loads OpenAPI 3 or Swagger 2.0 descriptions and serves one MCP tool per API operation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generated tools over MCP (streamable HTTP or stdio)",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times)")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	serveCmd.Flags().StringVar(&serverHost, "host", "", "Server host (overrides config)")
	serveCmd.Flags().BoolVar(&useStdio, "stdio", false, "Serve MCP over stdin/stdout instead of HTTP")

	rootCmd.AddCommand(serveCmd, validateCmd, listToolsCmd, versionCmd)
}

func main() {
	common.LoadVersionFromFile()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration mistakes to 2 and everything else to 1.
func exitCode(err error) int {
	if dispatch.KindOf(err) == dispatch.KindInvalidConfiguration {
		return 2
	}
	return 1
}

// loadConfig resolves config files, applies flag overrides and validates.
func loadConfig(port int, host, transport string) (*config.Config, error) {
	files := configFiles
	if len(files) == 0 {
		for _, path := range configSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				files = append(files, path)
				break
			}
		}
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, err
	}

	config.ApplyFlagOverrides(cfg, port, host, transport)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	transport := ""
	if useStdio {
		transport = "stdio"
	}
	cfg, err := loadConfig(serverPort, serverHost, transport)
	if err != nil {
		return err
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)
	logger.Info().
		Str("transport", cfg.Server.Transport).
		Int("sources", len(cfg.EnabledSources())).
		Str("version", common.GetFullVersion()).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	if cfg.Server.Transport == "stdio" {
		logger.Info().Msg("serving MCP over stdio")
		stdio := mcpserver.NewStdioServer(application.MCPServer)
		if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	}

	srv := server.New(application)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d/mcp", cfg.Server.Host, cfg.Server.Port)).
		Msg("server ready")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Str("error", err.Error()).Msg("server shutdown failed")
	}

	logger.Info().Msg("server stopped")
	return nil
}

// configSearchPaths returns TOML files to auto-discover (first match wins).
// Binary-relative paths are tried first, with CWD fallbacks after.
func configSearchPaths() []string {
	candidates := []string{
		"generic-mcp.toml",
		"config/generic-mcp.toml",
	}

	exe, err := os.Executable()
	if err != nil {
		return candidates
	}
	binDir := filepath.Dir(exe)

	paths := []string{
		filepath.Join(binDir, "generic-mcp.toml"),
		filepath.Join(binDir, "config", "generic-mcp.toml"),
	}
	paths = append(paths, candidates...)

	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}
