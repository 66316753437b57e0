package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/generic-mcp/internal/common"
	"github.com/bobmcallan/generic-mcp/internal/config"
	"github.com/bobmcallan/generic-mcp/internal/dispatch"
	"github.com/bobmcallan/generic-mcp/internal/handlers"
	"github.com/bobmcallan/generic-mcp/internal/mcp"
	"github.com/bobmcallan/generic-mcp/internal/metrics"
	"github.com/bobmcallan/generic-mcp/internal/spec"
	"github.com/bobmcallan/generic-mcp/internal/tools"
)

// Source is one configured API after loading.
type Source struct {
	Name       string
	Config     config.SourceConfig
	Document   *spec.Document
	Catalog    *tools.Catalog
	Dispatcher *dispatch.Dispatcher
}

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Metrics *metrics.Collector
	Sources []*Source

	// routes maps a tool name to the source that owns it.
	routes map[string]*Source

	// HTTP handlers
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	ToolsHandler   *handlers.ToolsHandler
	MCPServer      *mcpserver.MCPServer
	MCPHandler     *mcp.Handler
}

// New loads every enabled source and initializes the handlers.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	sources, err := LoadSources(ctx, cfg, logger, a.Metrics)
	if err != nil {
		return nil, err
	}
	if err := a.setSources(sources); err != nil {
		return nil, err
	}

	a.initHandlers()

	logger.Info().
		Int("sources", len(a.Sources)).
		Int("tools", len(a.routes)).
		Msg("application initialization complete")

	return a, nil
}

// LoadSources loads the enabled sources concurrently and returns them in
// configuration order. The first failure cancels the rest.
func LoadSources(ctx context.Context, cfg *config.Config, logger *common.Logger, m *metrics.Collector) ([]*Source, error) {
	enabled := cfg.EnabledSources()
	loader := spec.NewLoader(nil, logger)
	out := make([]*Source, len(enabled))

	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range enabled {
		g.Go(func() error {
			s, err := loadSource(gctx, loader, sc, logger, m)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func loadSource(ctx context.Context, loader *spec.Loader, sc config.SourceConfig, logger *common.Logger, m *metrics.Collector) (*Source, error) {
	doc, err := loader.Load(ctx, spec.Source{
		Name:    sc.Name,
		File:    sc.OpenAPIFile,
		URL:     sc.OpenAPIURL,
		DocsURL: sc.DocsURL,
		BaseURL: sc.BaseURL,
	})
	if err != nil {
		m.ObserveSpecLoad(sc.Name, dispatch.KindOf(err))
		return nil, fmt.Errorf("source %q: %w", sc.Name, err)
	}

	catalog, err := tools.Build(sc.Name, doc, PolicyFor(sc.Tools))
	if err != nil {
		m.ObserveSpecLoad(sc.Name, dispatch.KindOf(err))
		return nil, fmt.Errorf("source %q: %w", sc.Name, err)
	}
	m.ObserveSpecLoad(sc.Name, "ok")
	m.SetCatalogSize(sc.Name, catalog.Len())

	for _, w := range catalog.Warnings() {
		logger.Warn().Str("source", sc.Name).Str("endpoint", w.Method+" "+w.Path).Msg(w.Message)
	}
	warnMissingHeaders(logger, sc, catalog)

	d := dispatch.New(catalog, dispatch.Options{
		Source:           sc.Name,
		BaseURL:          doc.BaseURL,
		Headers:          sc.Headers,
		Timeout:          sc.Timeout(),
		RateLimit:        sc.RateLimit,
		RateBurst:        sc.RateBurst,
		MaxResponseBytes: sc.MaxResponseBytes(),
	}, logger, m)

	logger.Info().
		Str("source", sc.Name).
		Str("base_url", doc.BaseURL).
		Int("tools", catalog.Len()).
		Int("warnings", len(catalog.Warnings())).
		Msg("catalog built")

	return &Source{
		Name:       sc.Name,
		Config:     sc,
		Document:   doc,
		Catalog:    catalog,
		Dispatcher: d,
	}, nil
}

// PolicyFor converts a source's tool settings into a generation policy.
func PolicyFor(tc config.ToolsConfig) tools.Policy {
	return tools.Policy{
		IncludeAll:      tc.IncludeAllEndpoints(),
		Include:         tc.Include,
		Exclude:         tc.Exclude,
		IncludeTags:     tc.IncludeTags,
		ExcludeTags:     tc.ExcludeTags,
		Prefix:          tc.Prefix,
		Case:            tc.Case,
		SimplifiedNames: tc.SimplifiedNames,
	}
}

// warnMissingHeaders logs required header parameters that no configured header supplies.
func warnMissingHeaders(logger *common.Logger, sc config.SourceConfig, catalog *tools.Catalog) {
	configured := make(map[string]bool, len(sc.Headers))
	for k := range sc.Headers {
		configured[strings.ToLower(k)] = true
	}
	reported := make(map[string]bool)
	for _, def := range catalog.Tools() {
		for _, h := range def.RequiredHeaders {
			key := strings.ToLower(h)
			if configured[key] || reported[key] {
				continue
			}
			reported[key] = true
			logger.Warn().
				Str("source", sc.Name).
				Str("header", h).
				Str("tool", def.Name).
				Msg("required header not configured, calls will be sent without it")
		}
	}
}

// setSources indexes tool names. A name owned by two sources is a configuration error.
func (a *App) setSources(sources []*Source) error {
	routes := make(map[string]*Source)
	for _, s := range sources {
		for _, name := range s.Catalog.Names() {
			if other, ok := routes[name]; ok {
				return fmt.Errorf("%w: tool %q is generated by sources %q and %q, set a tools.prefix on one of them",
					spec.ErrInvalidConfiguration, name, other.Name, s.Name)
			}
			routes[name] = s
		}
	}
	a.Sources = sources
	a.routes = routes
	return nil
}

// initHandlers initializes all HTTP handlers and the MCP server.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, func() int { return len(a.routes) })
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ToolsHandler = handlers.NewToolsHandler(a.Logger, catalogAdapter(a.Sources))

	a.MCPServer = mcp.NewServer(a.Config.Server.Name, common.GetVersion(), a, a.SourceStatuses, a.Logger)
	a.MCPHandler = mcp.NewHandler(a.MCPServer, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Tools returns every tool across sources, in source then catalog order.
func (a *App) Tools() []*tools.ToolDefinition {
	var out []*tools.ToolDefinition
	for _, s := range a.Sources {
		out = append(out, s.Catalog.Tools()...)
	}
	return out
}

// Invoke routes the call to the source that owns the tool.
func (a *App) Invoke(ctx context.Context, name string, args map[string]any) (*dispatch.Result, error) {
	s, ok := a.routes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dispatch.ErrToolNotFound, name)
	}
	return s.Dispatcher.Invoke(ctx, name, args)
}

// SourceStatuses describes the loaded sources for the version tool.
func (a *App) SourceStatuses() []mcp.SourceStatus {
	out := make([]mcp.SourceStatus, len(a.Sources))
	for i, s := range a.Sources {
		out[i] = mcp.SourceStatus{
			Name:    s.Name,
			Title:   s.Document.Title,
			Version: s.Document.APIVersion,
			BaseURL: s.Catalog.BaseURL,
			Tools:   s.Catalog.Len(),
		}
	}
	return out
}

// MetricsHandler serves the Prometheus registry, or 404 when metrics are disabled.
func (a *App) MetricsHandler() http.Handler {
	return a.Metrics.Handler()
}

// catalogAdapter converts loaded catalogs to the tools listing view.
func catalogAdapter(sources []*Source) func() []handlers.SourceView {
	return func() []handlers.SourceView {
		out := make([]handlers.SourceView, len(sources))
		for i, s := range sources {
			view := handlers.SourceView{
				Name:    s.Name,
				Title:   s.Catalog.Title,
				BaseURL: s.Catalog.BaseURL,
				Tools:   make([]handlers.ToolView, 0, s.Catalog.Len()),
			}
			for _, w := range s.Catalog.Warnings() {
				view.Warnings = append(view.Warnings, w.String())
			}
			for _, def := range s.Catalog.Tools() {
				view.Tools = append(view.Tools, handlers.ToolView{
					Name:        def.Name,
					Description: def.Description,
					Method:      def.Endpoint.Method,
					Path:        def.Endpoint.Path,
					Tags:        def.Endpoint.Tags,
					Deprecated:  def.Endpoint.Deprecated,
					InputSchema: def.InputSchema(),
				})
			}
			out[i] = view
		}
		return out
	}
}

// Close closes all application resources.
func (a *App) Close() error {
	return nil
}
