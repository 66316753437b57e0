package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/generic-mcp/internal/app"
	"github.com/bobmcallan/generic-mcp/internal/common"
	"github.com/bobmcallan/generic-mcp/internal/tools"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load every configured API description and report the resulting catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		printValidation(cmd.OutOrStdout(), application.Sources)
		return nil
	},
}

var listToolsCmd = &cobra.Command{
	Use:   "list-tools",
	Short: "Print the generated tools grouped by tag",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		for _, s := range application.Sources {
			printCatalog(cmd.OutOrStdout(), s.Catalog)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "generic-mcp version %s\n", common.GetFullVersion())
	},
}

// loadApp loads config and catalogs with logging limited to warnings on stderr.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(0, "", "")
	if err != nil {
		return nil, err
	}
	cfg.Metrics.Enabled = false
	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" || cfg.Logging.Level == "trace" {
		cfg.Logging.Level = "warn"
	}
	return app.New(cmd.Context(), cfg, common.NewLoggerFromConfig(cfg.Logging))
}

func printValidation(w io.Writer, sources []*app.Source) {
	total := 0
	for _, s := range sources {
		doc := s.Document
		fmt.Fprintf(w, "%s: %s", s.Name, doc.Title)
		if doc.APIVersion != "" {
			fmt.Fprintf(w, " (v%s)", doc.APIVersion)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  spec version: %s\n", doc.SpecVersion)
		fmt.Fprintf(w, "  base URL:     %s\n", s.Catalog.BaseURL)
		fmt.Fprintf(w, "  tools:        %d\n", s.Catalog.Len())
		if warnings := s.Catalog.Warnings(); len(warnings) > 0 {
			fmt.Fprintf(w, "  warnings:     %d\n", len(warnings))
			for _, warn := range warnings {
				fmt.Fprintf(w, "    - %s\n", warn)
			}
		}
		total += s.Catalog.Len()
	}
	fmt.Fprintf(w, "OK: %d sources, %d tools\n", len(sources), total)
}

// printCatalog lists tools by tag with their parameters; required ones are marked with *.
func printCatalog(w io.Writer, c *tools.Catalog) {
	fmt.Fprintf(w, "# %s (%s)\n", c.Source, c.BaseURL)
	for _, g := range c.Groups() {
		fmt.Fprintf(w, "\n[%s]\n", g.Tag)
		for _, t := range g.Tools {
			fmt.Fprintf(w, "  %s  %s %s\n", t.Name, t.Endpoint.Method, t.Endpoint.Path)
			if line := firstLine(t.Description); line != "" {
				fmt.Fprintf(w, "      %s\n", line)
			}
			if params := parameterList(t.Schema); params != "" {
				fmt.Fprintf(w, "      params: %s\n", params)
			}
		}
	}
	fmt.Fprintln(w)
}

func parameterList(s *tools.InputSchema) string {
	if s == nil {
		return ""
	}
	parts := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		name := p.Name
		if p.Required {
			name += "*"
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", name, p.In))
	}
	return strings.Join(parts, ", ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
