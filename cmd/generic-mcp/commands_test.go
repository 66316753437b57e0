package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bobmcallan/generic-mcp/internal/app"
	"github.com/bobmcallan/generic-mcp/internal/spec"
	"github.com/bobmcallan/generic-mcp/internal/tools"
)

const shopSpec = `openapi: 3.0.3
info:
  title: Shop
  version: "2.1"
servers:
  - url: https://shop.test/v2
paths:
  /products/{id}:
    get:
      operationId: getProduct
      tags: [products]
      summary: Fetch a product
      description: Returns one product by id.
      parameters:
        - name: id
          in: path
          required: true
          schema: {type: string}
        - name: expand
          in: query
          schema: {type: boolean}
      responses:
        "200":
          description: ok
  /ping:
    get:
      operationId: ping
      responses:
        "204":
          description: ok
`

func buildShop(t *testing.T) (*spec.Document, *tools.Catalog) {
	t.Helper()
	doc, err := spec.Parse([]byte(shopSpec), "", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	catalog, err := tools.Build("shop", doc, tools.Policy{IncludeAll: true, Case: "snake"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return doc, catalog
}

func TestPrintCatalog_GroupsByTag(t *testing.T) {
	_, catalog := buildShop(t)

	var buf bytes.Buffer
	printCatalog(&buf, catalog)
	out := buf.String()

	for _, want := range []string{
		"# shop (https://shop.test/v2)",
		"[products]",
		"get_product  GET /products/{id}",
		"Fetch a product",
		"params: id* (path), expand (query)",
		"[other]",
		"ping  GET /ping",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Index(out, "[products]") > strings.Index(out, "[other]") {
		t.Error("expected untagged group last")
	}
}

func TestPrintValidation(t *testing.T) {
	doc, catalog := buildShop(t)

	var buf bytes.Buffer
	printValidation(&buf, []*app.Source{{Name: "shop", Document: doc, Catalog: catalog}})
	out := buf.String()

	if !strings.Contains(out, "shop: Shop (v2.1)") {
		t.Errorf("expected title line, got:\n%s", out)
	}
	if !strings.Contains(out, "OK: 1 sources, 2 tools") {
		t.Errorf("expected totals line, got:\n%s", out)
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(fmt.Errorf("wrap: %w", spec.ErrInvalidConfiguration)); got != 2 {
		t.Errorf("expected 2 for configuration errors, got %d", got)
	}
	if got := exitCode(errors.New("boom")); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("Fetch\n\nmore"); got != "Fetch" {
		t.Errorf("expected Fetch, got %q", got)
	}
	if got := firstLine(""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
