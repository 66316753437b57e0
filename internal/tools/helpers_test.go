package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/generic-mcp/internal/spec"
)

func parseFixture(t *testing.T, name string) *spec.Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	doc, err := spec.Parse(data, "", "")
	require.NoError(t, err)
	return doc
}

func parseInline(t *testing.T, body string) *spec.Document {
	t.Helper()
	doc, err := spec.Parse([]byte(body), "", "https://api.test")
	require.NoError(t, err)
	return doc
}

func endpointKeys(eps []*Endpoint) []string {
	keys := make([]string, len(eps))
	for i, ep := range eps {
		keys[i] = ep.Key()
	}
	return keys
}

func findEndpoint(t *testing.T, eps []*Endpoint, key string) *Endpoint {
	t.Helper()
	for _, ep := range eps {
		if ep.Key() == key {
			return ep
		}
	}
	t.Fatalf("endpoint %s not found in %v", key, endpointKeys(eps))
	return nil
}
