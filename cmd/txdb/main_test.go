package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`rules:
  HEADERS_FOR_COOKIES: Set-Cookie
  RESPONSE_REGEXP_FOR_TODO: "Todo_____grep_____todo:[^<]*"
`), 0o644))

	cfgPath := filepath.Join(dir, "txdb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`sqlite:
  dir: `+filepath.Join(dir, "data")+`
log:
  level: disabled
rules:
  file: `+rules+`
target:
  default: acme
`), 0o644))
	return cfgPath
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestImportAndGrep(t *testing.T) {
	cfgPath := writeConfig(t)

	out := run(t, "--config", cfgPath, "import", "../../internal/har/testdata/sample.har", "--scope", "shop.example.com")
	assert.Contains(t, out, "imported 2 transactions")

	out = run(t, "--config", cfgPath, "grep", "--stats", "RESPONSE_REGEXP_FOR_TODO")
	var res []struct {
		Name         string `json:"name"`
		Outputs      []any  `json:"outputs"`
		MatchPercent int    `json:"matchPercent"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res, 1)
	assert.Equal(t, []any{"todo: remove debug"}, res[0].Outputs)
	assert.Equal(t, 100, res[0].MatchPercent)

	out = run(t, "--config", cfgPath, "search", "--criteria", `{"method":"POST"}`)
	var search struct {
		RecordsTotal    int `json:"records_total"`
		RecordsFiltered int `json:"records_filtered"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &search))
	assert.Equal(t, 2, search.RecordsTotal)
	assert.Equal(t, 1, search.RecordsFiltered)

	out = run(t, "--config", cfgPath, "stats", "-n", "1")
	var stats statsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, "acme", stats.Target)
	assert.EqualValues(t, 1, stats.InScope)
	assert.EqualValues(t, 1, stats.OutOfScope)
	require.Len(t, stats.Slowest, 1)
	assert.Equal(t, "https://shop.example.com/api/login?next=%2F", stats.Slowest[0].URL)
}
