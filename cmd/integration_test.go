package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insightloom/internal/ai"
	"github.com/KaramelBytes/insightloom/internal/charts"
	"github.com/KaramelBytes/insightloom/internal/dashboard"
)

// resetFlags restores every flag to its default so state does not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

func execCmd(args ...string) error {
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("INSIGHTLOOM_DATA_DIR", filepath.Join(home, "data"))
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	return home
}

func writeSalesCSV(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("month,region,sales,units\n")
	regions := []string{"North", "South", "East"}
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "2024-%02d,%s,%d,%d\n", i+1, regions[i%3], 100+10*i, 5+i)
	}
	path := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func exportDashboard(t *testing.T, dir, name string) *dashboard.Dashboard {
	t.Helper()
	out := filepath.Join(dir, name+".json")
	runCmd(t, "export", name, "-o", out)
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var d dashboard.Dashboard
	require.NoError(t, json.Unmarshal(raw, &d))
	return &d
}

func TestCLI_AnalyzeForecastExportDelete(t *testing.T) {
	home := isolateHome(t)
	csvPath := writeSalesCSV(t, home)

	runCmd(t, "analyze", csvPath, "--name", "sales")
	runCmd(t, "dashboards")
	runCmd(t, "show", "sales", "--format", "yaml")

	d := exportDashboard(t, home, "sales")
	assert.Equal(t, "sales", d.Name)
	assert.Equal(t, 12, d.Rows)
	require.NotEmpty(t, d.Charts)
	for _, c := range d.Charts {
		assert.False(t, c.HasForecast())
	}

	runCmd(t, "forecast", "sales", "all", "--seed", "7")
	d = exportDashboard(t, home, "sales")
	forecasted := 0
	for _, c := range d.Charts {
		if c.HasForecast() {
			forecasted++
		}
	}
	assert.Equal(t, 3, forecasted, "line, bar and area charts gain forecast points")

	runCmd(t, "delete", "sales")
	assert.Error(t, execCmd("show", "sales"))
}

func TestCLI_AnalyzeNoSaveWritesOutput(t *testing.T) {
	home := isolateHome(t)
	csvPath := writeSalesCSV(t, home)
	out := filepath.Join(home, "dash.json")

	runCmd(t, "analyze", csvPath, "--json", "--no-save", "-o", out)
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"chartType": "line"`)
	assert.Error(t, execCmd("show", "sales"), "--no-save must not persist")
}

func TestCLI_AnalyzeBatchNamesDuplicates(t *testing.T) {
	home := isolateHome(t)
	for _, dir := range []string{"d1", "d2"} {
		p := filepath.Join(home, dir)
		require.NoError(t, os.MkdirAll(p, 0o755))
		writeSalesCSV(t, p)
	}
	runCmd(t, "analyze-batch", filepath.Join(home, "d*", "sales.csv"), "--quiet")
	runCmd(t, "show", "d1-sales")
	runCmd(t, "show", "d2-sales")
}

func TestCLI_ChatWithOllama(t *testing.T) {
	home := isolateHome(t)
	csvPath := writeSalesCSV(t, home)
	runCmd(t, "analyze", csvPath, "--name", "sales")

	reply := `{"response":"Added a pie.","charts":[{"type":"pie","title":"Units share","xField":"region","yField":"units","data":[{"region":"North","units":10},{"region":"South","units":5}]}]}`
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel, _ = req["model"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": reply},
			"done":    true,
		})
	}))
	defer srv.Close()
	t.Setenv("INSIGHTLOOM_OLLAMA_HOST", srv.URL)

	runCmd(t, "chat", "sales", "add", "a", "pie", "--provider", "ollama", "--model", "llama3.1:8b")
	assert.Equal(t, "llama3.1:8b", gotModel)

	d := exportDashboard(t, home, "sales")
	var pie *charts.ChartSpec
	for i := range d.Charts {
		if d.Charts[i].ChartType == charts.Pie {
			pie = &d.Charts[i]
		}
	}
	require.NotNil(t, pie)
	assert.Equal(t, "Units share", pie.Title)
	assert.NotEmpty(t, pie.ID)
	assert.Contains(t, pie.Insights[0], "North dominates")
}

func TestCLI_ChatTemperatureFlag(t *testing.T) {
	home := isolateHome(t)
	csvPath := writeSalesCSV(t, home)
	runCmd(t, "analyze", csvPath, "--name", "sales")

	var temps []any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Options map[string]any `json:"options"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		temps = append(temps, req.Options["temperature"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": `{"response":"ok","charts":[]}`},
			"done":    true,
		})
	}))
	defer srv.Close()
	t.Setenv("INSIGHTLOOM_OLLAMA_HOST", srv.URL)

	runCmd(t, "chat", "sales", "hi", "--provider", "ollama", "--temp", "0")
	runCmd(t, "chat", "sales", "hi", "--provider", "ollama")
	require.Len(t, temps, 2)
	assert.Equal(t, 0.0, temps[0], "explicit --temp 0 is sent")
	assert.Equal(t, 0.2, temps[1], "config default applies without the flag")
}

func TestCLI_ChatDryRunAndErrors(t *testing.T) {
	home := isolateHome(t)
	csvPath := writeSalesCSV(t, home)
	runCmd(t, "analyze", csvPath, "--name", "sales")

	runCmd(t, "chat", "sales", "what", "is", "trending", "--dry-run", "--prompt-limit", "2000")

	err := execCmd("chat", "sales", "hello", "--provider", "openrouter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENROUTER_API_KEY")

	err = execCmd("chat", "missing", "hello", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolateHome(t)
	cfgPath := filepath.Join(home, "config.yaml")
	runCmd(t, "--config", cfgPath, "config", "set", "sample_rows", "9")
	runCmd(t, "--config", cfgPath, "config", "show")
	raw, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "sample_rows: 9")
	assert.Error(t, execCmd("--config", cfgPath, "config", "set", "nope", "1"))
}

func TestChatErrorHints(t *testing.T) {
	unreach := fmt.Errorf("chat completion: %w", &ai.UnreachableError{Host: "http://127.0.0.1:11434", Err: os.ErrDeadlineExceeded})
	assert.Contains(t, chatErrorHint(unreach, ai.ProviderOllama, "m").Error(), "Ollama not reachable at http://127.0.0.1:11434")

	nf := &ai.ModelNotFoundError{APIError: &ai.APIError{StatusCode: 404}}
	assert.Contains(t, chatErrorHint(nf, ai.ProviderOllama, "qwen2.5:7b").Error(), "ollama pull qwen2.5:7b")

	auth := &ai.AuthError{APIError: &ai.APIError{StatusCode: 401}}
	assert.Contains(t, chatErrorHint(auth, ai.ProviderGemini, "m").Error(), "GEMINI_API_KEY")

	rl := &ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429}, RetryAfter: 3 * time.Second}
	assert.Contains(t, chatErrorHint(rl, ai.ProviderOpenRouter, "m").Error(), "try again in ~3s")

	assert.Contains(t, chatErrorHint(context.DeadlineExceeded, ai.ProviderOpenRouter, "m").Error(), "--timeout-sec")
	assert.Contains(t, chatErrorHint(os.ErrClosed, ai.ProviderOpenRouter, "m").Error(), "chat failed")
}

func TestBatchNames(t *testing.T) {
	files := []string{"a/sales.csv", "b/sales.csv", "b/costs.xlsx"}
	assert.Equal(t, []string{"a-sales", "b-sales", "costs"}, batchNames(files, ""))
	assert.Equal(t, []string{"costs__sheet-q3-totals"}, batchNames([]string{"costs.xlsx"}, " Q3 Totals! "))
}

func TestCLI_Models(t *testing.T) {
	isolateHome(t)
	runCmd(t, "models")
	runCmd(t, "models", "--provider", "ollama")
	assert.Error(t, execCmd("models", "--provider", "nope"))
}
