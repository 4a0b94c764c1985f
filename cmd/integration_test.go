package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/gwastrend/internal/gwas"
)

const header = "DISEASE/TRAIT,BROAD ANCESTRAL CATEGORY,NUMBER OF INDIVIDUALS,ASSOCIATION COUNT,DATE\n"

// resetFlags restores every flag to its default so invocations don't leak
// Changed state into each other.
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

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// writeParts splits the five fixture rows over three part files.
func writeParts(t *testing.T, dir string) []string {
	t.Helper()
	parts := []string{
		"Type 2 Diabetes,African American,1200,4,2010\nAsthma,African American,900,2,2011\n",
		"type 1 diabetes,European,5000,12,2011\n",
		"Diabetic retinopathy,african american or afro-caribbean,3000,9,2013\nHeight,East Asian,20000,80,2014\n",
	}
	var paths []string
	for i, body := range parts {
		p := filepath.Join(dir, "part"+string(rune('1'+i))+".csv")
		if err := os.WriteFile(p, []byte(header+body), 0o644); err != nil {
			t.Fatalf("write part: %v", err)
		}
		paths = append(paths, p)
	}
	return paths
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestCLI_PredictTextAndExports(t *testing.T) {
	home := isolate(t)
	parts := writeParts(t, home)
	csvOut := filepath.Join(home, "out", "trend.csv")
	pngOut := filepath.Join(home, "out", "trend.png")

	args := append([]string{"predict"}, parts...)
	args = append(args, "--trait", "diabet", "--ancestry", "african american", "--value", "2000",
		"--trend-out", csvOut, "--chart-out", pngOut)
	out := mustRun(t, args...)
	if !strings.Contains(out, "Matched 2 of 5 rows") {
		t.Fatalf("unexpected match line:\n%s", out)
	}
	if !strings.Contains(out, "✓ Predicted number of associations: ") {
		t.Fatalf("missing prediction:\n%s", out)
	}
	b, err := os.ReadFile(csvOut)
	if err != nil {
		t.Fatalf("read trend csv: %v", err)
	}
	if string(b) != "Year,Avg Sample Size\n2010,1200\n2013,3000\n" {
		t.Fatalf("unexpected trend csv %q", b)
	}
	png, err := os.ReadFile(pngOut)
	if err != nil || !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("chart not written as PNG: %v", err)
	}
}

func TestCLI_PredictJSONIsReproducible(t *testing.T) {
	home := isolate(t)
	parts := writeParts(t, home)
	args := append([]string{"predict"}, parts...)
	args = append(args, "--trait", "diabet", "--ancestry", "", "--value", "2500", "--format", "json", "--trees", "25")

	var first, second gwas.Result
	if err := json.Unmarshal([]byte(mustRun(t, args...)), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal([]byte(mustRun(t, args...)), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Matched != 3 || first.Prediction == nil {
		t.Fatalf("unexpected result: %+v", first)
	}
	if first.Prediction.Rounded != second.Prediction.Rounded {
		t.Fatalf("prediction not reproducible: %d vs %d", first.Prediction.Rounded, second.Prediction.Rounded)
	}
}

func TestCLI_PredictEmptyFilterWarns(t *testing.T) {
	home := isolate(t)
	parts := writeParts(t, home)
	args := append([]string{"predict"}, parts...)
	args = append(args, "--trait", "Nonexistent123", "--ancestry", "Nonexistent456", "--value", "10")
	out := mustRun(t, args...)
	if !strings.Contains(out, "⚠ Warning: No matching data for this trait and ancestry.") {
		t.Fatalf("missing warning:\n%s", out)
	}
	if strings.Contains(out, "Predicted") {
		t.Fatalf("should not predict on empty subset:\n%s", out)
	}
}

func TestCLI_MissingPartFails(t *testing.T) {
	home := isolate(t)
	parts := writeParts(t, home)
	args := append([]string{"predict"}, parts...)
	args = append(args, filepath.Join(home, "part9.csv"), "--value", "1")
	_, err := runCmd(t, args...)
	if err == nil || !strings.Contains(err.Error(), "part9.csv") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestCLI_PredictRequiresValue(t *testing.T) {
	isolate(t)
	if _, err := runCmd(t, "predict"); err == nil {
		t.Fatal("expected error without --value")
	}
}

func TestCLI_TrendToStdout(t *testing.T) {
	home := isolate(t)
	parts := writeParts(t, home)
	args := append([]string{"trend"}, parts...)
	args = append(args, "--trait", "diabet", "--ancestry", "african american", "--field", "associations")
	out := mustRun(t, args...)
	if out != "Year,Avg Association Count\n2010,4\n2013,9\n" {
		t.Fatalf("unexpected trend output %q", out)
	}
}

func TestCLI_ProfileAndGlobSource(t *testing.T) {
	home := isolate(t)
	writeParts(t, home)
	out := mustRun(t, "profile", "--source", "glob", filepath.Join(home, "part*.csv"), "--trait", "diabet", "--ancestry", "")
	if !strings.Contains(out, "[SUBSET SUMMARY]") || !strings.Contains(out, "Rows: 3") {
		t.Fatalf("unexpected profile:\n%s", out)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolate(t)
	mustRun(t, "config", "set", "default_trait", "Asthma")
	mustRun(t, "config", "set", "trees", "10")
	if _, err := os.Stat(filepath.Join(home, ".gwastrend", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := mustRun(t, "config", "show")
	if !strings.Contains(out, "default_trait: Asthma") || !strings.Contains(out, "trees: 10") {
		t.Fatalf("unexpected config:\n%s", out)
	}
	if _, err := runCmd(t, "config", "set", "trees", "many"); err == nil {
		t.Fatal("expected error for invalid trees")
	}
}
