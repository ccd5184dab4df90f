// ABOUTME: Tests for CLI helpers, command flags, and command execution against a demo dataset.
// ABOUTME: Execution tests run the root command with --demo so no external stores are needed.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/vamos/internal/query"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"shorter than max", "hello", 10, "hello"},
		{"exactly max", "hello", 5, "hello"},
		{"longer than max", "hello world", 8, "hello..."},
		{"multibyte", "héllo wörld", 8, "héllo..."},
		{"empty", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		input  string
		length int
		want   string
	}{
		{"abc", 6, "abc   "},
		{"abc", 3, "abc"},
		{"abcdef", 3, "abcdef"},
		{"", 2, "  "},
		{"ü", 3, "ü  "},
	}
	for _, tt := range tests {
		if got := padRight(tt.input, tt.length); got != tt.want {
			t.Errorf("padRight(%q, %d) = %q, want %q", tt.input, tt.length, got, tt.want)
		}
	}
}

func TestPrintTable(t *testing.T) {
	tbl := query.NewTable("goal_status", "status", "count")
	tbl.Append("active", 12)
	tbl.Append("completed", 3)

	var buf bytes.Buffer
	printTable(&buf, tbl)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "status") || !strings.Contains(lines[0], "count") {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "active     12" {
		t.Errorf("row = %q, want aligned columns", lines[1])
	}
	if lines[2] != "completed  3" {
		t.Errorf("row = %q, want aligned columns", lines[2])
	}

	buf.Reset()
	printTable(&buf, query.NewTable("empty", "a"))
	if buf.String() != "No data.\n" {
		t.Errorf("empty table printed %q", buf.String())
	}
}

func TestRootCmdFlags(t *testing.T) {
	for _, name := range []string{"demo", "demo-users", "log-mode"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing persistent flag --%s", name)
		}
	}
	if f := rootCmd.PersistentFlags().Lookup("demo-users"); f.DefValue != "100" {
		t.Errorf("--demo-users default = %s, want 100", f.DefValue)
	}
}

func TestDashboardCmdFlags(t *testing.T) {
	tests := []struct {
		cmd  string
		flag string
		def  string
	}{
		{"weight", "days", "30"},
		{"calories", "days", "30"},
		{"heart-rate", "bins", "0"},
		{"bmi", "categories", "false"},
		{"activities", "from", ""},
		{"goals", "user", ""},
	}
	for _, tt := range tests {
		c, _, err := rootCmd.Find([]string{tt.cmd})
		if err != nil {
			t.Fatalf("Find(%s) failed: %v", tt.cmd, err)
		}
		f := c.Flags().Lookup(tt.flag)
		if f == nil {
			t.Errorf("%s: missing --%s", tt.cmd, tt.flag)
			continue
		}
		if f.DefValue != tt.def {
			t.Errorf("%s --%s default = %q, want %q", tt.cmd, tt.flag, f.DefValue, tt.def)
		}
	}
}

func TestFeedCmdSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range feedCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"start", "recent"} {
		if !names[want] {
			t.Errorf("feed is missing subcommand %s", want)
		}
	}
	if f := feedStartCmd.Flags().Lookup("interval"); f == nil || f.DefValue != "5s" {
		t.Errorf("feed start --interval = %v", f)
	}
	if f := feedStartCmd.Flags().Lookup("count"); f == nil || f.DefValue != "10" {
		t.Errorf("feed start --count = %v", f)
	}
	if f := feedRecentCmd.Flags().Lookup("limit"); f == nil || !strings.Contains(f.Usage, "0 for 500, at most 5000") {
		t.Errorf("feed recent --limit usage = %v", f)
	}
}

func TestExportCmdValidArgs(t *testing.T) {
	want := map[string]bool{"overview": false, "bmi_categories": false, "recent_feed": false}
	for _, a := range exportCmd.ValidArgs {
		if _, ok := want[a]; ok {
			want[a] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("export ValidArgs missing %s", name)
		}
	}
	if err := exportCmd.Args(exportCmd, []string{}); err == nil {
		t.Error("export with no query should fail")
	}
}

func TestUserCmdArgs(t *testing.T) {
	if err := userCmd.Args(userCmd, []string{}); err == nil {
		t.Error("user with no id should fail")
	}
	if err := userCmd.Args(userCmd, []string{"user-0001"}); err != nil {
		t.Errorf("user with one id failed: %v", err)
	}
}

// resetFlags restores flag-bound globals between executions of the shared root command.
func resetFlags() {
	filterUser, filterFrom, filterTo = "", "", ""
	trendDays = query.DefaultTrendDays
	hrBins = 0
	bmiByCat = false
	exportOutput = ""
	exportBins, exportLimit = 0, 0
	feedInterval = 5 * time.Second
	feedUsers = nil
	feedCount = 10
	feedDuration = 0
	feedLookback = time.Minute
	feedLimit = 0
	importVerbose = false
	snapshotOutput = ""
	logMode = ""
}

// runCLI executes the root command and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetFlags()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	if cerr := closeApp(); cerr != nil {
		t.Errorf("closeApp failed: %v", cerr)
	}
	return buf.String(), err
}

func demo(args ...string) []string {
	return append([]string{"--demo", "--demo-users", "12", "--log-mode", "nop"}, args...)
}

func TestGenerateCmd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	out, err := runCLI(t, "generate", dir, "--users", "5", "--coaches", "2", "--seed", "3")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.Contains(out, "Wrote sample data") {
		t.Errorf("unexpected output:\n%s", out)
	}
	for _, name := range []string{"postgres/users.csv", "postgres/activities.csv", "mongo/user_metrics.json", "mongo/sleep_records.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	if _, err := runCLI(t, "generate", dir, "--users", "0"); err == nil {
		t.Error("generate with zero users should fail")
	}
}

func TestDemoCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"overview", []string{"overview"}, []string{"total_users", "12", "unresolved_alerts"}},
		{"status", []string{"status"}, []string{"sqlite", "users", "memory", "user_metrics"}},
		{"bmi categories", []string{"bmi", "--categories"}, []string{"underweight", "normal", "overweight", "obese"}},
		{"user", []string{"user", "user-0001"}, []string{"user-0001", "Goals", "Activity summary"}},
		{"unknown user", []string{"user", "user-9999"}, []string{"No user user-9999"}},
		{"weight", []string{"weight", "--days", "90"}, []string{"avg_weight_kg"}},
		{"heart rate", []string{"heart-rate", "--bins", "4"}, []string{"count"}},
		{"goals", []string{"goals"}, []string{"active", "completed", "cancelled"}},
		{"export markdown", []string{"export", "goal_status", "markdown"}, []string{"## goal_status", "| status |"}},
		{"export yaml", []string{"export", "bmi_categories", "yaml"}, []string{"name: bmi_categories"}},
		{"feed recent", []string{"feed", "recent"}, []string{"No data."}},
		{"snapshot yaml", []string{"snapshot", "yaml"}, []string{"users:", "alerts:", "backend: sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, demo(tt.args...)...)
			if err != nil {
				t.Fatalf("%v failed: %v\n%s", tt.args, err, out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("%v output missing %q:\n%s", tt.args, w, out)
				}
			}
		})
	}
}

func TestDemoCommandErrors(t *testing.T) {
	tests := [][]string{
		{"export", "nope"},
		{"export", "overview", "xml"},
		{"activities", "--from", "yesterday"},
		{"feed", "start", "--interval", "30s"},
		{"snapshot", "csv"},
	}
	for _, args := range tests {
		if _, err := runCLI(t, demo(args...)...); err == nil {
			t.Errorf("%v should fail", args)
		}
	}
}

func TestExportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overview.json")
	out, err := runCLI(t, demo("export", "overview", "json", "-o", path)...)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, "Exported overview") {
		t.Errorf("unexpected output: %s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), `"name": "overview"`) {
		t.Errorf("export file content:\n%s", data)
	}
}

func TestImportCmd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if _, err := runCLI(t, "generate", dir, "--users", "4", "--coaches", "1"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	out, err := runCLI(t, demo("import", dir)...)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	for _, w := range []string{"users", "sleep_records", "Imported"} {
		if !strings.Contains(out, w) {
			t.Errorf("import output missing %q:\n%s", w, out)
		}
	}
}

func TestImportCmdReportsBrokenFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if _, err := runCLI(t, "generate", dir, "--users", "4", "--coaches", "1"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "mongo", "nutrition_logs.json")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mongo", "sleep_records.json"), []byte(`[{"record_id": "s1"`), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, demo("import", dir)...)
	if err != nil {
		t.Fatalf("import should survive a broken file: %v\n%s", err, out)
	}
	for _, w := range []string{"No file for nutrition_logs", "Could not read sleep_records", "decode JSON array", "Imported"} {
		if !strings.Contains(out, w) {
			t.Errorf("import output missing %q:\n%s", w, out)
		}
	}
}

func TestFeedStartForDuration(t *testing.T) {
	out, err := runCLI(t, demo("feed", "start", "--interval", "2s", "--count", "2", "--duration", "2500ms")...)
	if err != nil {
		t.Fatalf("feed start failed: %v", err)
	}
	if !strings.Contains(out, "Feed started for 2 users") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "Stopped after") {
		t.Errorf("feed did not report stopping:\n%s", out)
	}
}
