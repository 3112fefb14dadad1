package planconfig

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

const sampleConfig = `{
  // written by the installer
  "preset": "openai",
  "theme": {"name": "dark"},
  "agents": {
    "oracle": {"model": "openai/gpt-5.3-codex", "temperature": 0.2, "skills": ["*"]},
    "custom-agent": {"model": "anthropic/claude-opus-4-6"},
  },
  "presets": {
    "openai": {
      "fixer": {"model": "openai/gpt-5-mini", "variant": "low"},
    },
    "zen": {
      "fixer": {"model": "opencode/big-pickle"}
    }
  },
  "fallback": {
    "enabled": false,
    "retries": 2,
    "chains": {"fixer": ["openai/gpt-5-mini", "opencode/big-pickle"]}
  }
}`

func TestParse_KnownAndUnknownKeys(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Preset != "openai" {
		t.Errorf("expected preset openai, got %q", cfg.Preset)
	}
	if _, ok := cfg.Extra["theme"]; !ok {
		t.Error("expected unknown top-level key to be kept")
	}
	oracle := cfg.Agents["oracle"]
	if oracle.Model != "openai/gpt-5.3-codex" {
		t.Errorf("unexpected oracle model %q", oracle.Model)
	}
	if string(oracle.Extra["temperature"]) != "0.2" {
		t.Errorf("expected temperature to be kept, got %s", oracle.Extra["temperature"])
	}
	if cfg.Fallback == nil || cfg.Fallback.Enabled == nil || *cfg.Fallback.Enabled {
		t.Fatalf("expected fallback.enabled=false, got %+v", cfg.Fallback)
	}
	if cfg.Fallback.TimeoutMs != nil {
		t.Error("expected absent timeoutMs to stay nil")
	}
	if string(cfg.Fallback.Extra["retries"]) != "2" {
		t.Errorf("expected fallback.retries kept, got %s", cfg.Fallback.Extra["retries"])
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("expected newline-terminated output")
	}
	if !strings.Contains(string(data), "\n  \"agents\": {") {
		t.Errorf("expected two-space indentation, got:\n%s", data)
	}

	again, err := Parse(data)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	if !reflect.DeepEqual(normalize(t, cfg), normalize(t, again)) {
		t.Errorf("round trip changed the configuration:\n%s", data)
	}
}

// normalize compares configurations through their canonical JSON form, so
// whitespace inside raw values does not matter.
func normalize(t *testing.T, c *Config) any {
	t.Helper()
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "{agents"},
		{"array", "[1,2]"},
		{"null", "null"},
		{"agent not object", `{"agents": {"oracle": "openai/gpt-5"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse([]byte("  \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, &Config{}) {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestActivePresetAgents(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := cfg.ActivePresetAgents()["fixer"].Model; got != "openai/gpt-5-mini" {
		t.Errorf("expected active preset agents, got fixer=%q", got)
	}

	cfg.Preset = "missing"
	if got := cfg.ActivePresetAgents()["oracle"].Model; got != "openai/gpt-5.3-codex" {
		t.Errorf("expected root agents for unknown preset, got oracle=%q", got)
	}
}

func TestAgentPrimary(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tests := []struct {
		role types.Role
		want string
	}{
		{types.RoleOracle, "openai/gpt-5.3-codex"},
		{types.RoleFixer, "openai/gpt-5-mini"},
		{types.RoleDesigner, ""},
	}
	for _, tt := range tests {
		if got := cfg.AgentPrimary(tt.role); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.role, tt.want, got)
		}
	}
}

func TestClone_Independent(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	before := normalize(t, cfg)

	clone := cfg.Clone()
	clone.Agents["oracle"] = AgentOverride{Model: "x/y"}
	clone.Presets["zen"]["fixer"] = AgentOverride{Model: "x/y"}
	clone.Fallback.Chains["fixer"][0] = "x/y"
	*clone.Fallback.Enabled = true
	clone.Extra["theme"][0] = ' '

	if !reflect.DeepEqual(before, normalize(t, cfg)) {
		t.Error("mutating the clone changed the original")
	}
}

func TestWriteFile_BackupAndAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, BaseName+".json")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Preset: "manual"}
	backup, err := WriteFile(path, cfg)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if backup != path+".bak" {
		t.Errorf("expected backup %s, got %s", path+".bak", backup)
	}

	prev, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(prev) != sampleConfig {
		t.Error("backup does not hold the previous contents")
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Preset != "manual" {
		t.Errorf("expected written preset, got %q", got.Preset)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected permissions to be preserved, got %v", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestWriteFile_NoPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	backup, err := WriteFile(path, &Config{Preset: "manual"})
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if backup != "" {
		t.Errorf("expected no backup, got %s", backup)
	}
}

func TestReadFile_NotFound(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	if got := DefaultPath(dir); got != filepath.Join(dir, BaseName+".json") {
		t.Errorf("expected .json default, got %s", got)
	}

	jsonc := filepath.Join(dir, BaseName+".jsonc")
	if err := os.WriteFile(jsonc, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DefaultPath(dir); got != jsonc {
		t.Errorf("expected .jsonc to win, got %s", got)
	}
}

func TestDefaultDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultDir(); got != filepath.Join("/tmp/xdg", "opencode") {
		t.Errorf("unexpected dir %s", got)
	}
}

func TestManualPlan_MarshalInRoleOrder(t *testing.T) {
	plan := ManualPlan{
		types.RoleFixer:        {Primary: "a/f"},
		types.RoleOrchestrator: {Primary: "a/o"},
		types.RoleOracle:       {Primary: "a/r"},
	}
	data, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	o, r, f := strings.Index(s, `"orchestrator"`), strings.Index(s, `"oracle"`), strings.Index(s, `"fixer"`)
	if !(o < r && r < f) {
		t.Errorf("expected plan order, got %s", s)
	}

	var back ManualPlan
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, plan) {
		t.Errorf("expected %v, got %v", plan, back)
	}
}

func TestMarshal_KeepsMarkupUnescaped(t *testing.T) {
	const src = `{
  "agents": {"designer": {"model": "google/gemini-3-pro", "prompt": "use <b> & <i>"}},
  "presets": {"zen": {"fixer": {"model": "opencode/big-pickle", "note": "a < b"}}},
  "fallback": {"chains": {}, "hint": "x && y"},
  "banner": "<hello>"
}`
	cfg, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg.ManualPlan = ManualPlan{types.RoleFixer: {Primary: "a/<1>", Fallback1: "b/2&3", Fallback2: "c/3", Fallback3: "d/4"}}

	out, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, want := range []string{"use <b> & <i>", "a < b", "x && y", "<hello>", "a/<1>", "b/2&3"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output lost %q:\n%s", want, out)
		}
	}
	if strings.Contains(string(out), `\u00`) {
		t.Errorf("output contains escaped markup:\n%s", out)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(Marshal): %v", err)
	}
	out2, err := Marshal(again)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != string(out2) {
		t.Errorf("second round trip changed bytes:\n%s\n%s", out, out2)
	}
}
