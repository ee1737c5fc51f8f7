package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/espcsi/bus"
	"github.com/vinayprograms/espcsi/errors"
	"github.com/vinayprograms/espcsi/logging"
)

func TestStandardPaths(t *testing.T) {
	paths := StandardPaths()
	if len(paths) < 2 {
		t.Errorf("expected at least 2 standard paths, got %d", len(paths))
	}
	if paths[0] != "espcsi.toml" {
		t.Errorf("first path should be espcsi.toml, got %s", paths[0])
	}
}

func TestDefault_ReproducesStockFirmware(t *testing.T) {
	cfg := Default()
	hb := cfg.LoopConfig()

	if hb.Banner != "ESP-CSI project started!" {
		t.Errorf("Banner = %q", hb.Banner)
	}
	if hb.Message != "Running..." {
		t.Errorf("Message = %q", hb.Message)
	}
	if hb.Interval != time.Second {
		t.Errorf("Interval = %v", hb.Interval)
	}
	if hb.TickRate != 100 {
		t.Errorf("TickRate = %d", hb.TickRate)
	}
	if cfg.Sink.Kind != SinkStdout {
		t.Errorf("Sink.Kind = %q", cfg.Sink.Kind)
	}
	if cfg.Monitor.Timeout.Duration != 3*time.Second {
		t.Errorf("Monitor.Timeout = %v", cfg.Monitor.Timeout)
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "espcsi.toml")

	content := `
[heartbeat]
interval = "250ms"
tick_rate = 1000

[device]
id = "esp-lab-1"

[sink]
kind = "stdout+nats"
nats_url = "nats://broker:4222"

[log]
level = "debug"

[monitor]
timeout = "1s"
check_interval = "100ms"
`
	os.WriteFile(path, []byte(content), 0644)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Heartbeat.Interval.Duration != 250*time.Millisecond {
		t.Errorf("Interval = %v", cfg.Heartbeat.Interval)
	}
	if cfg.Heartbeat.TickRate != 1000 {
		t.Errorf("TickRate = %d", cfg.Heartbeat.TickRate)
	}
	if cfg.Heartbeat.Banner != "ESP-CSI project started!" {
		t.Errorf("Banner should keep its default, got %q", cfg.Heartbeat.Banner)
	}
	if cfg.Device.ID != "esp-lab-1" {
		t.Errorf("Device.ID = %q", cfg.Device.ID)
	}
	if !cfg.UsesNATS() || !cfg.UsesStdout() {
		t.Error("stdout+nats should use both sinks")
	}
	if cfg.LogLevel() != logging.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel())
	}

	nc := cfg.NATSConfig("espcsi-esp-lab-1")
	if nc.URL != "nats://broker:4222" || nc.Name != "espcsi-esp-lab-1" {
		t.Errorf("NATSConfig = %+v", nc)
	}

	mc := cfg.WatchConfig(bus.NewMemoryBus(bus.DefaultConfig()), nil)
	if mc.Timeout != time.Second || mc.CheckInterval != 100*time.Millisecond {
		t.Errorf("WatchConfig = %+v", mc)
	}
}

func TestLoadFile_GeneratesDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "espcsi.toml")
	os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0644)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(cfg.Device.ID); err != nil {
		t.Errorf("Device.ID = %q, want a UUID", cfg.Device.ID)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"malformed toml", "[heartbeat\n", errors.ErrCodeConfigLoad},
		{"bad duration", "[heartbeat]\ninterval = \"soon\"\n", errors.ErrCodeConfigLoad},
		{"unknown key", "[heartbeat]\nperiod = \"1s\"\n", errors.ErrCodeConfigLoad},
		{"zero interval", "[heartbeat]\ninterval = \"0s\"\n", errors.ErrCodeInvalidConfig},
		{"negative tick rate", "[heartbeat]\ntick_rate = -1\n", errors.ErrCodeInvalidConfig},
		{"same banner and message", "[heartbeat]\nbanner = \"x\"\nmessage = \"x\"\n", errors.ErrCodeInvalidConfig},
		{"unknown sink", "[sink]\nkind = \"uart\"\n", errors.ErrCodeInvalidConfig},
		{"websocket without url", "[sink]\nkind = \"websocket\"\n", errors.ErrCodeInvalidConfig},
		{"nats without url", "[sink]\nkind = \"nats\"\nnats_url = \"\"\n", errors.ErrCodeInvalidConfig},
		{"bad level", "[log]\nlevel = \"loud\"\n", errors.ErrCodeInvalidConfig},
		{"bad device id", "[device]\nid = \"two words\"\n", errors.ErrCodeInvalidConfig},
		{"zero monitor timeout", "[monitor]\ntimeout = \"0s\"\n", errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "espcsi.toml")
			os.WriteFile(path, []byte(tt.content), 0644)

			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Code(err); got != tt.code {
				t.Errorf("code = %s, want %s (err: %v)", got, tt.code, err)
			}
		})
	}
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, errors.ErrCodeConfigLoad) {
		t.Errorf("err = %v, want CONFIG_LOAD", err)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, path, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.Heartbeat.Message != "Running..." {
		t.Errorf("Message = %q", cfg.Heartbeat.Message)
	}
}

func TestLoad_WorkingDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	os.WriteFile(filepath.Join(dir, "espcsi.toml"), []byte("[device]\nid = \"from-cwd\"\n"), 0644)

	cfg, path, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "espcsi.toml" {
		t.Errorf("path = %q", path)
	}
	if cfg.Device.ID != "from-cwd" {
		t.Errorf("Device.ID = %q", cfg.Device.ID)
	}
}

func TestLoad_HomeConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "espcsi")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "espcsi.toml"), []byte("[device]\nid = \"from-home\"\n"), 0644)

	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device.ID != "from-home" {
		t.Errorf("Device.ID = %q", cfg.Device.ID)
	}
}

func TestLoad_ExplicitPathWins(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	os.WriteFile(filepath.Join(dir, "espcsi.toml"), []byte("[device]\nid = \"cwd\"\n"), 0644)

	explicit := filepath.Join(t.TempDir(), "other.toml")
	os.WriteFile(explicit, []byte("[device]\nid = \"explicit\"\n"), 0644)

	cfg, path, err := Load(explicit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != explicit || cfg.Device.ID != "explicit" {
		t.Errorf("path = %q, id = %q", path, cfg.Device.ID)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvDeviceID, "esp-env")
	t.Setenv(EnvNATSURL, "nats://env:4222")
	t.Setenv(EnvLogLevel, "error")

	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device.ID != "esp-env" {
		t.Errorf("Device.ID = %q", cfg.Device.ID)
	}
	if cfg.Sink.NATSURL != "nats://env:4222" {
		t.Errorf("NATSURL = %q", cfg.Sink.NATSURL)
	}
	if cfg.LogLevel() != logging.LevelError {
		t.Errorf("LogLevel = %v", cfg.LogLevel())
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse("[heartbeat]\nmessage = \"alive\"\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Heartbeat.Message != "alive" {
		t.Errorf("Message = %q", cfg.Heartbeat.Message)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.ErrorCode
	}{
		{"unknown key", "[heartbeat]\nbogus_key = 1\n", errors.ErrCodeConfigLoad},
		{"unknown section", "[uart]\nbaud = 115200\n", errors.ErrCodeConfigLoad},
		{"malformed toml", "[heartbeat\n", errors.ErrCodeConfigLoad},
		{"line break in message", "[heartbeat]\nmessage = \"Running...\\nESP-CSI project started!\"\n", errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Code(err); got != tt.code {
				t.Errorf("code = %s, want %s (err: %v)", got, tt.code, err)
			}
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	d := Duration{1500 * time.Millisecond}
	b, _ := d.MarshalText()
	if string(b) != "1.5s" {
		t.Errorf("MarshalText = %q", b)
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
