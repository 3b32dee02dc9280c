package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetReportDir(); got != "queuecheck-reports" {
		t.Errorf("GetReportDir() default = %q, want %q", got, "queuecheck-reports")
	}
	if got := s.GetCommandTimeout(10 * time.Second); got != 10*time.Second {
		t.Errorf("GetCommandTimeout() default = %v", got)
	}
	if s.DefaultInterface != "" {
		t.Errorf("DefaultInterface should be empty, got %q", s.DefaultInterface)
	}
}

func TestSettings_SetGet(t *testing.T) {
	s := &Settings{}

	if err := s.Set("default_interface", "enp3s0f0"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if got, _ := s.Get("default_interface"); got != "enp3s0f0" {
		t.Errorf("Get(default_interface) = %q", got)
	}

	if err := s.Set("command_timeout", "30s"); err != nil {
		t.Fatalf("Set(command_timeout) failed: %v", err)
	}
	if got := s.GetCommandTimeout(time.Second); got != 30*time.Second {
		t.Errorf("GetCommandTimeout() = %v, want 30s", got)
	}

	if err := s.Set("link_backend", "ip"); err != nil {
		t.Fatalf("Set(link_backend) failed: %v", err)
	}
}

func TestSettings_SetInvalid(t *testing.T) {
	s := &Settings{}

	tests := []struct {
		key, value string
	}{
		{"command_timeout", "soon"},
		{"command_timeout", "-1s"},
		{"link_backend", "ifconfig"},
		{"no_such_key", "x"},
	}
	for _, tt := range tests {
		if err := s.Set(tt.key, tt.value); err == nil {
			t.Errorf("Set(%q, %q) should fail", tt.key, tt.value)
		}
	}
	if _, err := s.Get("no_such_key"); err == nil {
		t.Error("Get(no_such_key) should fail")
	}
}

func TestSettings_KeysResolve(t *testing.T) {
	s := &Settings{}
	for _, k := range Keys {
		if _, err := s.Get(k); err != nil {
			t.Errorf("Get(%q): %v", k, err)
		}
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{
		DefaultInterface: "eth0",
		EthtoolPath:      "/usr/sbin/ethtool",
		RedisAddr:        "127.0.0.1:6379",
	}

	s.Clear()

	if s.DefaultInterface != "" || s.EthtoolPath != "" || s.RedisAddr != "" {
		t.Error("Clear() should reset all fields to empty")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	original := &Settings{
		DefaultInterface: "enp3s0f0",
		EthtoolPath:      "/usr/sbin/ethtool",
		CommandTimeout:   "15s",
		LinkBackend:      "netlink",
		ReportDir:        "/var/tmp/qc",
		RedisAddr:        "10.0.0.5:6379",
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if *loaded != *original {
		t.Errorf("round trip mismatch: got %+v, want %+v", *loaded, *original)
	}
}

func TestSettings_LoadMissing(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFrom() of missing file: %v", err)
	}
	if s.DefaultInterface != "" {
		t.Error("missing file should give empty settings")
	}
}

func TestSettings_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() of corrupt file should fail")
	}
}
