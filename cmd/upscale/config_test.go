package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigEmpty(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != (Config{}) {
		t.Errorf("empty path config = %+v, want zero", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upscale.yaml")
	data := `
quality: high
workers: 4
memoryLimitMB: 2048
hostLimitMB: 8192
ceilingFraction: 0.5
cpuOnly: true
metricsAddr: ":9090"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		Quality:         "high",
		Workers:         4,
		MemoryLimitMB:   2048,
		HostLimitMB:     8192,
		CeilingFraction: 0.5,
		CPUOnly:         true,
		MetricsAddr:     ":9090",
	}
	if *cfg != want {
		t.Errorf("config = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "quality: [unterminated"},
		{"bad quality", "quality: ultra"},
		{"negative workers", "workers: -2"},
		{"fraction above one", "ceilingFraction: 1.5"},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("%s: config accepted", tt.name)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/upscale.yaml"); err == nil {
		t.Error("missing file accepted")
	}
}
