package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{
		BaseURL:     "https://app.loca.example",
		CookieName:  "session",
		CookieValue: "abc123",
		UserID:      "u-7",
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.BaseURL != "https://app.loca.example" {
		t.Errorf("BaseURL = %q, want %q", loaded.BaseURL, "https://app.loca.example")
	}
	if loaded.UserID != "u-7" {
		t.Errorf("UserID = %q, want u-7", loaded.UserID)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte("base_url = \"https://x.example\"\nuser_id = \"u-1\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CookieName != DefaultCookieName {
		t.Errorf("CookieName = %q, want %q", cfg.CookieName, DefaultCookieName)
	}
	if cfg.SendTimeout() != DefaultSendTimeout {
		t.Errorf("SendTimeout() = %v, want %v", cfg.SendTimeout(), DefaultSendTimeout)
	}
	if cfg.ProbeInterval() != DefaultProbeInterval {
		t.Errorf("ProbeInterval() = %v, want %v", cfg.ProbeInterval(), DefaultProbeInterval)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{BaseURL: "https://x.example", UserID: "u-1"}, false},
		{"missing base url", Config{UserID: "u-1"}, true},
		{"relative base url", Config{BaseURL: "/api", UserID: "u-1"}, true},
		{"missing user id", Config{BaseURL: "https://x.example"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSendTimeoutOverride(t *testing.T) {
	cfg := Config{SendTimeoutSeconds: 10}
	if cfg.SendTimeout() != 10*time.Second {
		t.Errorf("SendTimeout() = %v, want 10s", cfg.SendTimeout())
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{BaseURL: "https://x.example"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
