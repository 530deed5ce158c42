package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mlorenz/drawbridge/pkg/errors"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Confluence.BaseURL = "https://wiki.example.com"
	cfg.Confluence.AuthType = "basic"
	cfg.Export.DefaultFormat = "svg"
	cfg.State.Backend = "mongo"
	cfg.State.MongoURI = "mongodb://localhost:27017"

	if err := Save(root, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Confluence.BaseURL != "https://wiki.example.com" || got.Confluence.AuthType != "basic" {
		t.Errorf("confluence config = %+v, want saved values", got.Confluence)
	}
	if got.Export.DefaultFormat != "svg" {
		t.Errorf("DefaultFormat = %q, want svg", got.Export.DefaultFormat)
	}
	if got.State.Backend != "mongo" || got.State.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("state config = %+v, want mongo backend", got.State)
	}
}

func TestLoadMissingWorkspace(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, errors.ErrCodeNotConfigured) {
		t.Errorf("Load() error = %v, want NOT_CONFIGURED", err)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, Dir), 0o755)
	os.WriteFile(filepath.Join(root, Dir, File), []byte("[confluence]\nbase_url = \"https://w\"\n"), 0o644)

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Export.DefaultFormat != "png" || cfg.Export.PNGScale != 2 {
		t.Errorf("export defaults = %+v, want png scale 2", cfg.Export)
	}
	if cfg.State.Backend != "file" || cfg.Cache.Backend != "file" {
		t.Errorf("backend defaults = %q/%q, want file/file", cfg.State.Backend, cfg.Cache.Backend)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, Dir), 0o755)
	os.WriteFile(filepath.Join(root, Dir, File), []byte("not = [valid"), 0o644)

	if _, err := Load(root); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Load() error = %v, want INVALID_INPUT", err)
	}
}

func TestFindWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, Dir), 0o755)
	nested := filepath.Join(root, "docs", "diagrams")
	os.MkdirAll(nested, 0o755)

	if got := FindWorkspaceRoot(nested); got != root {
		t.Errorf("FindWorkspaceRoot(%q) = %q, want %q", nested, got, root)
	}
	if got := FindWorkspaceRoot(t.TempDir()); got != "" {
		t.Errorf("FindWorkspaceRoot() outside a workspace = %q, want empty", got)
	}
}

func TestResolveCredentialsPAT(t *testing.T) {
	t.Setenv(EnvPAT, "tok-123")
	cc := ConfluenceConfig{AuthType: "pat"}

	creds, err := cc.ResolveCredentials()
	if err != nil {
		t.Fatalf("ResolveCredentials() error = %v", err)
	}
	if creds.Token != "tok-123" {
		t.Errorf("Token = %q, want tok-123", creds.Token)
	}
}

func TestResolveCredentialsPATMissing(t *testing.T) {
	t.Setenv(EnvPAT, "")
	cc := ConfluenceConfig{AuthType: "pat"}
	if _, err := cc.ResolveCredentials(); !errors.Is(err, errors.ErrCodeNotConfigured) {
		t.Errorf("ResolveCredentials() error = %v, want NOT_CONFIGURED", err)
	}
}

func TestResolveCredentialsBasic(t *testing.T) {
	t.Setenv(EnvUser, "alice")
	t.Setenv(EnvPassword, "secret")
	cc := ConfluenceConfig{AuthType: "basic"}

	creds, err := cc.ResolveCredentials()
	if err != nil {
		t.Fatalf("ResolveCredentials() error = %v", err)
	}
	if creds.Username != "alice" || creds.Password != "secret" {
		t.Errorf("creds = %+v, want alice/secret", creds)
	}
}

func TestResolveCredentialsBasicIncomplete(t *testing.T) {
	t.Setenv(EnvUser, "alice")
	t.Setenv(EnvPassword, "")
	cc := ConfluenceConfig{AuthType: "basic"}
	if _, err := cc.ResolveCredentials(); !errors.Is(err, errors.ErrCodeNotConfigured) {
		t.Errorf("ResolveCredentials() error = %v, want NOT_CONFIGURED", err)
	}
}

func TestResolveCredentialsUnknownType(t *testing.T) {
	cc := ConfluenceConfig{AuthType: "oauth"}
	if _, err := cc.ResolveCredentials(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ResolveCredentials() error = %v, want INVALID_INPUT", err)
	}
}
