package cli

import (
	"path/filepath"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/home/ada")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/home/ada", ".cache", "metricgraph"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	dir, err := layoutCacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg-cache", "metricgraph", "layout"); dir != want {
		t.Errorf("layoutCacheDir() = %q, want %q", dir, want)
	}
}

func TestDataDir(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		xdg     string
		want    string
		project string
	}{
		{name: "flag wins", flag: "/srv/mg", xdg: "/xdg", want: "/srv/mg/default/project.toml", project: "default"},
		{name: "xdg data home", xdg: "/xdg", want: "/xdg/metricgraph/growth/project.toml", project: "growth"},
		{name: "home fallback", want: "/home/ada/.local/share/metricgraph/default/project.toml", project: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_DATA_HOME", tt.xdg)
			t.Setenv("HOME", "/home/ada")
			c := &CLI{dataDir: tt.flag}

			got, err := c.configPath(tt.project)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("configPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigPathRejectsTraversal(t *testing.T) {
	c := &CLI{dataDir: t.TempDir()}
	if _, err := c.configPath("../etc"); err == nil {
		t.Error("configPath(../etc) should fail")
	}
}
