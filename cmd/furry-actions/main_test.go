package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/odvcencio/furry-actions/codeaction"
	"github.com/odvcencio/furry-actions/lsp"
	"github.com/odvcencio/furry-actions/tuihost"
)

func TestLanguageOf(t *testing.T) {
	tests := map[string]string{
		"main.go":       "go",
		"App.TSX":       "typescript",
		"lib/util.py":   "python",
		"README":        "plaintext",
		"script.sh":     "sh",
		"include/x.hpp": "cpp",
	}
	for path, want := range tests {
		if got := languageOf(path); got != want {
			t.Fatalf("languageOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestKeymapAndServersMerge(t *testing.T) {
	got := keymap(map[string]string{"ga": codeaction.CommandOpen, "<C-a>": "other"})
	want := map[string]string{"ga": codeaction.CommandOpen, "<C-a>": "other"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("keymap mismatch (-want +got):\n%s", diff)
	}

	table := servers(map[string]lsp.ServerConfig{"go": {Command: "gopls", Args: []string{"-remote=auto"}}})
	if len(table["go"].Args) != 1 || table["rust"].Command != "rust-analyzer" {
		t.Fatalf("servers = %+v", table)
	}
}

func TestRootDir(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pkg := filepath.Join(root, "internal", "pkg")
	if err := os.MkdirAll(pkg, 0o755); err != nil {
		t.Fatal(err)
	}
	uri, err := tuihost.URIFromPath(filepath.Join(pkg, "a.go"))
	if err != nil {
		t.Fatal(err)
	}
	if got := rootDir(string(uri)); got != root {
		t.Fatalf("rootDir = %q, want %q", got, root)
	}
}
