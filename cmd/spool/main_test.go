package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spoolkit/spool/plan"
)

func TestRootCmdSubcommands(t *testing.T) {
	cmd := rootCmd()

	want := []string{"run", "resume", "status", "score", "watch", "version"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestResolveKind(t *testing.T) {
	tests := []struct {
		name      string
		flag      string
		hasSource bool
		want      plan.Kind
		wantErr   bool
	}{
		{name: "explicit analysis", flag: "analysis", want: plan.KindAnalysis},
		{name: "explicit generative", flag: "generative", want: plan.KindGenerative},
		{name: "inferred from source", flag: "", hasSource: true, want: plan.KindAnalysis},
		{name: "inferred without source", flag: "", hasSource: false, want: plan.KindGenerative},
		{name: "unknown kind", flag: "translation", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveKind(tt.flag, tt.hasSource)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveKind: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadSourceConcatenatesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# First\n\nalpha body")
	writeFile(t, filepath.Join(dir, "b.md"), "# Second\n\nbeta body")

	app := &App{}
	doc, err := loadSource(context.Background(), app, []string{filepath.Join(dir, "*.md")}, "")
	if err != nil {
		t.Fatalf("loadSource: %v", err)
	}

	for _, want := range []string{"# First", "alpha body", "# Second", "beta body"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("document text missing %q", want)
		}
	}
}

func TestLoadSourceRejectsBadInputs(t *testing.T) {
	app := &App{}

	if _, err := loadSource(context.Background(), app, nil, ""); err == nil {
		t.Error("expected error for empty inputs")
	}
	if _, err := loadSource(context.Background(), app, []string{"x.md"}, "http://example.com"); err == nil {
		t.Error("expected error for files and url together")
	}
	if _, err := loadSource(context.Background(), app, []string{filepath.Join(t.TempDir(), "*.md")}, ""); err == nil {
		t.Error("expected error when no files match")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("a very long task description", 10); got != "a very ..." {
		t.Errorf("got %q", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
