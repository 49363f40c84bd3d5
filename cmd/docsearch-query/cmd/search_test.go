package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/mia-cx/docsearch/internal/fusion"
	"github.com/mia-cx/docsearch/internal/scheduler"
)

func TestParentSlug(t *testing.T) {
	cases := map[string]string{
		"cats#0":             "cats",
		"getting-started#3":  "getting-started",
		"no-hash-here":       "no-hash-here",
		"a#b#2":              "a#b",
	}
	for in, want := range cases {
		if got := parentSlug(in); got != want {
			t.Errorf("parentSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseModeAndModeName(t *testing.T) {
	if got := parseMode("semantic"); got != scheduler.ModeSemantic {
		t.Errorf("parseMode(semantic) = %v, want ModeSemantic", got)
	}
	if got := parseMode("SEMANTIC"); got != scheduler.ModeSemantic {
		t.Errorf("parseMode is expected to be case-insensitive, got %v", got)
	}
	if got := parseMode("lexical"); got != scheduler.ModeLexical {
		t.Errorf("parseMode(lexical) = %v, want ModeLexical", got)
	}
	if got := parseMode("anything-else"); got != scheduler.ModeLexical {
		t.Errorf("parseMode should default to ModeLexical, got %v", got)
	}

	if got := modeName(scheduler.ModeSemantic); got != "semantic" {
		t.Errorf("modeName(ModeSemantic) = %q, want semantic", got)
	}
	if got := modeName(scheduler.ModeLexical); got != "lexical" {
		t.Errorf("modeName(ModeLexical) = %q, want lexical", got)
	}
}

func TestFusionMode(t *testing.T) {
	if got := fusionMode(scheduler.ModeSemantic); got != fusion.ModeSemantic {
		t.Errorf("fusionMode(ModeSemantic) = %v, want fusion.ModeSemantic", got)
	}
	if got := fusionMode(scheduler.ModeLexical); got != fusion.ModeLexical {
		t.Errorf("fusionMode(ModeLexical) = %v, want fusion.ModeLexical", got)
	}
}

func TestDefaultStatePath(t *testing.T) {
	path := defaultStatePath("cache.db")
	if !strings.HasSuffix(path, filepath.Join(".docsearch", "cache.db")) {
		t.Errorf("defaultStatePath = %q, want suffix .docsearch/cache.db", path)
	}
}
