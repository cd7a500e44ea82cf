// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mullion-foundation/mullion/fabric"
	"github.com/mullion-foundation/mullion/lib/ref"
)

const sampleManifest = `{
	// Panels provided by the editor package.
	"packages": [
		{
			"name": "editor",
			"panels": [
				{"name": "outline", "kind": "simple"},
				{"name": "terminal", "kind": "composite"},
			],
		},
		{
			"name": "inspector",
			"panels": [
				{"name": "properties", "kind": "simple"},
			],
		},
	],
}`

func TestParseAndTable(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, want := len(m.Packages), 2; got != want {
		t.Fatalf("len(Packages) = %d, want %d", got, want)
	}

	table, err := m.Table()
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if got, want := len(table), 3; got != want {
		t.Fatalf("len(table) = %d, want %d", got, want)
	}
	if got := table[ref.MustParsePanelID("editor.outline")]; got != fabric.PanelSimple {
		t.Fatalf("editor.outline kind = %v, want simple", got)
	}
	if got := table[ref.MustParsePanelID("editor.terminal")]; got != fabric.PanelComposite {
		t.Fatalf("editor.terminal kind = %v, want composite", got)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"packages": [`)); err == nil {
		t.Fatal("Parse accepted malformed input")
	}
}

func TestTableRejectsDuplicatePanel(t *testing.T) {
	m := &Manifest{Packages: []Package{{
		Name: "editor",
		Panels: []Panel{
			{Name: "outline", Kind: "simple"},
			{Name: "outline", Kind: "composite"},
		},
	}}}
	_, err := m.Table()
	if err == nil {
		t.Fatal("Table accepted a duplicate panel")
	}
	if !strings.Contains(err.Error(), "panels[1]") || !strings.Contains(err.Error(), "editor.outline") {
		t.Fatalf("error %q missing positional context", err)
	}
}

func TestTableRejectsDuplicatePackage(t *testing.T) {
	m := &Manifest{Packages: []Package{
		{Name: "editor"},
		{Name: "editor"},
	}}
	_, err := m.Table()
	if err == nil {
		t.Fatal("Table accepted a duplicate package")
	}
	if !strings.Contains(err.Error(), "packages[1]") {
		t.Fatalf("error %q missing positional context", err)
	}
}

func TestTableRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		pkg  Package
	}{
		{"empty package name", Package{Name: "", Panels: []Panel{{Name: "outline", Kind: "simple"}}}},
		{"empty panel name", Package{Name: "editor", Panels: []Panel{{Name: "", Kind: "simple"}}}},
		{"dotted panel name", Package{Name: "editor", Panels: []Panel{{Name: "out.line", Kind: "simple"}}}},
		{"unknown kind", Package{Name: "editor", Panels: []Panel{{Name: "outline", Kind: "floating"}}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := &Manifest{Packages: []Package{test.pkg}}
			if _, err := m.Table(); err == nil {
				t.Fatal("Table accepted an invalid entry")
			}
		})
	}
}

func TestTableEmptyManifest(t *testing.T) {
	m := &Manifest{}
	table, err := m.Table()
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if len(table) != 0 {
		t.Fatalf("len(table) = %d, want 0", len(table))
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panels.jsonc")
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := len(table), 3; got != want {
		t.Fatalf("len(table) = %d, want %d", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.jsonc")); err == nil {
		t.Fatal("Load succeeded on a missing file")
	}
}
