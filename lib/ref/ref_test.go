// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"strings"
	"testing"
)

func TestParseWindowID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:  "valid simple",
			input: "main",
		},
		{
			name:  "valid with hyphen and digits",
			input: "dev-tools-2",
		},
		{
			name:  "valid single character",
			input: "a",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: "window ID is empty",
		},
		{
			name:    "uppercase",
			input:   "Main",
			wantErr: "invalid character",
		},
		{
			name:    "slash",
			input:   "main/settings",
			wantErr: "invalid character",
		},
		{
			name:    "dot",
			input:   "main.window",
			wantErr: "invalid character",
		},
		{
			name:    "leading hyphen",
			input:   "-main",
			wantErr: "must not start with '-'",
		},
		{
			name:    "trailing hyphen",
			input:   "main-",
			wantErr: "must not end with '-'",
		},
		{
			name:    "too long",
			input:   strings.Repeat("a", 65),
			wantErr: "maximum is 64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ParseWindowID(tt.input)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseWindowID(%q) succeeded, want error containing %q", tt.input, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParseWindowID(%q) error = %q, want containing %q", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWindowID(%q) failed: %v", tt.input, err)
			}
			if w.String() != tt.input {
				t.Errorf("String() = %q, want %q", w.String(), tt.input)
			}
			if w.IsZero() {
				t.Error("IsZero() = true for valid window ID")
			}
		})
	}
}

func TestWindowIDTextRoundTrip(t *testing.T) {
	original := MustParseWindowID("dev-tools")
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	var decoded WindowID
	if err := decoded.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(%q) failed: %v", data, err)
	}
	if decoded != original {
		t.Errorf("round trip = %v, want %v", decoded, original)
	}

	// Zero value round-trips through the empty string.
	var zero WindowID
	data, err = zero.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText on zero value failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("zero value marshaled as %q, want empty", data)
	}
	var back WindowID
	if err := back.UnmarshalText(nil); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !back.IsZero() {
		t.Error("UnmarshalText(nil) produced non-zero WindowID")
	}
}

func TestParsePanelID(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantPkg   string
		wantPanel string
		wantErr   string
	}{
		{
			name:      "valid",
			input:     "editor.outline",
			wantPkg:   "editor",
			wantPanel: "outline",
		},
		{
			name:      "valid with hyphens",
			input:     "dev-tools.network-log",
			wantPkg:   "dev-tools",
			wantPanel: "network-log",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: "panel ID is empty",
		},
		{
			name:    "missing separator",
			input:   "outline",
			wantErr: "missing '.' separator",
		},
		{
			name:    "three segments",
			input:   "editor.outline.extra",
			wantErr: "more than two segments",
		},
		{
			name:    "empty package",
			input:   ".outline",
			wantErr: "panel package is empty",
		},
		{
			name:    "empty panel",
			input:   "editor.",
			wantErr: "panel name is empty",
		},
		{
			name:    "uppercase package",
			input:   "Editor.outline",
			wantErr: "invalid character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePanelID(tt.input)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ParsePanelID(%q) succeeded, want error containing %q", tt.input, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParsePanelID(%q) error = %q, want containing %q", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePanelID(%q) failed: %v", tt.input, err)
			}
			if p.Package() != tt.wantPkg {
				t.Errorf("Package() = %q, want %q", p.Package(), tt.wantPkg)
			}
			if p.Panel() != tt.wantPanel {
				t.Errorf("Panel() = %q, want %q", p.Panel(), tt.wantPanel)
			}
			if p.String() != tt.input {
				t.Errorf("String() = %q, want %q", p.String(), tt.input)
			}
		})
	}
}

func TestPanelIDTextRoundTrip(t *testing.T) {
	original := MustParsePanelID("terminal.scrollback")
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	var decoded PanelID
	if err := decoded.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(%q) failed: %v", data, err)
	}
	if decoded != original {
		t.Errorf("round trip = %v, want %v", decoded, original)
	}
}

func TestParseMessageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:  "valid namespaced",
			input: "mullion.window.info",
		},
		{
			name:  "valid flat",
			input: "save",
		},
		{
			name:  "valid with punctuation",
			input: "editor/save-all:v2",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: "message name is empty",
		},
		{
			name:    "embedded space",
			input:   "save all",
			wantErr: "invalid character",
		},
		{
			name:    "embedded tab",
			input:   "save\tall",
			wantErr: "invalid character",
		},
		{
			name:    "non-ascii",
			input:   "sauvegarderé",
			wantErr: "invalid character",
		},
		{
			name:    "too long",
			input:   strings.Repeat("m", 129),
			wantErr: "maximum is 128",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMessageName(tt.input)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseMessageName(%q) succeeded, want error containing %q", tt.input, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParseMessageName(%q) error = %q, want containing %q", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMessageName(%q) failed: %v", tt.input, err)
			}
			if m.String() != tt.input {
				t.Errorf("String() = %q, want %q", m.String(), tt.input)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"main", "secondary", "utility"} {
		r, err := ParseRole(valid)
		if err != nil {
			t.Fatalf("ParseRole(%q) failed: %v", valid, err)
		}
		if r.String() != valid {
			t.Errorf("String() = %q, want %q", r.String(), valid)
		}
	}

	if _, err := ParseRole("primary"); err == nil {
		t.Fatal("ParseRole(\"primary\") succeeded, want error")
	} else if !strings.Contains(err.Error(), "unknown window role") {
		t.Errorf("error = %q, want mention of unknown window role", err)
	}
}

func TestSessionID(t *testing.T) {
	var zero SessionID
	if !zero.IsZero() {
		t.Error("IsZero() = false for zero SessionID")
	}
	id := SessionID(1000)
	if id.IsZero() {
		t.Error("IsZero() = true for SessionID 1000")
	}
	if got := id.String(); got != "1000" {
		t.Errorf("String() = %q, want %q", got, "1000")
	}
}
