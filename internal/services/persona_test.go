package services

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPersona_Default(t *testing.T) {
	p, err := LoadPersona("")
	if err != nil {
		t.Fatal(err)
	}
	if p != DefaultPersona() {
		t.Fatalf("unexpected persona: %+v", p)
	}
	if p.seed().Role != "system" || p.priming().Role != "user" {
		t.Fatal("wrong roles for seed or priming entries")
	}
}

func TestLoadPersona_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	data := "name: Orca\nsystem_prompt: |\n  You are Orca.\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPersona(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Orca" || p.SystemPrompt != "You are Orca." {
		t.Fatalf("unexpected persona: %+v", p)
	}
	if p.PrimingPrompt != DefaultPersona().PrimingPrompt {
		t.Fatal("missing priming prompt should fall back to the default")
	}
}

func TestLoadPersona_Errors(t *testing.T) {
	if _, err := LoadPersona(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("name: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPersona(path); err == nil {
		t.Fatal("expected parse error")
	}
}
