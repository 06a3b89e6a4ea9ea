package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func TestDecode_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "diary")
	var s sample
	if err := Decode(strings.NewReader("name: ${SAMPLE_NAME}\ncount: 3\n"), &s); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Name != "diary" || s.Count != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestDecode_KeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Count: 1}
	if err := Decode(strings.NewReader("count: 2\n"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" || s.Count != 2 {
		t.Errorf("got %+v", s)
	}

	if err := Decode(strings.NewReader(""), &s); err != nil {
		t.Fatalf("empty document: %v", err)
	}
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	var s sample
	if err := Decode(strings.NewReader("nmae: typo\n"), &s); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestDecode_Validates(t *testing.T) {
	var s sample
	err := Decode(strings.NewReader("count: -1\n"), &s)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	dir := t.TempDir()
	fallback := filepath.Join(dir, "default.yaml")
	if err := os.WriteFile(fallback, []byte("name: fallback\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var s sample
	if err := LoadWithDefaults(filepath.Join(dir, "missing.yaml"), fallback, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "fallback" {
		t.Errorf("name = %q", s.Name)
	}

	s = sample{Name: "kept"}
	if err := LoadWithDefaults(filepath.Join(dir, "missing.yaml"), "", &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "kept" {
		t.Errorf("name = %q", s.Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Fatal("expected error")
	}
}
