package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"medreport-backend/internal/shared/config"
)

func TestRootCmd_RequiresFile(t *testing.T) {
	cmd := newRootCmd(config.Config{})
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "file") {
		t.Fatalf("expected required flag error, got %v", err)
	}
}

func TestRootCmd_FlagDefaultsFromConfig(t *testing.T) {
	cmd := newRootCmd(config.Config{LLMModel: "openai/gpt-4o-mini", LLMBaseURL: "http://llm.local/v1", LLMTemperature: 0.7})
	if got := cmd.Flags().Lookup("model").DefValue; got != "openai/gpt-4o-mini" {
		t.Fatalf("unexpected model default %q", got)
	}
	if got := cmd.Flags().Lookup("base-url").DefValue; got != "http://llm.local/v1" {
		t.Fatalf("unexpected base url default %q", got)
	}
	if got := cmd.Flags().Lookup("temperature").DefValue; got != "0.7" {
		t.Fatalf("unexpected temperature default %q", got)
	}
}

func TestRun_MissingFile(t *testing.T) {
	err := run(t.Context(), options{file: filepath.Join(t.TempDir(), "missing.pdf")}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "read report") {
		t.Fatalf("expected read error, got %v", err)
	}
}
