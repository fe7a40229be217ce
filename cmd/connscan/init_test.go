package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/connscan/internal/config"
)

func runInitCmd(t *testing.T, args ...string) error {
	t.Helper()
	cmd := initCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestInitCommand_BasicConfigCreation(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".connscan.yaml")

	if err := runInitCmd(t, "--config", configPath); err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	expectedSections := []string{
		"policy: default",
		"analysis:",
		"detectors:",
		"magic_literal:",
		"mece:",
		"scoring:",
		"trend:",
		"check:",
		"output:",
	}
	for _, section := range expectedSections {
		if !strings.Contains(string(content), section) {
			t.Errorf("Config file missing expected section: %s", section)
		}
	}
}

func TestInitCommand_ProfileAndProjectType(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".connscan.yaml")

	if err := runInitCmd(t, "--config", configPath, "--profile", "nasa_jpl_pot10", "--project-type", "c"); err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	content, _ := os.ReadFile(configPath)
	if !strings.Contains(string(content), "policy: nasa_jpl_pot10") {
		t.Error("Config should record the chosen profile")
	}
	if strings.Contains(string(content), `"**/*.py"`) {
		t.Error("C project config should not include Python sources")
	}

	cfg, err := config.LoadConfigWithTarget(configPath, "", "")
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if !cfg.Detectors.Safety.Enabled {
		t.Error("nasa_jpl_pot10 config should enable safety rules")
	}
}

func TestInitCommand_UnknownProfile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".connscan.yaml")

	if err := runInitCmd(t, "--config", configPath, "--profile", "paranoid"); err == nil {
		t.Fatal("Expected error for unknown profile")
	}
	if _, err := os.Stat(configPath); !os.IsNotExist(err) {
		t.Error("No file should be written for an unknown profile")
	}
}

func TestInitCommand_UnknownProjectType(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".connscan.yaml")

	err := runInitCmd(t, "--config", configPath, "--project-type", "rust")
	if err == nil || !strings.Contains(err.Error(), "unknown project type") {
		t.Fatalf("Expected unknown project type error, got: %v", err)
	}
}

func TestInitCommand_ForceOverwrite(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".connscan.yaml")

	if err := os.WriteFile(configPath, []byte("existing: true\n"), 0644); err != nil {
		t.Fatalf("Failed to create existing file: %v", err)
	}

	err := runInitCmd(t, "--config", configPath)
	if err == nil {
		t.Fatal("Expected error when file exists without --force")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}

	if err := runInitCmd(t, "--config", configPath, "--force"); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}

	content, _ := os.ReadFile(configPath)
	if !strings.Contains(string(content), "detectors:") {
		t.Error("Config file was not overwritten with new content")
	}
}

func TestInitCommand_MinimalConfig(t *testing.T) {
	dir := t.TempDir()
	fullPath := filepath.Join(dir, "full.yaml")
	minimalPath := filepath.Join(dir, "minimal.yaml")

	if err := runInitCmd(t, "--config", fullPath); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := runInitCmd(t, "--config", minimalPath, "--minimal"); err != nil {
		t.Fatalf("init --minimal failed: %v", err)
	}

	fullContent, _ := os.ReadFile(fullPath)
	minimalContent, _ := os.ReadFile(minimalPath)

	if !strings.Contains(string(minimalContent), "minimal") {
		t.Error("Minimal config should indicate it's minimal")
	}
	if len(fullContent) <= len(minimalContent) {
		t.Error("Full config should be larger than minimal config")
	}
}

func TestInitCommand_InvalidDirectory(t *testing.T) {
	err := runInitCmd(t, "--config", "/nonexistent/directory/.connscan.yaml")
	if err == nil {
		t.Fatal("Expected error when directory doesn't exist")
	}
	if !strings.Contains(err.Error(), "directory does not exist") {
		t.Errorf("Expected 'directory does not exist' error, got: %v", err)
	}
}
