package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default("acme")
	if cfg.Company.Name != "acme" {
		t.Fatalf("company name = %q", cfg.Company.Name)
	}
	if cfg.Simulation.TicksPerWeek != 10080 {
		t.Fatalf("ticks_per_week = %d", cfg.Simulation.TicksPerWeek)
	}
	if !cfg.Simulation.AutoAssignEnabled() {
		t.Fatal("auto_assign should default on")
	}
	if cfg.Workgen.Default != "simulated" {
		t.Fatalf("workgen default = %q", cfg.Workgen.Default)
	}
}

func TestPartialFileFillsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("company:\n  name: tiny\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Simulation.PMEvalEvery != 50 || cfg.Simulation.EventRollEvery != 120 {
		t.Fatalf("cadence defaults not applied: %+v", cfg.Simulation)
	}
	if cfg.Simulation.MaxProposals != 3 {
		t.Fatalf("max proposals = %d", cfg.Simulation.MaxProposals)
	}
	if !cfg.Simulation.AutoAssignEnabled() {
		t.Fatal("auto_assign should default on when unset")
	}
}

func TestValidateRejectsMissingName(t *testing.T) {
	if _, err := FromYAML([]byte("company:\n  seed: 3\n")); err == nil {
		t.Fatal("missing company name accepted")
	}
}

func TestValidateRejectsNegativeMoney(t *testing.T) {
	if _, err := FromYAML([]byte("company:\n  name: x\n  starting_money: -5\n")); err == nil {
		t.Fatal("negative starting money accepted")
	}
}

func TestAutoAssignExplicitOff(t *testing.T) {
	cfg, err := FromYAML([]byte("company:\n  name: x\nsimulation:\n  auto_assign: false\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Simulation.AutoAssignEnabled() {
		t.Fatal("auto_assign: false not honored")
	}
}

func TestLoadFromWorkspace(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "devfirm.yml"), []byte(GenerateDefault("disk co")), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Company.Name != "disk co" {
		t.Fatalf("name = %q", cfg.Company.Name)
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("missing file must error")
	}
	opt, err := LoadOptional(t.TempDir())
	if err != nil || opt != nil {
		t.Fatalf("LoadOptional = %v, %v; want nil, nil", opt, err)
	}
}

func TestWorkgenOverrideValidation(t *testing.T) {
	bad := "company:\n  name: x\nworkgen:\n  overrides:\n    e1: \"\"\n"
	if _, err := FromYAML([]byte(bad)); err == nil {
		t.Fatal("empty override accepted")
	}
}
