// Copyright 2025 Certen Protocol

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Node.Network != NetworkLive {
		t.Errorf("Network = %q, want %q", cfg.Node.Network, NetworkLive)
	}
	if cfg.Node.OnlineWeightQuorumPercent != 50 {
		t.Errorf("OnlineWeightQuorumPercent = %d, want 50", cfg.Node.OnlineWeightQuorumPercent)
	}
	if cfg.Node.VoteGeneratorThreshold != 3 {
		t.Errorf("VoteGeneratorThreshold = %d, want 3", cfg.Node.VoteGeneratorThreshold)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[node]
network = "test"
data_path = "/tmp/consensuscore-test"
active_elections_size = 1234
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Node.Network != NetworkTest {
		t.Errorf("Network = %q, want %q", cfg.Node.Network, NetworkTest)
	}
	if cfg.Node.DataPath != "/tmp/consensuscore-test" {
		t.Errorf("DataPath = %q", cfg.Node.DataPath)
	}
	if cfg.Node.ActiveElectionsSize != 1234 {
		t.Errorf("ActiveElectionsSize = %d, want 1234", cfg.Node.ActiveElectionsSize)
	}
	// Fields untouched by the file keep their defaults.
	if cfg.Node.ConfirmReqHashesMax != 7 {
		t.Errorf("ConfirmReqHashesMax = %d, want default 7", cfg.Node.ConfirmReqHashesMax)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[node]
not_a_real_key = 1
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path, nil); err == nil {
		t.Fatalf("expected Load to reject an unknown key")
	}
}

func TestApplyOverride(t *testing.T) {
	cfg, err := Load("", []string{"network=beta", "work_threads=4"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Node.Network != NetworkBeta {
		t.Errorf("Network = %q, want %q", cfg.Node.Network, NetworkBeta)
	}
	if cfg.Node.WorkThreads != 4 {
		t.Errorf("WorkThreads = %d, want 4", cfg.Node.WorkThreads)
	}
}

func TestApplyOverrideMalformed(t *testing.T) {
	if _, err := Load("", []string{"no_equals_sign"}); err == nil {
		t.Fatalf("expected a malformed override to error")
	}
	if _, err := Load("", []string{"unknown_key=1"}); err == nil {
		t.Fatalf("expected an unknown override key to error")
	}
	if _, err := Load("", []string{"work_threads=not_a_number"}); err == nil {
		t.Fatalf("expected a non-integer override value to error")
	}
}

func TestEnvHelpers(t *testing.T) {
	if UseRocksDB() {
		t.Fatalf("expected UseRocksDB to default false")
	}
	os.Setenv("TEST_USE_ROCKSDB", "1")
	defer os.Unsetenv("TEST_USE_ROCKSDB")
	if !UseRocksDB() {
		t.Fatalf("expected UseRocksDB to read TEST_USE_ROCKSDB=1")
	}

	if DeadlineScaleFactor() != 1.0 {
		t.Fatalf("DeadlineScaleFactor() = %v, want 1.0 default", DeadlineScaleFactor())
	}
}
