// Copyright 2025 Certen Protocol
//
// Configuration: a flat Config struct populated from a TOML file with
// `[node]`, `[rpc]`, `[opencl]`, and `[pow_server]` sections (spec §6).
// Only `[node]`'s consumers are in scope (spec §1); the other sections are
// still decoded — and still reject unknown keys — so a config file
// written for the full daemon loads cleanly against this core. Grounded
// on the teacher's flat env-first Config struct (pkg/config/config.go).
// Config values come from the TOML file over built-in defaults, then
// `--config key=value` overrides; no environment variable sets them.

package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// NetworkKind selects the active network parameters (spec §6 CLI surface
// "--network {live|beta|test}").
type NetworkKind string

const (
	NetworkLive NetworkKind = "live"
	NetworkBeta NetworkKind = "beta"
	NetworkTest NetworkKind = "test"
)

// NodeSection holds every node-level knob CONSENSUS CORE itself consumes.
type NodeSection struct {
	Network  NetworkKind `toml:"network"`
	DataPath string      `toml:"data_path"`
	Backend  string      `toml:"backend"` // "bbolt" or "goleveldb"

	ActiveElectionsSize       int `toml:"active_elections_size"`
	OnlineWeightQuorumPercent int `toml:"online_weight_quorum_percent"`
	PrincipalWeightFactorPpm  int `toml:"principal_weight_factor_ppm"` // parts per million, default 1000 = 0.1%

	ConfirmReqHashesMax   int    `toml:"confirm_req_hashes_max"`
	UnboundedCutoffHeight uint64 `toml:"unbounded_cutoff_height"`
	BoundedBatchReadSize  uint64 `toml:"bounded_batch_read_size"`

	VoteGeneratorDelayMs   int `toml:"vote_generator_delay_ms"`
	VoteGeneratorThreshold int `toml:"vote_generator_threshold"`
	MaxQueuedRequests      int `toml:"max_queued_requests"`
	BulkPushCostLimit      int `toml:"bulk_push_cost_limit"`

	WorkThreads   int `toml:"work_threads"`
	EcoPowSleepMs int `toml:"eco_pow_sleep_ms"`

	BandwidthLimitBytesPerSec float64 `toml:"bandwidth_limit_bytes_per_sec"`
	BandwidthLimitBurstBytes  float64 `toml:"bandwidth_limit_burst_bytes"`

	SignatureCheckerThreads int `toml:"signature_checker_threads"`

	PeeringPort int `toml:"peering_port"`
}

// RPCSection, OpenCLSection, and PowServerSection are decoded (so their
// keys are validated and round-trip) but have no consumer inside
// CONSENSUS CORE itself (spec §1 "RPC/IPC ... OpenCL ... out of scope").
type RPCSection struct {
	Enable  bool   `toml:"enable"`
	Address string `toml:"address"`
}

type OpenCLSection struct {
	Enable   bool `toml:"enable"`
	Platform int  `toml:"platform"`
	Device   int  `toml:"device"`
}

type PowServerSection struct {
	Enable  bool   `toml:"enable"`
	Address string `toml:"address"`
}

// Config is the full decoded configuration file.
type Config struct {
	Node      NodeSection      `toml:"node"`
	RPC       RPCSection       `toml:"rpc"`
	OpenCL    OpenCLSection    `toml:"opencl"`
	PowServer PowServerSection `toml:"pow_server"`
}

// Defaults returns a Config populated with the constants named throughout
// §4-§6: online-weight quorum 50%, principal-representative weight factor
// 0.1%, confirm_req_hashes_max 7, vote generator 100ms/3, unbounded
// confirmation-height cutoff 16384, bulk_push_cost_limit 200.
func Defaults() *Config {
	return &Config{
		Node: NodeSection{
			Network:                   NetworkLive,
			DataPath:                  "./data",
			Backend:                   "bbolt",
			ActiveElectionsSize:       50000,
			OnlineWeightQuorumPercent: 50,
			PrincipalWeightFactorPpm:  1000,
			ConfirmReqHashesMax:       7,
			UnboundedCutoffHeight:     16384,
			BoundedBatchReadSize:      65536,
			VoteGeneratorDelayMs:      100,
			VoteGeneratorThreshold:    3,
			MaxQueuedRequests:         1024,
			BulkPushCostLimit:         200,
			WorkThreads:               0, // 0 => hardware concurrency
			EcoPowSleepMs:             0, // 0 => disabled
			BandwidthLimitBytesPerSec: 0, // 0 => unlimited
			BandwidthLimitBurstBytes:  1 << 20,
			SignatureCheckerThreads:   0,
			PeeringPort:               7075,
		},
	}
}

// Load reads path as TOML over top of Defaults(), rejecting unknown keys
// (spec §6 "unknown keys error out"), then applies `--config key=value`
// overrides.
func Load(path string, overrides []string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	for _, kv := range overrides {
		if err := applyOverride(cfg, kv); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// DeadlineScaleFactor reads the DEADLINE_SCALE_FACTOR environment
// variable (spec §6), defaulting to 1.0 when unset or unparsable.
func DeadlineScaleFactor() float64 {
	if v := os.Getenv("DEADLINE_SCALE_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return 1.0
}

// UseRocksDB reports whether TEST_USE_ROCKSDB=1 selects the LSM backend
// for tests (spec §6), overriding Node.Backend.
func UseRocksDB() bool {
	return os.Getenv("TEST_USE_ROCKSDB") == "1"
}

// KeepTmpDirs reports whether TEST_KEEP_TMPDIRS=1 disables tmp cleanup in
// tests (spec §6).
func KeepTmpDirs() bool {
	return os.Getenv("TEST_KEEP_TMPDIRS") == "1"
}

// VoteGeneratorDelay returns Node.VoteGeneratorDelayMs as a Duration.
func (c *Config) VoteGeneratorDelay() time.Duration {
	return time.Duration(c.Node.VoteGeneratorDelayMs) * time.Millisecond
}

// EcoPowSleep returns Node.EcoPowSleepMs as a Duration.
func (c *Config) EcoPowSleep() time.Duration {
	return time.Duration(c.Node.EcoPowSleepMs) * time.Millisecond
}
