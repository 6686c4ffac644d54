// Copyright 2025 Certen Protocol

package config

import (
	"fmt"
	"strconv"
	"strings"
)

// applyOverride applies one `--config key=value` CLI override (spec §6
// "--config key=value (repeatable)") against the [node] section; only
// node-level knobs are overridable this way, matching what a daemon
// operator can reasonably flip without editing the TOML file.
func applyOverride(cfg *Config, kv string) error {
	parts := strings.SplitN(kv, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("config: malformed --config override %q, want key=value", kv)
	}
	key, value := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	n := &cfg.Node
	switch key {
	case "network":
		n.Network = NetworkKind(value)
	case "data_path":
		n.DataPath = value
	case "backend":
		n.Backend = value
	case "active_elections_size":
		return setInt(&n.ActiveElectionsSize, value)
	case "online_weight_quorum_percent":
		return setInt(&n.OnlineWeightQuorumPercent, value)
	case "principal_weight_factor_ppm":
		return setInt(&n.PrincipalWeightFactorPpm, value)
	case "confirm_req_hashes_max":
		return setInt(&n.ConfirmReqHashesMax, value)
	case "vote_generator_delay_ms":
		return setInt(&n.VoteGeneratorDelayMs, value)
	case "vote_generator_threshold":
		return setInt(&n.VoteGeneratorThreshold, value)
	case "max_queued_requests":
		return setInt(&n.MaxQueuedRequests, value)
	case "bulk_push_cost_limit":
		return setInt(&n.BulkPushCostLimit, value)
	case "work_threads":
		return setInt(&n.WorkThreads, value)
	case "eco_pow_sleep_ms":
		return setInt(&n.EcoPowSleepMs, value)
	case "signature_checker_threads":
		return setInt(&n.SignatureCheckerThreads, value)
	case "peering_port":
		return setInt(&n.PeeringPort, value)
	case "bandwidth_limit_bytes_per_sec":
		return setFloat(&n.BandwidthLimitBytesPerSec, value)
	case "bandwidth_limit_burst_bytes":
		return setFloat(&n.BandwidthLimitBurstBytes, value)
	default:
		return fmt.Errorf("config: unknown override key %q", key)
	}
	return nil
}

func setInt(dst *int, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("config: %q is not an integer", value)
	}
	*dst = v
	return nil
}

func setFloat(dst *float64, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("config: %q is not a number", value)
	}
	*dst = v
	return nil
}
