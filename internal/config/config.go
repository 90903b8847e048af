// Package config resolves node configuration from environment
// variables (ADDRESS/VIEW/REPL_FACTOR and friends) and flag overrides,
// via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is a fully resolved node configuration.
type Config struct {
	Address        string
	View           []string
	ReplFactor     int
	GossipInterval time.Duration
	PeerTimeout    time.Duration
	AuditLogPath   string
	LogJSON        bool
}

// Bind registers flags on fs (typically a cobra command's flag set)
// that mirror the environment variables, so either source can supply
// a value and flags win when both are set.
func Bind(fs *pflag.FlagSet) {
	fs.String("address", "", "this node's own ip:port (env ADDRESS)")
	fs.String("view", "", "comma-separated ip:port list of the initial view (env VIEW)")
	fs.Int("repl-factor", 1, "replication factor (env REPL_FACTOR)")
	fs.Int("gossip-interval-seconds", 5, "seconds between outgoing gossip ticks (env GOSSIP_INTERVAL_SECONDS)")
	fs.Int("peer-timeout-seconds", 3, "per-call peer RPC timeout in seconds (env PEER_TIMEOUT_SECONDS)")
	fs.String("audit-log", "", "optional path to an append-only mutation audit log (env AUDIT_LOG)")
	fs.Bool("log-json", false, "emit logs as JSON instead of console format (env LOG_JSON)")
}

// Load resolves a Config from fs (already parsed) layered over
// environment variables, which are in turn layered over the defaults
// registered in Bind.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	address := v.GetString("address")
	if address == "" {
		return Config{}, fmt.Errorf("ADDRESS is required")
	}

	rawView := v.GetString("view")
	if rawView == "" {
		return Config{}, fmt.Errorf("VIEW is required")
	}
	view := splitAndTrim(rawView)

	replFactor := v.GetInt("repl-factor")
	if replFactor < 1 {
		return Config{}, fmt.Errorf("REPL_FACTOR must be >= 1, got %d", replFactor)
	}

	return Config{
		Address:        address,
		View:           view,
		ReplFactor:     replFactor,
		GossipInterval: time.Duration(v.GetInt("gossip-interval-seconds")) * time.Second,
		PeerTimeout:    time.Duration(v.GetInt("peer-timeout-seconds")) * time.Second,
		AuditLogPath:   v.GetString("audit-log"),
		LogJSON:        v.GetBool("log-json"),
	}, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
