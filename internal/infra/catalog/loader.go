package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"mcpdrift/internal/domain"
)

// Defaults applied when the config file leaves a knob unset.
const (
	DefaultMode               = domain.ModeFull
	DefaultCallsPerTool       = 3
	DefaultCallTimeoutSeconds = 30
	DefaultConcurrency        = 1
	DefaultStorePath          = "mcpdrift.db"
)

// Config is the loaded, validated probe configuration.
type Config struct {
	Server       ServerConfig
	Mode         string
	CallsPerTool int
	CallTimeout  time.Duration
	Concurrency  int
	Ledger       domain.LedgerConfig
	Graph        domain.DependencyGraph
	StorePath    string
}

// ServerConfig describes how to launch the server under observation.
type ServerConfig struct {
	Cmd []string
	Env map[string]string
	Cwd string
}

// Command renders the launch command for baseline metadata.
func (s ServerConfig) Command() string {
	return strings.Join(s.Cmd, " ")
}

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("catalog")}
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setConfigDefaults(v)
	return v
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("probe.mode", DefaultMode)
	v.SetDefault("probe.callsPerTool", DefaultCallsPerTool)
	v.SetDefault("probe.callTimeoutSeconds", DefaultCallTimeoutSeconds)
	v.SetDefault("probe.concurrency", DefaultConcurrency)
	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.maxValues", domain.DefaultLedgerMaxValues)
	v.SetDefault("ledger.maxRecent", domain.DefaultLedgerMaxRecent)
	v.SetDefault("store.path", DefaultStorePath)
}

type rawConfig struct {
	Server       rawServerConfig `mapstructure:"server"`
	Probe        rawProbeConfig  `mapstructure:"probe"`
	Ledger       rawLedgerConfig `mapstructure:"ledger"`
	Dependencies rawDependencies `mapstructure:"dependencies"`
	Store        rawStoreConfig  `mapstructure:"store"`
}

type rawServerConfig struct {
	Cmd []string          `mapstructure:"cmd"`
	Env map[string]string `mapstructure:"env"`
	Cwd string            `mapstructure:"cwd"`
}

type rawProbeConfig struct {
	Mode               string `mapstructure:"mode"`
	CallsPerTool       int    `mapstructure:"callsPerTool"`
	CallTimeoutSeconds int    `mapstructure:"callTimeoutSeconds"`
	Concurrency        int    `mapstructure:"concurrency"`
}

type rawLedgerConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	MaxValues     int      `mapstructure:"maxValues"`
	MaxRecent     int      `mapstructure:"maxRecent"`
	ParamPatterns []string `mapstructure:"paramPatterns"`
}

type rawDependencies struct {
	Edges  []rawEdge      `mapstructure:"edges"`
	Layers map[string]int `mapstructure:"layers"`
}

type rawEdge struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

type rawStoreConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads, env-expands, decodes, and validates a probe config file.
func (l *Loader) Load(ctx context.Context, path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	expanded, missing, err := expandEnv(data)
	if err != nil {
		return Config{}, err
	}
	if len(missing) > 0 {
		l.logger.Warn("unset environment variables in config expanded to empty",
			zap.String("path", path), zap.Strings("missing", missing))
	}

	v := newConfigViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Config{}, err
	}

	cfg, errs := normalizeConfig(raw)
	if len(errs) > 0 {
		return Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

func normalizeConfig(raw rawConfig) (Config, []string) {
	var errs []string

	if len(raw.Server.Cmd) == 0 {
		errs = append(errs, "server.cmd is required")
	}

	mode := strings.ToLower(strings.TrimSpace(raw.Probe.Mode))
	if mode == "" {
		mode = DefaultMode
	}
	if mode != domain.ModeFull && mode != domain.ModeQuick {
		errs = append(errs, "probe.mode must be full or quick")
	}

	if raw.Probe.CallsPerTool < 1 {
		errs = append(errs, "probe.callsPerTool must be >= 1")
	}
	if raw.Probe.CallTimeoutSeconds < 1 {
		errs = append(errs, "probe.callTimeoutSeconds must be >= 1")
	}
	concurrency := raw.Probe.Concurrency
	if concurrency < 1 {
		errs = append(errs, "probe.concurrency must be >= 1")
	}

	if raw.Ledger.MaxValues < 0 {
		errs = append(errs, "ledger.maxValues must be >= 0")
	}
	if raw.Ledger.MaxRecent < 0 {
		errs = append(errs, "ledger.maxRecent must be >= 0")
	}
	for i, pattern := range raw.Ledger.ParamPatterns {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, fmt.Sprintf("ledger.paramPatterns[%d] must not be empty", i))
		}
	}

	graph := domain.DependencyGraph{Layers: raw.Dependencies.Layers}
	for i, edge := range raw.Dependencies.Edges {
		from := strings.TrimSpace(edge.From)
		to := strings.TrimSpace(edge.To)
		if from == "" || to == "" {
			errs = append(errs, fmt.Sprintf("dependencies.edges[%d]: from and to are required", i))
			continue
		}
		if from == to {
			errs = append(errs, fmt.Sprintf("dependencies.edges[%d]: edge from %q to itself", i, from))
			continue
		}
		graph.Edges = append(graph.Edges, domain.DependencyEdge{From: from, To: to})
	}
	for tool, layer := range raw.Dependencies.Layers {
		if layer < 0 {
			errs = append(errs, fmt.Sprintf("dependencies.layers.%s must be >= 0", tool))
		}
	}

	storePath := strings.TrimSpace(raw.Store.Path)
	if storePath == "" {
		storePath = DefaultStorePath
	}

	return Config{
		Server: ServerConfig{
			Cmd: raw.Server.Cmd,
			Env: raw.Server.Env,
			Cwd: raw.Server.Cwd,
		},
		Mode:         mode,
		CallsPerTool: raw.Probe.CallsPerTool,
		CallTimeout:  time.Duration(raw.Probe.CallTimeoutSeconds) * time.Second,
		Concurrency:  concurrency,
		Ledger: domain.LedgerConfig{
			Enabled:       raw.Ledger.Enabled,
			MaxValues:     raw.Ledger.MaxValues,
			MaxRecent:     raw.Ledger.MaxRecent,
			ParamPatterns: raw.Ledger.ParamPatterns,
		},
		Graph:     graph,
		StorePath: storePath,
	}, errs
}
