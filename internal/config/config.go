// Package config defines the engine's configuration surface: which source
// modules to touch, the chosen top module, per-module pipeline-register
// settings, clock/reset naming, and preprocessor pass-through for the
// parser. Configuration loaded from JSON is checked against an embedded
// CUE schema before the engine ever sees it, the same contract-guard
// convention the rest of the stack uses for its own structured data.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/hdltools/xmr-eliminate/internal/xmrmodel"
	"gopkg.in/yaml.v3"
)

// PipeRegSetting is the JSON-facing form of one selective pipeline-register
// rule; Config.PipeRegConfig turns it into an xmrmodel.PipeRegEntry.
type PipeRegSetting struct {
	Module   string   `json:"module"`
	RegCount int      `json:"regCount"`
	Signals  []string `json:"signals,omitempty"`
}

// DriverOptions is preprocessor/elaborator pass-through: the core engine
// never inspects these, it only forwards them to the parser collaborator.
type DriverOptions struct {
	IncludeDirs       []string          `json:"includeDirs,omitempty"`
	SystemIncludeDirs []string          `json:"systemIncludeDirs,omitempty"`
	Defines           map[string]string `json:"defines,omitempty"`
	Undefines         []string          `json:"undefines,omitempty"`
	LibraryDirs       []string          `json:"libraryDirs,omitempty"`
	LibraryExtensions []string          `json:"libraryExtensions,omitempty"`
}

// Config is the engine's full configuration (§6.1).
type Config struct {
	Modules        []string         `json:"modules,omitempty"`
	TopModule      string           `json:"topModule,omitempty"`
	PipeRegMode    string           `json:"pipeRegMode,omitempty"`
	PipeRegCount   int              `json:"pipeRegCount,omitempty"`
	PipeRegEntries []PipeRegSetting `json:"pipeRegEntries,omitempty"`
	ClockName      string           `json:"clock,omitempty"`
	ResetName      string           `json:"reset,omitempty"`
	ResetActiveLow *bool            `json:"resetActiveLow,omitempty"`
	Driver         DriverOptions    `json:"driver,omitempty"`
	CheckOutput    bool             `json:"checkOutput,omitempty"`
}

// Default returns the configuration the CLI starts from before flags are
// applied (§6.4 defaults).
func Default() *Config {
	return &Config{
		ClockName:      "clk",
		ResetName:      "rst_n",
		ResetActiveLow: boolPtr(true),
		PipeRegMode:    "none",
	}
}

func boolPtr(v bool) *bool { return &v }

// ApplyDefaults fills in any zero-valued field Default would have set,
// used after unmarshaling a partial JSON document.
func (c *Config) ApplyDefaults() {
	if c.ClockName == "" {
		c.ClockName = "clk"
	}
	if c.ResetName == "" {
		c.ResetName = "rst_n"
	}
	if c.ResetActiveLow == nil {
		c.ResetActiveLow = boolPtr(true)
	}
	if c.PipeRegMode == "" {
		c.PipeRegMode = "none"
	}
}

// ResolveActiveLow reports the effective reset polarity.
func (c *Config) ResolveActiveLow() bool {
	if c.ResetActiveLow == nil {
		return true
	}
	return *c.ResetActiveLow
}

// PipeRegConfig converts the JSON-facing settings into the planner's
// xmrmodel.PipeRegConfig, validating the mode name.
func (c *Config) PipeRegConfig() (xmrmodel.PipeRegConfig, error) {
	switch c.PipeRegMode {
	case "", "none":
		return xmrmodel.PipeRegConfig{Mode: xmrmodel.PipeRegNone}, nil
	case "global":
		if c.PipeRegCount <= 0 {
			return xmrmodel.PipeRegConfig{}, fmt.Errorf("config: pipeRegMode=global requires pipeRegCount > 0")
		}
		return xmrmodel.Global(c.PipeRegCount), nil
	case "permodule":
		return xmrmodel.PerModule(), nil
	case "selective":
		entries := make([]xmrmodel.PipeRegEntry, 0, len(c.PipeRegEntries))
		for _, s := range c.PipeRegEntries {
			entries = append(entries, xmrmodel.PipeRegEntry{
				ModuleName: s.Module, RegCount: s.RegCount, Signals: s.Signals,
			})
		}
		return xmrmodel.Selective(entries), nil
	default:
		return xmrmodel.PipeRegConfig{}, fmt.Errorf("config: unknown pipeRegMode %q", c.PipeRegMode)
	}
}

// LoadJSON parses and validates data as a Config document, applying
// defaults to any field the document left unset.
func LoadJSON(data []byte) (*Config, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if err := v.Validate(data); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing: %w", err)
	}
	cfg.ApplyDefaults()

	if cfg.PipeRegMode == "global" && cfg.PipeRegCount > 0 {
		if cfg.ClockName == "" || cfg.ResetName == "" {
			return nil, fmt.Errorf("config: pipeline registers requested without clock/reset names")
		}
	}

	return &cfg, nil
}

// LoadYAML accepts the same configuration document in YAML form, the
// alternate format the driver's own config loader supports alongside
// JSON. It re-encodes to JSON and defers to LoadJSON so both formats go
// through the same schema validation.
func LoadYAML(data []byte) (*Config, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing YAML: %w", err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("config: re-encoding YAML as JSON: %w", err)
	}
	return LoadJSON(jsonData)
}
