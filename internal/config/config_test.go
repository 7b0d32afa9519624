package config

import (
	"testing"

	"github.com/hdltools/xmr-eliminate/internal/xmrmodel"
)

func TestLoadJSONAppliesDefaults(t *testing.T) {
	cfg, err := LoadJSON([]byte(`{}`))
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if cfg.ClockName != "clk" || cfg.ResetName != "rst_n" {
		t.Errorf("defaults not applied: clock=%q reset=%q", cfg.ClockName, cfg.ResetName)
	}
	if !cfg.ResolveActiveLow() {
		t.Errorf("resetActiveLow default should be true")
	}
}

func TestLoadJSONAcceptsGlobalPipeRegMode(t *testing.T) {
	cfg, err := LoadJSON([]byte(`{"pipeRegMode": "global", "pipeRegCount": 2}`))
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	prc, err := cfg.PipeRegConfig()
	if err != nil {
		t.Fatalf("PipeRegConfig: %v", err)
	}
	if prc.Mode != xmrmodel.PipeRegGlobal {
		t.Errorf("expected global mode, got %v", prc.Mode)
	}
	if prc.GlobalRegCount != 2 {
		t.Errorf("GlobalRegCount = %d, want 2", prc.GlobalRegCount)
	}
}

func TestLoadJSONRejectsBadField(t *testing.T) {
	_, err := LoadJSON([]byte(`{"pipeRegMode": "bogus"}`))
	if err == nil {
		t.Fatalf("expected schema validation to reject an unknown pipeRegMode")
	}
}

func TestPipeRegConfigRequiresCountForGlobalMode(t *testing.T) {
	cfg := Default()
	cfg.PipeRegMode = "global"
	if _, err := cfg.PipeRegConfig(); err == nil {
		t.Errorf("expected an error when pipeRegMode=global has no pipeRegCount")
	}
}

func TestLoadYAMLMatchesEquivalentJSON(t *testing.T) {
	cfg, err := LoadYAML([]byte("topModule: top\nclock: clk2\n"))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if cfg.TopModule != "top" || cfg.ClockName != "clk2" {
		t.Errorf("unexpected config from YAML: %+v", cfg)
	}
}

func TestLoadYAMLRejectsBadField(t *testing.T) {
	if _, err := LoadYAML([]byte("pipeRegMode: bogus\n")); err == nil {
		t.Fatalf("expected schema validation to reject an unknown pipeRegMode via YAML too")
	}
}
