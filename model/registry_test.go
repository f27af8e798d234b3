package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestChain(t *testing.T) {
	r := NewRegistry(
		map[Capability]*CapabilityConfig{
			CapabilityWriting: {
				Preferred: []string{"primary"},
				Fallback:  []string{"backup"},
			},
		},
		map[string]*EndpointConfig{
			"primary": {Provider: "anthropic", Model: "m1"},
			"backup":  {Provider: "ollama", Model: "m2"},
		},
	)
	r.SetDefault("backup")

	chain := r.Chain(CapabilityWriting)
	if len(chain) != 2 || chain[0] != "primary" || chain[1] != "backup" {
		t.Errorf("unexpected chain: %v", chain)
	}

	// Unknown capability falls back to the default endpoint.
	chain = r.Chain(CapabilityPlanning)
	if len(chain) != 1 || chain[0] != "backup" {
		t.Errorf("expected default chain, got %v", chain)
	}
}

func TestCircuitBreaker(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour})

	if !r.Available("claude-sonnet") {
		t.Fatal("endpoint should start available")
	}

	r.MarkFailure("claude-sonnet")
	if !r.Available("claude-sonnet") {
		t.Error("one failure should not open the circuit")
	}

	r.MarkFailure("claude-sonnet")
	if r.Available("claude-sonnet") {
		t.Error("circuit should be open after threshold failures")
	}

	r.MarkSuccess("claude-sonnet")
	if !r.Available("claude-sonnet") {
		t.Error("success should close the circuit")
	}
}

func TestCircuitHalfOpen(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Nanosecond})

	r.MarkFailure("local")
	time.Sleep(time.Millisecond)

	if !r.Available("local") {
		t.Error("circuit should allow a probe after the recovery timeout")
	}
}

func TestAvailableChainFallsBackToFullChain(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	full := r.Chain(CapabilityWriting)
	for _, name := range full {
		r.MarkFailure(name)
	}

	chain := r.AvailableChain(CapabilityWriting)
	if len(chain) != len(full) {
		t.Errorf("all-open circuits should return the full chain, got %v", chain)
	}
}

func TestRegistryJSONRoundTrip(t *testing.T) {
	r := NewDefaultRegistry()
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	loaded, err := LoadFromJSON(data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(loaded.ListEndpoints()) != len(r.ListEndpoints()) {
		t.Errorf("endpoint count changed across round trip")
	}
	if ep := loaded.Endpoint("claude-sonnet"); ep == nil || ep.Provider != "anthropic" {
		t.Errorf("endpoint config lost across round trip: %+v", ep)
	}
}

func TestLoadFromJSONValidation(t *testing.T) {
	_, err := LoadFromJSON([]byte(`{"capabilities":{"writing":{"preferred":["ghost"]}},"endpoints":{"real":{"provider":"ollama","model":"m"}}}`))
	if err == nil {
		t.Error("expected error for capability referencing unknown endpoint")
	}

	_, err = LoadFromJSON([]byte(`{"capabilities":{},"endpoints":{}}`))
	if err == nil {
		t.Error("expected error for empty endpoints")
	}
}

func TestParseCapability(t *testing.T) {
	if got := ParseCapability("extraction"); got != CapabilityExtraction {
		t.Errorf("ParseCapability(extraction) = %q", got)
	}
	if got := ParseCapability("juggling"); got != "" {
		t.Errorf("unknown capability should parse to empty, got %q", got)
	}
}
