package model

import (
	"encoding/json"
	"sync"
)

// Registry maps capabilities to endpoint chains. Selection is lazy: the
// registry hands back an ordered chain and the caller walks it, reporting
// successes and failures so the health tracker can open circuits.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Capability]*CapabilityConfig
	endpoints    map[string]*EndpointConfig
	defaultName  string
	health       *healthState
}

// CapabilityConfig defines endpoint preferences for one capability.
type CapabilityConfig struct {
	// Description explains what this capability is for.
	Description string `json:"description"`

	// Preferred lists endpoint names in order of preference.
	Preferred []string `json:"preferred"`

	// Fallback lists backup endpoints if all preferred fail.
	Fallback []string `json:"fallback"`
}

// EndpointConfig describes one reachable generation endpoint.
type EndpointConfig struct {
	// Provider is the wire protocol adapter (anthropic, openai, ollama).
	Provider string `json:"provider"`

	// URL is the API base URL. Empty uses the provider default.
	URL string `json:"url,omitempty"`

	// Model is the model identifier sent to the provider.
	Model string `json:"model"`

	// MaxTokens is the endpoint's context window size.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// NewRegistry creates a registry from explicit capability and endpoint maps.
func NewRegistry(caps map[Capability]*CapabilityConfig, endpoints map[string]*EndpointConfig) *Registry {
	return &Registry{
		capabilities: caps,
		endpoints:    endpoints,
		defaultName:  "local",
	}
}

// NewDefaultRegistry creates a registry usable without any configuration:
// hosted Anthropic endpoints preferred, a local Ollama endpoint as fallback.
func NewDefaultRegistry() *Registry {
	return &Registry{
		capabilities: map[Capability]*CapabilityConfig{
			CapabilityPlanning: {
				Description: "Document decomposition and outline generation",
				Preferred:   []string{"claude-sonnet"},
				Fallback:    []string{"local"},
			},
			CapabilityWriting: {
				Description: "Long-form section prose",
				Preferred:   []string{"claude-sonnet"},
				Fallback:    []string{"claude-haiku", "local"},
			},
			CapabilitySummarizing: {
				Description: "Rolling memory compression",
				Preferred:   []string{"claude-haiku"},
				Fallback:    []string{"local"},
			},
			CapabilityExtraction: {
				Description: "Structured item extraction from source slices",
				Preferred:   []string{"claude-sonnet"},
				Fallback:    []string{"local"},
			},
		},
		endpoints: map[string]*EndpointConfig{
			"claude-sonnet": {
				Provider:  "anthropic",
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 200000,
			},
			"claude-haiku": {
				Provider:  "anthropic",
				Model:     "claude-haiku-3-5-20241022",
				MaxTokens: 200000,
			},
			"local": {
				Provider:  "ollama",
				URL:       "http://localhost:11434/v1",
				Model:     "llama3.2",
				MaxTokens: 128000,
			},
		},
		defaultName: "local",
	}
}

// Chain returns all endpoint names for a capability, preferred first.
func (r *Registry) Chain(cap Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[cap]; ok {
		chain := make([]string, 0, len(cfg.Preferred)+len(cfg.Fallback))
		chain = append(chain, cfg.Preferred...)
		chain = append(chain, cfg.Fallback...)
		return chain
	}
	return []string{r.defaultName}
}

// Endpoint returns the configuration for an endpoint name, or nil.
func (r *Registry) Endpoint(name string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.endpoints[name]
}

// SetCapability updates or adds a capability configuration.
func (r *Registry) SetCapability(cap Capability, cfg *CapabilityConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capabilities == nil {
		r.capabilities = make(map[Capability]*CapabilityConfig)
	}
	r.capabilities[cap] = cfg
}

// SetEndpoint updates or adds an endpoint configuration.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.endpoints == nil {
		r.endpoints = make(map[string]*EndpointConfig)
	}
	r.endpoints[name] = cfg
}

// SetDefault sets the endpoint used for unknown capabilities.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaultName = name
}

// ListEndpoints returns all configured endpoint names.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	return names
}

// MarshalJSON implements json.Marshaler.
func (r *Registry) MarshalJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return json.Marshal(registryConfig{
		Capabilities: r.capabilities,
		Endpoints:    r.endpoints,
		Default:      r.defaultName,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var cfg registryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.capabilities = cfg.Capabilities
	r.endpoints = cfg.Endpoints
	if cfg.Default != "" {
		r.defaultName = cfg.Default
	}
	return nil
}

// registryConfig is the serialized form of a Registry.
type registryConfig struct {
	Capabilities map[Capability]*CapabilityConfig `json:"capabilities"`
	Endpoints    map[string]*EndpointConfig       `json:"endpoints"`
	Default      string                           `json:"default,omitempty"`
}
