// Package client resolves model descriptors into provider adapters. The
// dispatch core only sees the domain.Adapter interface; which SDK ends up
// behind it is decided here by a type switch over the descriptor's provider
// spec.
package client

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/modelmux/modelmux/pkg/client/anthropic"
	"github.com/modelmux/modelmux/pkg/client/gemini"
	"github.com/modelmux/modelmux/pkg/client/ollama"
	"github.com/modelmux/modelmux/pkg/client/openai"
	"github.com/modelmux/modelmux/pkg/dispatch/domain"
)

// Registry builds and caches adapters per model + endpoint. Safe for
// concurrent use.
type Registry struct {
	creds domain.CredentialProvider

	mu    sync.Mutex
	cache map[string]domain.Adapter
}

// NewRegistry creates an adapter registry drawing API keys from creds.
func NewRegistry(creds domain.CredentialProvider) *Registry {
	return &Registry{creds: creds, cache: make(map[string]domain.Adapter)}
}

// Resolve returns the adapter for the descriptor, building it on first use.
func (r *Registry) Resolve(desc domain.Descriptor) (domain.Adapter, error) {
	key := desc.ID + "\x00" + desc.Spec.Endpoint()

	r.mu.Lock()
	defer r.mu.Unlock()
	if adapter, ok := r.cache[key]; ok {
		return adapter, nil
	}

	adapter, err := r.build(desc)
	if err != nil {
		return nil, err
	}
	r.cache[key] = adapter
	return adapter, nil
}

func (r *Registry) build(desc domain.Descriptor) (domain.Adapter, error) {
	switch spec := desc.Spec.(type) {
	case domain.LocalSpec:
		return ollama.New(desc.ID, spec.Host)

	case domain.ServerSpec:
		apiKey, _ := r.apiKey(desc.Provider) // optional for local servers
		return openai.NewServer(desc.ID, spec.BaseURL, apiKey)

	case domain.CloudSpec:
		apiKey, ok := r.apiKey(desc.Provider)
		if !ok {
			return nil, errors.Errorf("no credentials configured for provider %q", desc.Provider)
		}
		switch spec.Vendor {
		case domain.VendorAnthropic:
			return anthropic.New(desc.ID, apiKey)
		case domain.VendorOpenAI:
			return openai.NewCloud(desc.ID, apiKey)
		case domain.VendorGemini:
			return gemini.New(desc.ID, apiKey)
		default:
			return nil, errors.Errorf("unsupported cloud vendor %s", spec.Vendor)
		}

	default:
		return nil, errors.Errorf("unsupported provider spec %T", desc.Spec)
	}
}

func (r *Registry) apiKey(provider string) (string, bool) {
	if r.creds == nil {
		return "", false
	}
	return r.creds.APIKey(provider)
}
