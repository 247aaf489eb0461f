package client

import (
	"strings"
	"testing"

	"github.com/modelmux/modelmux/pkg/dispatch/domain"
)

type mapCreds map[string]string

func (c mapCreds) APIKey(provider string) (string, bool) {
	key, ok := c[provider]
	return key, ok
}

func TestResolveCloudWithoutCredentials(t *testing.T) {
	r := NewRegistry(mapCreds{})
	_, err := r.Resolve(domain.Descriptor{
		ID:       "claude-sonnet",
		Provider: "anthropic",
		Spec:     domain.CloudSpec{Vendor: domain.VendorAnthropic},
	})
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Errorf("err = %v, want missing-credentials error", err)
	}
}

func TestResolveCloudVendors(t *testing.T) {
	r := NewRegistry(mapCreds{"anthropic": "k1", "openai": "k2", "gemini": "k3"})
	descs := []domain.Descriptor{
		{ID: "claude-sonnet", Provider: "anthropic", Spec: domain.CloudSpec{Vendor: domain.VendorAnthropic}},
		{ID: "gpt-4.1", Provider: "openai", Spec: domain.CloudSpec{Vendor: domain.VendorOpenAI}},
		{ID: "gemini-2.5-flash", Provider: "gemini", Spec: domain.CloudSpec{Vendor: domain.VendorGemini}},
	}
	for _, desc := range descs {
		adapter, err := r.Resolve(desc)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", desc.ID, err)
		}
		if adapter.ModelID() != desc.ID {
			t.Errorf("ModelID = %q, want %q", adapter.ModelID(), desc.ID)
		}
	}
}

func TestResolveServerNeedsBaseURL(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Resolve(domain.Descriptor{
		ID: "qwen2.5", Provider: "vllm", Spec: domain.ServerSpec{},
	}); err == nil {
		t.Error("expected error for empty base URL")
	}

	adapter, err := r.Resolve(domain.Descriptor{
		ID: "qwen2.5", Provider: "vllm",
		Spec: domain.ServerSpec{BaseURL: "http://localhost:8000/v1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if adapter.SupportsPromptCache() {
		t.Error("server adapters must not claim prompt-cache support")
	}
}

func TestResolveCachesPerEndpoint(t *testing.T) {
	r := NewRegistry(nil)
	a := domain.Descriptor{ID: "m", Spec: domain.ServerSpec{BaseURL: "http://a:8000"}}
	b := domain.Descriptor{ID: "m", Spec: domain.ServerSpec{BaseURL: "http://b:8000"}}

	first, err := r.Resolve(a)
	if err != nil {
		t.Fatal(err)
	}
	again, err := r.Resolve(a)
	if err != nil {
		t.Fatal(err)
	}
	if first != again {
		t.Error("same descriptor resolved to a new adapter")
	}

	other, err := r.Resolve(b)
	if err != nil {
		t.Fatal(err)
	}
	if other == first {
		t.Error("distinct endpoints shared an adapter")
	}
}

func TestOnlyAnthropicSupportsPromptCache(t *testing.T) {
	r := NewRegistry(mapCreds{"anthropic": "k"})
	adapter, err := r.Resolve(domain.Descriptor{
		ID: "claude-sonnet", Provider: "anthropic",
		Spec: domain.CloudSpec{Vendor: domain.VendorAnthropic},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !adapter.SupportsPromptCache() {
		t.Error("anthropic adapter must consume cache annotations")
	}
}
