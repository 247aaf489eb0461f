package registry

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/modelmux/modelmux/pkg/dispatch/domain"
)

func TestStaticLookup(t *testing.T) {
	r := NewStatic([]domain.Descriptor{
		{ID: "llama3.1", Spec: domain.LocalSpec{}},
		{ID: "claude-sonnet", Spec: domain.CloudSpec{Vendor: domain.VendorAnthropic}},
	})

	d, err := r.Lookup("llama3.1")
	if err != nil || d.ID != "llama3.1" {
		t.Errorf("Lookup = %v, %v", d, err)
	}

	_, err = r.Lookup("missing")
	if !errors.Is(err, domain.ErrModelNotFound) {
		t.Errorf("err = %v, want ErrModelNotFound", err)
	}
}

func TestStaticDeduplicates(t *testing.T) {
	r := NewStatic([]domain.Descriptor{
		{ID: "qwen2.5", Spec: domain.ServerSpec{BaseURL: "http://a:8000"}},
		{ID: "qwen2.5", Spec: domain.ServerSpec{BaseURL: "http://a:8000"}}, // exact duplicate
		{ID: "qwen2.5", Spec: domain.ServerSpec{BaseURL: "http://b:8000"}}, // same name, new endpoint
	})

	all := r.All()
	if len(all) != 1 {
		t.Fatalf("All() = %d entries, want 1", len(all))
	}
	d, _ := r.Lookup("qwen2.5")
	if d.Spec.Endpoint() != "http://a:8000" {
		t.Errorf("kept endpoint %q, want the first declaration", d.Spec.Endpoint())
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("MY_VLLM_API_KEY", "vk")

	creds := EnvCredentials{}
	if key, ok := creds.APIKey("anthropic"); !ok || key != "sk-test" {
		t.Errorf("anthropic key = %q, %v", key, ok)
	}
	if key, ok := creds.APIKey("my-vllm"); !ok || key != "vk" {
		t.Errorf("my-vllm key = %q, %v", key, ok)
	}
	if _, ok := creds.APIKey("unset-provider"); ok {
		t.Error("unexpected key for unset provider")
	}
	if _, ok := creds.APIKey(""); ok {
		t.Error("unexpected key for empty provider tag")
	}
}
