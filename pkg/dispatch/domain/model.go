package domain

import "github.com/pkg/errors"

// ErrModelNotFound is returned by registries for unknown model ids.
var ErrModelNotFound = errors.New("model not found in registry")

// InferenceKind is where a model's inference actually runs.
type InferenceKind int

const (
	InferenceLocal  InferenceKind = iota // on-device runtime
	InferenceServer                      // self-hosted model server
	InferenceCloud                       // vendor API
)

func (k InferenceKind) String() string {
	switch k {
	case InferenceLocal:
		return "local"
	case InferenceServer:
		return "server"
	case InferenceCloud:
		return "cloud"
	default:
		return "unknown"
	}
}

// ProviderSpec is a closed sum over provider kinds. Each variant carries only
// the fields that provider needs; the adapter registry resolves a variant to
// an adapter by type switch, never by runtime string comparison.
type ProviderSpec interface {
	Kind() InferenceKind
	// Endpoint returns the backend address when there is one; empty for
	// vendor APIs reached through their default endpoints.
	Endpoint() string
}

// LocalSpec describes an on-device inference runtime (Ollama).
type LocalSpec struct {
	// Host overrides the runtime's default listen address when set.
	Host string
}

func (s LocalSpec) Kind() InferenceKind { return InferenceLocal }
func (s LocalSpec) Endpoint() string    { return s.Host }

// ServerSpec describes a self-hosted, OpenAI-compatible model server.
type ServerSpec struct {
	BaseURL string
}

func (s ServerSpec) Kind() InferenceKind { return InferenceServer }
func (s ServerSpec) Endpoint() string    { return s.BaseURL }

// CloudVendor enumerates the supported vendor APIs.
type CloudVendor int

const (
	VendorAnthropic CloudVendor = iota
	VendorOpenAI
	VendorGemini
)

func (v CloudVendor) String() string {
	switch v {
	case VendorAnthropic:
		return "anthropic"
	case VendorOpenAI:
		return "openai"
	case VendorGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// CloudSpec describes a vendor-hosted API model.
type CloudSpec struct {
	Vendor CloudVendor
}

func (s CloudSpec) Kind() InferenceKind { return InferenceCloud }
func (s CloudSpec) Endpoint() string    { return "" }

// Descriptor is the immutable record identifying a servable model. It is
// created at registration and read-only thereafter; configuration changes
// produce a superseding descriptor rather than mutating one in place.
type Descriptor struct {
	ID       string
	Provider string // provider tag, also the credential lookup key
	Spec     ProviderSpec

	ContextWindow   int
	MaxOutputTokens int
	Temperature     float64

	// Group is the concurrency resource group; empty means the model's
	// endpoint (or id) forms its own group.
	Group string
}

// ResourceGroup returns the concurrency-control key for this model: the
// declared group, else the endpoint shared with sibling models, else the id.
func (d Descriptor) ResourceGroup() string {
	if d.Group != "" {
		return d.Group
	}
	if ep := d.Spec.Endpoint(); ep != "" {
		return ep
	}
	return d.ID
}

// BaseName returns the model name without any variant tag (e.g.
// "llama3.1:70b" → "llama3.1"). Variants of the same base are not offered as
// failover alternatives for each other.
func (d Descriptor) BaseName() string {
	for i := 0; i < len(d.ID); i++ {
		if d.ID[i] == ':' {
			return d.ID[:i]
		}
	}
	return d.ID
}

// Registry looks up model descriptors.
type Registry interface {
	// Lookup returns the descriptor for the given model id, or
	// ErrModelNotFound.
	Lookup(id string) (Descriptor, error)

	// All enumerates every registered descriptor.
	All() []Descriptor
}

// CredentialProvider supplies API keys by provider tag.
type CredentialProvider interface {
	// APIKey returns the key for the provider tag, and whether one exists.
	APIKey(providerTag string) (string, bool)
}
