// Package registry implements the model registry and environment-backed
// credentials.
package registry

import (
	"os"
	"strings"

	"github.com/modelmux/modelmux/pkg/dispatch/domain"
	pkgLogger "github.com/modelmux/modelmux/pkg/logger"
)

// Static is an immutable model registry built once at startup. Configuration
// changes build a new registry rather than mutating this one.
type Static struct {
	byID  map[string]domain.Descriptor
	order []domain.Descriptor
}

// NewStatic builds a registry from descriptors, dropping duplicates with the
// same id and endpoint. A later descriptor with a known id but a new endpoint
// is also dropped: the first declaration of a name wins lookup.
func NewStatic(descs []domain.Descriptor) *Static {
	log := pkgLogger.NewComponentLogger("registry")
	r := &Static{byID: make(map[string]domain.Descriptor, len(descs))}
	for _, d := range descs {
		if prev, ok := r.byID[d.ID]; ok {
			if prev.Spec.Endpoint() == d.Spec.Endpoint() {
				log.DebugWithIntention(pkgLogger.IntentionConfig, "Dropping duplicate model declaration",
					"model", d.ID)
			} else {
				log.WarnWithIntention(pkgLogger.IntentionConfig, "Model name declared for two endpoints, keeping first",
					"model", d.ID, "kept", prev.Spec.Endpoint(), "dropped", d.Spec.Endpoint())
			}
			continue
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d)
	}
	return r
}

// Lookup implements domain.Registry.
func (r *Static) Lookup(id string) (domain.Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return domain.Descriptor{}, domain.ErrModelNotFound
	}
	return d, nil
}

// All implements domain.Registry, preserving declaration order.
func (r *Static) All() []domain.Descriptor {
	out := make([]domain.Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// EnvCredentials resolves API keys from the conventional environment
// variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, ...).
type EnvCredentials struct{}

// APIKey implements domain.CredentialProvider.
func (EnvCredentials) APIKey(providerTag string) (string, bool) {
	if providerTag == "" {
		return "", false
	}
	name := strings.ToUpper(strings.ReplaceAll(providerTag, "-", "_")) + "_API_KEY"
	key := os.Getenv(name)
	return key, key != ""
}
