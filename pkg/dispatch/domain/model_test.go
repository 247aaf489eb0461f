package domain

import "testing"

func TestResourceGroup(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		want string
	}{
		{
			name: "explicit group wins",
			desc: Descriptor{ID: "llama3.1", Spec: LocalSpec{Host: "127.0.0.1:11434"}, Group: "gpu-0"},
			want: "gpu-0",
		},
		{
			name: "endpoint groups siblings",
			desc: Descriptor{ID: "qwen2.5", Spec: ServerSpec{BaseURL: "http://vllm:8000/v1"}},
			want: "http://vllm:8000/v1",
		},
		{
			name: "cloud model falls back to id",
			desc: Descriptor{ID: "claude-sonnet", Spec: CloudSpec{Vendor: VendorAnthropic}},
			want: "claude-sonnet",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.desc.ResourceGroup(); got != tt.want {
				t.Errorf("ResourceGroup() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"llama3.1:70b", "llama3.1"},
		{"llama3.1", "llama3.1"},
		{"qwen2.5:7b-instruct-q4", "qwen2.5"},
		{"", ""},
	}
	for _, tt := range tests {
		d := Descriptor{ID: tt.id}
		if got := d.BaseName(); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestProviderSpecKinds(t *testing.T) {
	specs := []struct {
		spec ProviderSpec
		kind InferenceKind
	}{
		{LocalSpec{}, InferenceLocal},
		{ServerSpec{BaseURL: "http://localhost:8080/v1"}, InferenceServer},
		{CloudSpec{Vendor: VendorGemini}, InferenceCloud},
	}
	for _, s := range specs {
		if s.spec.Kind() != s.kind {
			t.Errorf("%T Kind() = %s, want %s", s.spec, s.spec.Kind(), s.kind)
		}
	}
	if (CloudSpec{}).Endpoint() != "" {
		t.Error("cloud specs must not report an endpoint")
	}
}
