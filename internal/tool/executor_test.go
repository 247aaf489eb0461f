package tool

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

func TestExecuteUnknownTool(t *testing.T) {
	e := NewExecutor()
	if _, err := e.Execute(context.Background(), "launch_missiles", nil); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestClock(t *testing.T) {
	e := NewExecutor()

	out, err := e.Execute(context.Background(), "clock", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "UTC") {
		t.Errorf("default clock output = %q, want UTC", out)
	}

	if _, err := e.Execute(context.Background(), "clock", map[string]any{"timezone": "Atlantis/Nowhere"}); err == nil {
		t.Error("expected error for bogus time zone")
	}
}

func TestFormatResultForLLM(t *testing.T) {
	e := NewExecutor()

	ok := e.FormatResultForLLM("clock", "noon", nil)
	if !strings.Contains(ok, "clock") || !strings.Contains(ok, "noon") {
		t.Errorf("success format = %q", ok)
	}

	failed := e.FormatResultForLLM("web_fetch", "", errors.New("connection refused"))
	if !strings.Contains(failed, "failed") || !strings.Contains(failed, "connection refused") {
		t.Errorf("failure format = %q", failed)
	}
}

func TestDefinitionsAdvertiseWireFormat(t *testing.T) {
	defs := NewExecutor().Definitions()
	for _, want := range []string{`"tool"`, `"parameters"`, "web_fetch", "clock", "schema"} {
		if !strings.Contains(defs, want) {
			t.Errorf("Definitions() missing %q:\n%s", want, defs)
		}
	}
}

func TestWebFetchRejectsBadURL(t *testing.T) {
	e := NewExecutor()
	for _, bad := range []string{"", "ftp://example.com", "file:///etc/passwd", "example.com"} {
		if _, err := e.Execute(context.Background(), "web_fetch", map[string]any{"url": bad}); err == nil {
			t.Errorf("web_fetch accepted %q", bad)
		}
	}
}

func TestRenderReadableText(t *testing.T) {
	page := `<html><head><title>Release Notes</title></head><body>
		<nav><a href="/">Home</a><a href="/docs">Docs</a><a href="/blog">Blog</a></nav>
		<h1>Version 2.0 released today with many fixes</h1>
		<p>This release improves throughput substantially for concurrent workloads
		   and fixes a long-standing race in the scheduler.</p>
		<p><a href="/a">one</a> <a href="/b">two</a> <a href="/c">three link-only row</a></p>
		<script>var tracking = "should never appear";</script>
		<footer><p>Copyright notice that is long enough to qualify as a block.</p></footer>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}
	out := renderReadableText(doc, "https://example.com/notes")

	if !strings.Contains(out, "Release Notes") {
		t.Error("title missing")
	}
	if !strings.Contains(out, "improves throughput") {
		t.Error("main paragraph missing")
	}
	if strings.Contains(out, "tracking") {
		t.Error("script content leaked")
	}
	if strings.Contains(out, "Copyright") {
		t.Error("footer content not filtered")
	}
	if strings.Contains(out, "link-only") {
		t.Error("link-dense block not filtered")
	}
}
