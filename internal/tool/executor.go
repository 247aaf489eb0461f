// Package tool provides the reference ToolExecutor wired into the dispatcher:
// a small named-tool table with JSON-schema parameter descriptions.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	pkgLogger "github.com/modelmux/modelmux/pkg/logger"
)

// runFunc executes one tool invocation.
type runFunc func(ctx context.Context, params map[string]any) (string, error)

type tool struct {
	name        string
	description string
	schema      *jsonschema.Schema
	run         runFunc
}

// Executor implements the dispatcher's tool boundary.
type Executor struct {
	tools map[string]tool
	log   *pkgLogger.Logger
}

// NewExecutor creates an executor with the built-in tools (web fetch, clock).
func NewExecutor() *Executor {
	e := &Executor{
		tools: make(map[string]tool),
		log:   pkgLogger.NewComponentLogger("tool"),
	}
	e.register("web_fetch", "Fetch a webpage and return its main text content.", webFetchSchema(), e.runWebFetch)
	e.register("clock", "Return the current date and time, optionally in a named time zone.", clockSchema(), runClock)
	return e
}

func (e *Executor) register(name, description string, schema *jsonschema.Schema, run runFunc) {
	e.tools[name] = tool{name: name, description: description, schema: schema, run: run}
}

// Execute runs the named tool.
func (e *Executor) Execute(ctx context.Context, name string, params map[string]any) (string, error) {
	t, ok := e.tools[name]
	if !ok {
		return "", errors.Errorf("unknown tool %q", name)
	}
	e.log.DebugWithIntention(pkgLogger.IntentionTool, "Running tool", "tool", name)
	return t.run(ctx, params)
}

// FormatResultForLLM renders a tool outcome as the follow-up turn's content.
// Errors are absorbed into an inline note so the model can answer without the
// tool rather than failing the exchange.
func (e *Executor) FormatResultForLLM(name, result string, execErr error) string {
	if execErr != nil {
		return fmt.Sprintf("The tool %q failed: %v. Answer as best you can without it, and mention the failure.", name, execErr)
	}
	return fmt.Sprintf("Result of tool %q:\n%s", name, result)
}

// Definitions renders the tool instructions injected into the system prompt.
func (e *Executor) Definitions() string {
	names := make([]string, 0, len(e.tools))
	for name := range e.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("You can call tools. To call one, reply with a single JSON object:\n")
	b.WriteString(`{"tool": "<name>", "parameters": {...}}` + "\n\n")
	b.WriteString("Available tools:\n")
	for _, name := range names {
		t := e.tools[name]
		fmt.Fprintf(&b, "- %s: %s\n", t.name, t.description)
		if t.schema != nil {
			if data, err := json.Marshal(t.schema); err == nil {
				fmt.Fprintf(&b, "  parameters schema: %s\n", data)
			}
		}
	}
	return b.String()
}

// reflectSchema builds an inline schema for a parameter struct.
func reflectSchema(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	return reflector.Reflect(v)
}

// stringParam reads an optional string parameter.
func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
