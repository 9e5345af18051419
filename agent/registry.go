package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/plexy/models"
)

// Tool is a capability callable by name with decoded JSON arguments.
type Tool func(ctx context.Context, args map[string]any) (any, error)

type registeredTool struct {
	spec models.ToolSpec
	run  Tool
}

// Registry maps tool names to callables: a fixed built-in set plus an
// optional external manifest scan. Loading failures for individual
// entries never abort startup.
type Registry struct {
	tools map[string]registeredTool
	log   *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{tools: map[string]registeredTool{}, log: log}
}

// Register adds or replaces a tool.
func (r *Registry) Register(spec models.ToolSpec, run Tool) {
	r.tools[spec.Name] = registeredTool{spec: spec, run: run}
	r.log.Info("loaded tool", zap.String("name", spec.Name))
}

// Specs lists the registered tool specifications.
func (r *Registry) Specs() []models.ToolSpec {
	out := make([]models.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.spec)
	}
	return out
}

// Run executes a tool by name. Malformed argument JSON degrades to an
// empty argument set rather than aborting. The result is returned as JSON.
func (r *Registry) Run(ctx context.Context, name, argsJSON string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("tool not found: %s", name)
	}

	args := map[string]any{}
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			r.log.Warn("malformed tool arguments, using empty set",
				zap.String("tool", name), zap.Error(err))
			args = map[string]any{}
		}
	}

	result, err := t.run(ctx, args)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(payload), nil
}

// manifest describes an external tool: an executable that reads JSON
// arguments on stdin and writes a JSON result to stdout.
type manifest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Command     string         `json:"command"`
	Args        []string       `json:"args"`
	Parameters  map[string]any `json:"parameters"`
}

// LoadManifests scans dir for *.json tool manifests. A missing directory
// or a broken manifest is logged and skipped.
func (r *Registry) LoadManifests(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.log.Warn("tool directory not found", zap.String("dir", dir), zap.Error(err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			r.log.Warn("failed to read tool manifest", zap.String("path", path), zap.Error(err))
			continue
		}
		var m manifest
		if err := json.Unmarshal(data, &m); err != nil {
			r.log.Warn("failed to parse tool manifest", zap.String("path", path), zap.Error(err))
			continue
		}
		if m.Name == "" || m.Command == "" {
			r.log.Warn("tool manifest missing name or command", zap.String("path", path))
			continue
		}
		if m.Parameters == nil {
			m.Parameters = map[string]any{"type": "object"}
		}
		r.Register(models.ToolSpec{Name: m.Name, Description: m.Description, Parameters: m.Parameters}, execTool(m))
	}
}

func execTool(m manifest) Tool {
	return func(ctx context.Context, args map[string]any) (any, error) {
		input, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}

		cmd := exec.CommandContext(ctx, m.Command, m.Args...)
		cmd.Stdin = bytes.NewReader(input)
		var out bytes.Buffer
		cmd.Stdout = &out
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("tool %s failed: %w", m.Name, err)
		}

		var result any
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			// Non-JSON output is passed through as a plain string.
			return out.String(), nil
		}
		return result, nil
	}
}

// registerBuiltins wires the built-in web search tool through the same
// retrieval chain the pipeline uses.
func (a *Agent) registerBuiltins() {
	spec := models.ToolSpec{
		Name:        webSearchToolName,
		Description: "Search the web for current information and return re-ranked documents.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"queries": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "The search queries to run",
				},
			},
			"required": []string{"queries"},
		},
	}
	a.registry.Register(spec, func(ctx context.Context, args map[string]any) (any, error) {
		queries := stringSlice(args["queries"])
		if len(queries) == 0 {
			return []models.Document{}, nil
		}
		docs := a.searchRound(ctx, strings.Join(queries, " "), queries)
		if docs == nil {
			docs = []models.Document{}
		}
		return docs, nil
	})
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
