// Package dispatch exposes the DJ's operations as named tools that take a
// loosely typed argument map and answer with a status line.
package dispatch

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Args holds decoded tool arguments. JSON numbers arrive as float64; values
// given on a command line arrive as strings. The accessors accept both.
type Args map[string]any

func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (a Args) Float(key string, def float64) (float64, error) {
	switch v := a[key].(type) {
	case nil:
		return def, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%s: %q is not a number", key, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s: unexpected type %T", key, v)
	}
}

func (a Args) Int(key string, def int) (int, error) {
	f, err := a.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%s: %v is not an integer", key, f)
	}
	return int(f), nil
}

// Strings accepts a JSON array or a whitespace separated string.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			out = append(out, fmt.Sprint(x))
		}
		return out
	case string:
		return strings.Fields(v)
	default:
		return nil
	}
}

type Handler func(ctx context.Context, args Args) string

type Tool struct {
	Name        string
	Description string
	// Params lists argument names in positional order.
	Params  []string
	Handler Handler
}

type Registry struct {
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name]; ok {
		panic("dispatch: duplicate tool " + t.Name)
	}
	r.tools[t.Name] = t
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns every tool sorted by name.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call runs the named tool. The error is only for unknown names; tool
// failures are reported in the returned text.
func (r *Registry) Call(ctx context.Context, name string, args Args) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	if args == nil {
		args = Args{}
	}
	return t.Handler(ctx, args), nil
}

// Positional maps values onto the tool's parameter names in order. Extra
// values are joined into the last parameter.
func (t Tool) Positional(values []string) Args {
	return Positional(t.Params, values)
}

// Positional maps values onto params in order, joining extra values into the
// last one.
func Positional(params, values []string) Args {
	args := Args{}
	for i, p := range params {
		if i >= len(values) {
			break
		}
		if i == len(params)-1 {
			args[p] = strings.Join(values[i:], " ")
			break
		}
		args[p] = values[i]
	}
	return args
}
