package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"sort"
)

func evaluate(ctx context.Context, num int, as Assertion, nodes map[string]*node, vars map[string]string, result *Result) {
	label := fmt.Sprintf("assertion %d (%s on %s)", num, as.Type, as.Node)
	missing := map[string]bool{}
	defer func() {
		for name := range missing {
			result.fail("%s: undefined variable %q", label, name)
		}
	}()

	switch as.Type {
	case AssertReceived:
		got := countReceived(result.Trace, as)
		if got != as.Count {
			result.fail("%s: received %d request(s), want %d", label, got, as.Count)
		}

	case AssertState:
		resp, err := read(ctx, nodes[as.Node], expand(as.Path, vars, missing))
		if err != nil {
			result.fail("%s: %v", label, err)
			return
		}
		want := as.Status
		if want == 0 {
			want = http.StatusOK
		}
		if resp.status != want {
			result.fail("%s: status = %d, want %d", label, resp.status, want)
			return
		}
		if as.Expect != nil {
			checkBody(label, resp, expandValue(as.Expect, vars, missing), result)
		}

	case AssertCount:
		resp, err := read(ctx, nodes[as.Node], expand(as.Path, vars, missing))
		if err != nil {
			result.fail("%s: %v", label, err)
			return
		}
		got, err := resp.json()
		list, ok := got.([]any)
		if err != nil || !ok {
			result.fail("%s: %s did not return a JSON array (status %d)", label, as.Path, resp.status)
			return
		}
		if len(list) != as.Count {
			result.fail("%s: %s has %d item(s), want %d", label, as.Path, len(list), as.Count)
		}
	}
}

func read(ctx context.Context, n *node, path string) (response, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+harnessToken)
	return send(ctx, n, http.MethodGet, path, nil, header)
}

func countReceived(trace []TraceEvent, as Assertion) int {
	count := 0
	for _, ev := range trace {
		if ev.Node != as.Node {
			continue
		}
		if as.Replicated != nil && ev.Replicated != *as.Replicated {
			continue
		}
		if as.Method != "" && ev.Method != as.Method {
			continue
		}
		count++
	}
	return count
}

// normalize converts YAML-decoded values to the shapes encoding/json
// produces (float64 numbers, map[string]any objects).
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cannot encode expectation: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// matchSubset reports every place where got does not contain want. Objects
// match when every key of want matches; arrays and scalars must be equal.
func matchSubset(path string, want, got any) []string {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("%s: got %s, want object", path, describe(got))}
		}
		keys := make([]string, 0, len(w))
		for k := range w {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var problems []string
		for _, k := range keys {
			gv, present := g[k]
			if !present {
				problems = append(problems, fmt.Sprintf("%s.%s: missing", path, k))
				continue
			}
			problems = append(problems, matchSubset(path+"."+k, w[k], gv)...)
		}
		return problems

	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return []string{fmt.Sprintf("%s: got %s, want %d item(s)", path, describe(got), len(w))}
		}
		var problems []string
		for i := range w {
			problems = append(problems, matchSubset(fmt.Sprintf("%s[%d]", path, i), w[i], g[i])...)
		}
		return problems

	default:
		if !reflect.DeepEqual(want, got) {
			return []string{fmt.Sprintf("%s: got %s, want %s", path, describe(got), describe(want))}
		}
		return nil
	}
}

func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case []any:
		return fmt.Sprintf("array of %d", len(t))
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return fmt.Sprintf("object %v", keys)
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}
