// Package variant produces alternative serializations of an upstream request
// for dialect-compatibility probing. Different providers accept slightly
// different field spellings for the same Responses-style payload, so the
// dispatcher walks these variants in order until one is accepted.
package variant

import (
	"reflect"
	"strings"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/util"
)

// Generate returns the ordered, deduplicated variant list for a canonical
// upstream request. The unmodified base is always variant 0.
func Generate(base *core.ResponsesRequest) ([]map[string]any, error) {
	root, err := toMap(base)
	if err != nil {
		return nil, err
	}

	candidates := []map[string]any{root}

	if _, ok := root["max_output_tokens"]; ok {
		candidates = append(candidates, renameMaxTokens(root))
	}

	instructions := util.StringField(root, "instructions")
	if input, ok := root["input"].([]any); ok && strings.TrimSpace(instructions) != "" {
		inlined := inlineInstructions(root, instructions, input)
		candidates = append(candidates, inlined)
		if _, ok := inlined["max_output_tokens"]; ok {
			candidates = append(candidates, renameMaxTokens(inlined))
		}
	}

	if reasoning, ok := root["reasoning"].(map[string]any); ok {
		if effort := util.StringField(reasoning, "effort"); effort != "" {
			flat := deepCopyMap(root)
			delete(flat, "reasoning")
			flat["reasoning_effort"] = effort
			candidates = append(candidates, flat)

			stripped := deepCopyMap(root)
			delete(stripped, "reasoning")
			delete(stripped, "reasoning_effort")
			candidates = append(candidates, stripped)
		}
	}

	return dedup(candidates), nil
}

// renameMaxTokens produces a copy with max_output_tokens spelled max_tokens.
func renameMaxTokens(m map[string]any) map[string]any {
	out := deepCopyMap(m)
	out["max_tokens"] = out["max_output_tokens"]
	delete(out, "max_output_tokens")
	return out
}

// inlineInstructions moves the instructions string into a leading developer
// message at the head of the input sequence.
func inlineInstructions(m map[string]any, instructions string, input []any) map[string]any {
	out := deepCopyMap(m)
	delete(out, "instructions")
	lead := map[string]any{
		"role": core.RoleDeveloper,
		"content": []any{
			map[string]any{"type": core.PartTypeInputText, "text": instructions},
		},
	}
	merged := make([]any, 0, len(input)+1)
	merged = append(merged, lead)
	merged = append(merged, deepCopyValue(input).([]any)...)
	out["input"] = merged
	return out
}

// dedup keeps the first occurrence of each structurally equal candidate.
func dedup(candidates []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(candidates))
	for _, candidate := range candidates {
		duplicate := false
		for _, kept := range out {
			if reflect.DeepEqual(candidate, kept) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, candidate)
		}
	}
	return out
}

// toMap converts the typed request into a plain map so variant rules can
// rename and remove fields structurally.
func toMap(req *core.ResponsesRequest) (map[string]any, error) {
	data, err := util.MarshalJSON(req)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := util.UnmarshalJSON(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return deepCopyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
