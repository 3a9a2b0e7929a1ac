package ops

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nvinuesa/tenantporter/internal/model"
)

// ScriptAPI reads and writes AM scripts.
type ScriptAPI interface {
	Read(ctx context.Context, id string) (json.RawMessage, error)
	Update(ctx context.Context, id string, obj json.RawMessage) (json.RawMessage, error)
}

const scriptCollection = "script"

// scriptRefs returns the script ids referenced by obj under keys accepted by
// match, in first-seen order. Only UUID values count as references.
func scriptRefs(obj json.RawMessage, match func(key string) bool) []string {
	var v any
	if json.Unmarshal(obj, &v) != nil {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if s, ok := t[k].(string); ok && match(k) {
					if _, err := uuid.Parse(s); err == nil && !seen[s] {
						seen[s] = true
						out = append(out, s)
					}
					continue
				}
				walk(t[k])
			}
		case []any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	walk(v)
	return out
}

// scriptToFile turns the base64 script body into an array of lines.
func scriptToFile(raw json.RawMessage) (json.RawMessage, error) {
	field, ok, err := model.Field(raw, "script")
	if err != nil || !ok {
		return raw, err
	}
	var s string
	if json.Unmarshal(field, &s) != nil {
		return raw, nil
	}
	body, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("script body is not base64: %w", err)
	}
	lines, err := encodeJSON(strings.Split(string(body), "\n"))
	if err != nil {
		return nil, err
	}
	return model.SetField(raw, "script", lines)
}

// scriptToWire reverses scriptToFile. A string body is assumed to be base64
// already and is sent unchanged.
func scriptToWire(raw json.RawMessage) (json.RawMessage, error) {
	field, ok, err := model.Field(raw, "script")
	if err != nil || !ok {
		return raw, err
	}
	var lines []json.RawMessage
	if json.Unmarshal(field, &lines) != nil {
		return raw, nil
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		if err := json.Unmarshal(l, &parts[i]); err != nil {
			return nil, fmt.Errorf("script line %d is not a string", i+1)
		}
	}
	body, err := encodeJSON(base64.StdEncoding.EncodeToString([]byte(strings.Join(parts, "\n"))))
	if err != nil {
		return nil, err
	}
	return model.SetField(raw, "script", body)
}

// scriptDeps exports and imports the scripts a provider depends on.
type scriptDeps struct {
	api ScriptAPI
}

func (d scriptDeps) export(ctx context.Context, b *bundle, ids []string) error {
	for _, id := range ids {
		if _, done := b.col(scriptCollection).Get(id); done {
			continue
		}
		raw, err := d.api.Read(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to export script %s: %w", id, err)
		}
		conv, err := scriptToFile(raw)
		if err != nil {
			return fmt.Errorf("script %s: %w", id, err)
		}
		b.col(scriptCollection).Set(id, conv)
	}
	return nil
}

// load decodes the script collection of env, empty when absent.
func loadScripts(env *model.Envelope) (*model.Collection, error) {
	if !env.Has(scriptCollection) {
		return model.NewCollection(), nil
	}
	return env.Collection(scriptCollection)
}

// importScripts imports the referenced scripts present in scripts, once each.
func (d scriptDeps) importScripts(ctx context.Context, scripts *model.Collection, ids []string, done map[string]bool) error {
	for _, id := range ids {
		if done[id] {
			continue
		}
		raw, ok := scripts.Get(id)
		if !ok {
			continue
		}
		wire, err := scriptToWire(raw)
		if err != nil {
			return fmt.Errorf("script %s: %w", id, err)
		}
		if _, err := d.api.Update(ctx, id, wire); err != nil {
			return fmt.Errorf("failed to import script %s: %w", id, err)
		}
		done[id] = true
	}
	return nil
}
