// Package normalize rewrites native "responses" request bodies so the ChatGPT
// Codex backend accepts them: model aliasing, forced store=false, continuity
// key defaulting and history sanitization.
//
// Edits are applied in place with sjson, so every field the bridge does not
// interpret keeps its original bytes and position. An object that repeats a
// key is collapsed first (first position, last value), since sjson edits only
// the first copy while the upstream decoder keeps the last.
package normalize

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Normalizer holds the per-process rewrite rules. It is read-only after
// construction and safe for concurrent use.
type Normalizer struct {
	Aliases map[string]string
}

// Result describes a rewritten payload.
type Result struct {
	Body           []byte
	ModelBefore    string
	ModelAfter     string
	PromptCacheKey string
	// StoreBefore is the raw JSON of the client's store field, empty when absent.
	StoreBefore string
	// InputLen is the number of input items after sanitization, -1 when input is not an array.
	InputLen         int
	DroppedReasoning int
	ClearedIDs       int
	// DuplicateKeys counts repeated object members removed before editing.
	DuplicateKeys int
}

// New returns a Normalizer using aliases for model rewriting.
func New(aliases map[string]string) *Normalizer {
	return &Normalizer{Aliases: aliases}
}

// IsJSONContentType reports whether a Content-Type names JSON.
func IsJSONContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "application/json")
}

// Normalize rewrites body when it is a JSON object sent as application/json.
// It returns false when the body must be forwarded untouched: a non-JSON
// content type, invalid JSON, or a JSON value that is not an object.
func (n *Normalizer) Normalize(body []byte, contentType, sessionID string) (*Result, bool) {
	if !IsJSONContentType(contentType) {
		return nil, false
	}
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, false
	}

	out := body
	res := &Result{InputLen: -1}
	if collapsed, dropped := collapseDuplicateKeys(root); dropped > 0 {
		out = []byte(collapsed)
		res.DuplicateKeys = dropped
	}
	var err error

	model := gjson.GetBytes(out, "model")
	if model.Type == gjson.String {
		res.ModelBefore = model.Str
		res.ModelAfter = model.Str
		if target, ok := n.Aliases[model.Str]; ok {
			if out, err = sjson.SetBytes(out, "model", target); err != nil {
				return nil, false
			}
			res.ModelAfter = target
		}
	}

	key := gjson.GetBytes(out, "prompt_cache_key")
	if isUnsetCacheKey(key) && sessionID != "" {
		if out, err = sjson.SetBytes(out, "prompt_cache_key", sessionID); err != nil {
			return nil, false
		}
		res.PromptCacheKey = sessionID
	} else if key.Exists() {
		res.PromptCacheKey = key.String()
	}

	if store := gjson.GetBytes(out, "store"); store.Exists() {
		res.StoreBefore = store.Raw
	}
	if out, err = sjson.SetBytes(out, "store", false); err != nil {
		return nil, false
	}

	if input := gjson.GetBytes(out, "input"); input.IsArray() {
		sanitized, stats := sanitizeInput(input)
		if out, err = sjson.SetRawBytes(out, "input", sanitized); err != nil {
			return nil, false
		}
		res.InputLen = stats.kept
		res.DroppedReasoning = stats.dropped
		res.ClearedIDs = stats.cleared
		res.DuplicateKeys += stats.duplicates
	}

	res.Body = out
	return res, true
}

// isUnsetCacheKey treats a missing or falsy prompt_cache_key as unset:
// null, false, "", 0, [] and {}.
func isUnsetCacheKey(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.String:
		return v.Str == ""
	case gjson.Number:
		return v.Num == 0
	case gjson.JSON:
		return isEmptyContainer(v)
	}
	return false
}
