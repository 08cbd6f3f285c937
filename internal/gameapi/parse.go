// internal/gameapi/parse.go
//
// Tolerant deserialization helpers for the trust boundary.
//
// Context
// -------
// Game servers hand us sub-documents that are sometimes JSON objects and
// sometimes JSON-encoded strings holding the same object, depending on how
// the framework's MySQL column was declared.  parseIfString accepts either
// form uniformly so the normalizer never has to care.
package gameapi

import (
	"bytes"
	"encoding/json"
)

// parseIfString decodes raw into out, unwrapping one level of string
// encoding when present.  Empty or null input leaves out untouched and
// returns nil: absent sub-documents are normal, not errors.
func parseIfString(raw json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		return json.Unmarshal([]byte(s), out)
	}
	return json.Unmarshal(trimmed, out)
}

// canonicalJSON re-serializes raw (string-wrapped or not) so the stored
// text is always valid, unwrapped JSON.  Undecodable or absent input
// yields the provided fallback document.
func canonicalJSON(raw json.RawMessage, fallback string) string {
	var doc any
	if err := parseIfString(raw, &doc); err != nil || doc == nil {
		return fallback
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fallback
	}
	return string(b)
}
