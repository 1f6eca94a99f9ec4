// Package llmjson decodes structured model answers at a typed schema boundary.
package llmjson

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/kailas-cloud/vidsearch/internal/domain"
)

// StripFences removes a surrounding markdown code fence (``` or ```json).
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string (e.g. "json") up to the first newline.
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Decode strips fences and decodes content into v, a pointer to a struct
// whose required fields are pointers. Any failure is a MalformedResponseError for stage.
func Decode(stage, content string, v any) error {
	payload := StripFences(content)
	if payload == "" {
		return domain.NewMalformedResponse(stage, "empty response", content)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	if err := dec.Decode(v); err != nil {
		return domain.NewMalformedResponse(stage, "invalid JSON: "+err.Error(), content)
	}
	if dec.More() {
		return domain.NewMalformedResponse(stage, "trailing data after JSON object", content)
	}
	return nil
}
