package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	vidsearch "github.com/kailas-cloud/vidsearch/pkg/sdk"
)

// catalogFile is the document shape of a seed file. A bare list of items is accepted too.
type catalogFile struct {
	Items []vidsearch.Item `json:"items" yaml:"items"`
}

// expandPatterns resolves doublestar patterns into a sorted, de-duplicated file list.
// Plain paths without meta characters must exist.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		for _, m := range matches {
			if !isCatalogFile(m) {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// loadItems reads every file and concatenates their items in file order.
func loadItems(files []string) ([]vidsearch.Item, error) {
	var items []vidsearch.Item
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		parsed, err := parseItems(f, data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		items = append(items, parsed...)
	}
	return items, nil
}

func parseItems(path string, data []byte) ([]vidsearch.Item, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var list []vidsearch.Item
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		var doc catalogFile
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
		return doc.Items, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var list []vidsearch.Item
		if err := root.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var doc catalogFile
	if err := root.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Items, nil
}
