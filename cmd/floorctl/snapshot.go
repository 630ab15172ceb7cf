package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/floor-layout/internal/model"
)

// readSnapshot loads a layout file.  YAML files are converted through
// JSON so both formats use the same field names.
func readSnapshot(path string) (model.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return model.Snapshot{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return model.Snapshot{}, fmt.Errorf("convert %s: %w", path, err)
		}
	}

	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return snap, nil
}

// writeSnapshot writes snap as indented JSON to path, or to w when path
// is empty or "-".
func writeSnapshot(w io.Writer, path string, snap model.Snapshot) error {
	bs, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	bs = append(bs, '\n')
	if path == "" || path == "-" {
		_, err = w.Write(bs)
		return err
	}
	return os.WriteFile(path, bs, 0o644)
}
