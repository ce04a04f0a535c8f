// Package pkgdb implements [rmtree.Index] and [rmtree.Remover] over an
// installed-package database file.
//
// The database is a JSON (comments allowed) or YAML document:
//
//	{
//	  "packages": [
//	    {"name": "wget", "version": "1.24", "dependencies": ["openssl"], "installed": true},
//	    {"name": "openssl", "version": "3.3", "installed": true, "outdated": true}
//	  ]
//	}
//
// The format is chosen by file extension: .json/.jsonc or .yaml/.yml.
package pkgdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/rmtree/internal/fs"
)

// Error variables for database loading.
var (
	ErrDatabaseNotFound  = errors.New("package database not found")
	ErrDatabaseRead      = errors.New("cannot read package database")
	ErrDatabaseInvalid   = errors.New("invalid package database")
	ErrUnsupportedFormat = errors.New("unsupported package database format")
)

type record struct {
	Name         string   `json:"name"                   yaml:"name"`
	Version      string   `json:"version,omitempty"      yaml:"version,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Installed    bool     `json:"installed"              yaml:"installed"`
	Outdated     bool     `json:"outdated,omitempty"     yaml:"outdated,omitempty"`
}

type document struct {
	Packages []record `json:"packages" yaml:"packages"`
}

type format int

const (
	formatJSON format = iota + 1
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func readDocument(fsys fs.FS, path string) (document, error) {
	f, err := formatOf(path)
	if err != nil {
		return document{}, err
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return document{}, fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
		}

		return document{}, fmt.Errorf("%w %s: %w", ErrDatabaseRead, path, err)
	}

	doc, err := decode(f, data)
	if err != nil {
		return document{}, fmt.Errorf("%w %s: %w", ErrDatabaseInvalid, path, err)
	}

	if err := validate(doc); err != nil {
		return document{}, fmt.Errorf("%w %s: %w", ErrDatabaseInvalid, path, err)
	}

	return doc, nil
}

func decode(f format, data []byte) (document, error) {
	var doc document

	if f == formatYAML {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return document{}, fmt.Errorf("invalid YAML: %w", err)
		}

		return doc, nil
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return document{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	if err := json.Unmarshal(standardized, &doc); err != nil {
		return document{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return doc, nil
}

func encode(f format, doc document) ([]byte, error) {
	if f == formatYAML {
		return yaml.Marshal(doc)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}

// validate rejects documents the index cannot serve. Package names double
// as cellar directory names, so they may not contain path separators.
func validate(doc document) error {
	seen := make(map[string]bool, len(doc.Packages))

	for i, rec := range doc.Packages {
		switch {
		case rec.Name == "":
			return fmt.Errorf("package #%d has no name", i+1)
		case rec.Name == "." || rec.Name == ".." || strings.ContainsAny(rec.Name, `/\`):
			return fmt.Errorf("package name %q is not a valid directory name", rec.Name)
		case seen[rec.Name]:
			return fmt.Errorf("package %q listed twice", rec.Name)
		}

		seen[rec.Name] = true
	}

	return nil
}
