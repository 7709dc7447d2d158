package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/layerlint/pkg/core"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "layerlint.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "layerlint.yml"

// FindConfigFile returns the config file in dir, or "" if there is none.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadDepfile reads a depfile and everything it imports. Import paths are
// relative to the importing file. Imported layers come first, followed by
// the importing file's own; ruleset and skip entries are concatenated the
// same way. Duplicates are left for the analyser to reject.
func LoadDepfile(path string) (*Depfile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return loadDepfile(abs, map[string]bool{})
}

func loadDepfile(path string, visiting map[string]bool) (*Depfile, error) {
	if visiting[path] {
		return nil, &core.ConfigurationError{Msg: fmt.Sprintf("import cycle through %s", path)}
	}
	visiting[path] = true
	defer delete(visiting, path)

	data, err := os.ReadFile(path) //nolint:gosec // path comes from flags or an imports list
	if err != nil {
		return nil, fmt.Errorf("failed to read depfile: %w", err)
	}
	own, err := ParseDepfile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	own.Path = path

	merged := &Depfile{Path: path}
	for _, imp := range own.Imports {
		if !filepath.IsAbs(imp) {
			imp = filepath.Join(filepath.Dir(path), imp)
		}
		sub, err := loadDepfile(filepath.Clean(imp), visiting)
		if err != nil {
			return nil, err
		}
		merged.Layers = append(merged.Layers, sub.Layers...)
		merged.Ruleset = append(merged.Ruleset, sub.Ruleset...)
		merged.SkipViolations = append(merged.SkipViolations, sub.SkipViolations...)
	}
	merged.Imports = own.Imports
	merged.Layers = append(merged.Layers, own.Layers...)
	merged.Ruleset = append(merged.Ruleset, own.Ruleset...)
	merged.SkipViolations = append(merged.SkipViolations, own.SkipViolations...)
	return merged, nil
}

// ParseDepfile decodes a single depfile without following imports. Unknown
// top-level keys are ignored so the same file can carry CLI settings.
func ParseDepfile(data []byte) (*Depfile, error) {
	var d Depfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, &core.ConfigurationError{Msg: "invalid depfile", Err: err}
	}
	return &d, nil
}
