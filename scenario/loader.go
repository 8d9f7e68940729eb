package scenario

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kairos-run/orchestrator/orcherr"
)

// LoadFile parses a scenario Definition from path, dispatching on extension
// (.json → JSON, .yaml/.yml → YAML, case-insensitive).
func LoadFile(path string, raw []byte) (*Definition, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var def Definition
	var err error
	switch ext {
	case ".json":
		err = json.Unmarshal(raw, &def)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &def)
	default:
		return nil, orcherr.Newf(orcherr.InvalidDefinition, "%s: unsupported scenario file extension %q", path, ext)
	}
	if err != nil {
		return nil, orcherr.New(orcherr.InvalidDefinition, fmt.Errorf("%s: %w", path, err))
	}
	return &def, nil
}

// IsScenarioFile reports whether path has a recognized scenario-file
// extension.
func IsScenarioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
