// Package catalog loads feature catalogs from YAML.
//
// A catalog file lists features by id and name. Each feature starts from the
// default read/update/create/execute actions; the actions map overrides
// defaults or adds feature-specific actions:
//
//	features:
//	  - id: 2
//	    name: order
//	    actions:
//	      cancel:
//	        value: 16
//	        min_level: user
//	        inherits: [update]
//
// min_level accepts a level name (reader, user, editor, admin) or an integer.
// An omitted inherits list keeps the default; an explicit empty list clears it.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MrEthical07/goPerm/permission"
	"gopkg.in/yaml.v3"
)

// ErrEmptyCatalog is returned when a catalog document declares no features.
var ErrEmptyCatalog = errors.New("catalog declares no features")

type fileCatalog struct {
	Features []fileFeature `yaml:"features"`
}

type fileFeature struct {
	ID      *int                  `yaml:"id"`
	Name    string                `yaml:"name"`
	Actions map[string]fileAction `yaml:"actions"`
}

type fileAction struct {
	Value    uint16   `yaml:"value"`
	MinLevel string   `yaml:"min_level"`
	Inherits []string `yaml:"inherits"`
}

// LoadFile reads and parses the catalog at path.
func LoadFile(path string) ([]permission.FeatureConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// LoadRegistry reads the catalog at path and processes it into a registry.
func LoadRegistry(path string) (*permission.Registry, error) {
	features, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return permission.NewRegistry(features)
}

// Parse decodes a YAML catalog. Unknown keys are rejected. Problems that can
// be reported together are joined into one error.
func Parse(data []byte) ([]permission.FeatureConfig, error) {
	var doc fileCatalog

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCatalog
		}
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(doc.Features) == 0 {
		return nil, ErrEmptyCatalog
	}

	var errs []string
	out := make([]permission.FeatureConfig, 0, len(doc.Features))
	for i, ff := range doc.Features {
		fc, problems := ff.toConfig(i)
		errs = append(errs, problems...)
		out = append(out, fc)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog errors: %s", strings.Join(errs, "; "))
	}
	return out, nil
}

func (ff fileFeature) toConfig(idx int) (permission.FeatureConfig, []string) {
	var errs []string

	fc := permission.FeatureConfig{Name: ff.Name}
	if ff.ID == nil {
		errs = append(errs, fmt.Sprintf("features[%d]: id is required", idx))
	} else {
		fc.ID = *ff.ID
	}

	if len(ff.Actions) > 0 {
		fc.Actions = make(map[string]permission.ActionConfig, len(ff.Actions))
	}
	for name, fa := range ff.Actions {
		ac := permission.ActionConfig{
			Value:    fa.Value,
			Inherits: fa.Inherits,
		}
		if fa.MinLevel != "" {
			level, ok := permission.ParseLevel(strings.ToLower(strings.TrimSpace(fa.MinLevel)))
			if !ok {
				errs = append(errs, fmt.Sprintf("features[%d].actions.%s: unknown min_level %q", idx, name, fa.MinLevel))
			}
			ac.MinLevel = level
		}
		fc.Actions[name] = ac
	}

	return fc, errs
}
