package permission

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"
)

var (
	// ErrInvalidCatalog is wrapped by every catalog validation failure.
	ErrInvalidCatalog = errors.New("invalid feature catalog")
)

// ProcessedAction is the build-time result for one action.
type ProcessedAction struct {
	Name         string
	Value        uint16
	CombinedMask uint16
	MinLevel     Level
}

// Feature is a processed catalog entry. Its actions are reachable only through
// accessors so a shared *Feature cannot change the registry.
type Feature struct {
	ID   uint16
	Name string

	actions map[string]ProcessedAction
	order   []string // action names by ascending bit value
}

// Action returns the processed action by name.
func (f *Feature) Action(name string) (ProcessedAction, bool) {
	if f == nil {
		return ProcessedAction{}, false
	}
	a, ok := f.actions[name]
	return a, ok
}

// clone shares the action map and order, which nothing writes after build.
func (f *Feature) clone() *Feature {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// ActionNames returns a copy of the action names in bit order.
func (f *Feature) ActionNames() []string {
	if f == nil {
		return nil
	}
	names := make([]string, len(f.order))
	copy(names, f.order)
	return names
}

// LevelMask returns the OR of CombinedMask over every action whose MinLevel is at
// or below level.
func (f *Feature) LevelMask(level Level) uint16 {
	var mask uint16
	for _, name := range f.order {
		a := f.actions[name]
		if a.MinLevel <= level {
			mask |= a.CombinedMask
		}
	}
	return mask
}

// Allowed returns, in bit order, the names of actions whose full combined mask is
// contained in mask.
func (f *Feature) Allowed(mask uint16) []string {
	var out []string
	for _, name := range f.order {
		a := f.actions[name]
		if mask&a.CombinedMask == a.CombinedMask {
			out = append(out, name)
		}
	}
	return out
}

// Registry is the immutable feature catalog with precomputed combined masks.
// It is built once by [NewRegistry] and never modified afterwards.
type Registry struct {
	catalog  []string
	raw      map[string]map[string]ActionConfig
	features map[string]*Feature
	byID     map[uint16]*Feature
}

// NewRegistry merges every feature with the catalog defaults, validates the
// result, and computes each action's combined mask.
func NewRegistry(features []FeatureConfig) (*Registry, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no features declared", ErrInvalidCatalog)
	}

	r := &Registry{
		catalog:  make([]string, 0, len(features)),
		raw:      make(map[string]map[string]ActionConfig, len(features)),
		features: make(map[string]*Feature, len(features)),
		byID:     make(map[uint16]*Feature, len(features)),
	}

	defaults := DefaultActions()
	sorted := make([]FeatureConfig, len(features))
	copy(sorted, features)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, fc := range sorted {
		if fc.Name == "" {
			return nil, fmt.Errorf("%w: feature %d has an empty name", ErrInvalidCatalog, fc.ID)
		}
		if fc.ID < 0 || fc.ID > math.MaxUint16 {
			return nil, fmt.Errorf("%w: feature %q id %d outside 0..65535", ErrInvalidCatalog, fc.Name, fc.ID)
		}
		id := uint16(fc.ID)
		if _, exists := r.features[fc.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate feature name %q", ErrInvalidCatalog, fc.Name)
		}
		if other, exists := r.byID[id]; exists {
			return nil, fmt.Errorf("%w: features %q and %q share id %d", ErrInvalidCatalog, other.Name, fc.Name, fc.ID)
		}

		merged, err := mergeFeature(fc, defaults)
		if err != nil {
			return nil, err
		}

		f := &Feature{
			ID:      id,
			Name:    fc.Name,
			actions: processActions(merged),
		}
		f.order = make([]string, 0, len(f.actions))
		for name := range f.actions {
			f.order = append(f.order, name)
		}
		sort.Slice(f.order, func(i, j int) bool {
			return f.actions[f.order[i]].Value < f.actions[f.order[j]].Value
		})

		r.catalog = append(r.catalog, fc.Name)
		r.raw[fc.Name] = merged
		r.features[fc.Name] = f
		r.byID[id] = f
	}

	return r, nil
}

func mergeFeature(fc FeatureConfig, defaults map[string]ActionConfig) (map[string]ActionConfig, error) {
	merged := make(map[string]ActionConfig, len(defaults)+len(fc.Actions))
	for name, def := range defaults {
		merged[name] = mergeAction(def, true, fc.Actions[name])
	}
	for name, ac := range fc.Actions {
		if name == "" {
			return nil, fmt.Errorf("%w: feature %q declares an empty action name", ErrInvalidCatalog, fc.Name)
		}
		if _, isDefault := defaults[name]; isDefault {
			continue
		}
		merged[name] = mergeAction(ActionConfig{}, false, ac)
	}

	seen := make(map[uint16]string, len(merged))
	for name, ac := range merged {
		if ac.Value == 0 || bits.OnesCount16(ac.Value) != 1 {
			return nil, fmt.Errorf("%w: %s.%s value %d is not a single bit", ErrInvalidCatalog, fc.Name, name, ac.Value)
		}
		if other, dup := seen[ac.Value]; dup {
			return nil, fmt.Errorf("%w: %s.%s and %s.%s share bit %d", ErrInvalidCatalog, fc.Name, other, fc.Name, name, ac.Value)
		}
		seen[ac.Value] = name
		for _, parent := range ac.Inherits {
			if _, ok := merged[parent]; !ok {
				return nil, fmt.Errorf("%w: %s.%s inherits unknown action %q", ErrInvalidCatalog, fc.Name, name, parent)
			}
		}
	}
	return merged, nil
}

// processActions computes combined masks with an explicit stack. A cycle in the
// inherits relation terminates on the visited set and yields the union of the cycle.
func processActions(actions map[string]ActionConfig) map[string]ProcessedAction {
	out := make(map[string]ProcessedAction, len(actions))
	for name, ac := range actions {
		var mask uint16
		visited := map[string]struct{}{name: {}}
		stack := []string{name}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			node := actions[cur]
			mask |= node.Value
			for _, parent := range node.Inherits {
				if _, done := visited[parent]; done {
					continue
				}
				visited[parent] = struct{}{}
				stack = append(stack, parent)
			}
		}
		out[name] = ProcessedAction{
			Name:         name,
			Value:        ac.Value,
			CombinedMask: mask,
			MinLevel:     ac.MinLevel,
		}
	}
	return out
}

// Feature returns a copy of the processed feature by name.
func (r *Registry) Feature(name string) (*Feature, bool) {
	f, ok := r.features[name]
	return f.clone(), ok
}

// FeatureByID returns a copy of the processed feature by numeric id.
func (r *Registry) FeatureByID(id uint16) (*Feature, bool) {
	f, ok := r.byID[id]
	return f.clone(), ok
}

// Catalog returns the declared feature names ordered by id.
func (r *Registry) Catalog() []string {
	out := make([]string, len(r.catalog))
	copy(out, r.catalog)
	return out
}

// Features returns the processed features ordered by id.
func (r *Registry) Features() []*Feature {
	out := make([]*Feature, 0, len(r.catalog))
	for _, name := range r.catalog {
		if f, ok := r.features[name]; ok {
			out = append(out, f.clone())
		}
	}
	return out
}

// RawActions returns a copy of the merged, unprocessed action configs of a feature.
func (r *Registry) RawActions(feature string) (map[string]ActionConfig, bool) {
	raw, ok := r.raw[feature]
	if !ok {
		return nil, false
	}
	out := make(map[string]ActionConfig, len(raw))
	for name, ac := range raw {
		inherits := make([]string, len(ac.Inherits))
		copy(inherits, ac.Inherits)
		ac.Inherits = inherits
		out[name] = ac
	}
	return out, true
}

// Count returns the number of features.
func (r *Registry) Count() int {
	return len(r.catalog)
}

// AllActions lists every action of every feature, in bit order.
func (r *Registry) AllActions() map[string][]string {
	out := make(map[string][]string, len(r.catalog))
	for _, f := range r.Features() {
		out[f.Name] = f.ActionNames()
	}
	return out
}
