package permission

// Built-in action names.
const (
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionCreate  = "create"
	ActionExecute = "execute"
)

// ActionConfig describes one action of a feature as declared in a catalog.
//
// A zero Value or zero MinLevel, or a nil Inherits, means the catalog default for
// that action applies. A non-nil empty Inherits declares that the action inherits
// nothing.
//
// Because zero selects the default, a feature cannot set a default action's
// MinLevel to exactly 0; any other value, negative included, is taken as given.
// An action with no catalog default and a zero MinLevel keeps 0 and is granted
// at every non-negative level.
type ActionConfig struct {
	Value    uint16   `json:"value,omitempty" yaml:"value,omitempty"`
	MinLevel Level    `json:"min_level,omitempty" yaml:"min_level,omitempty"`
	Inherits []string `json:"inherits,omitempty" yaml:"inherits,omitempty"`
}

// FeatureConfig declares a protected feature. IDs are persisted inside override
// strings and must never be reused for a different feature.
type FeatureConfig struct {
	ID      int                     `json:"id" yaml:"id"`
	Name    string                  `json:"name" yaml:"name"`
	Actions map[string]ActionConfig `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// DefaultActions returns the catalog-wide action defaults every feature starts from.
func DefaultActions() map[string]ActionConfig {
	return map[string]ActionConfig{
		ActionRead:    {Value: 1, MinLevel: LevelReader, Inherits: []string{}},
		ActionUpdate:  {Value: 2, MinLevel: LevelUser, Inherits: []string{ActionRead}},
		ActionCreate:  {Value: 4, MinLevel: LevelUser, Inherits: []string{ActionRead, ActionUpdate}},
		ActionExecute: {Value: 8, MinLevel: LevelAdmin, Inherits: []string{}},
	}
}

// DefaultCatalog returns the built-in feature catalog.
func DefaultCatalog() []FeatureConfig {
	return []FeatureConfig{
		{ID: 1, Name: "customer"},
		{ID: 2, Name: "order", Actions: map[string]ActionConfig{
			"cancel": {Value: 16, MinLevel: LevelUser, Inherits: []string{ActionUpdate}},
		}},
		{ID: 3, Name: "return", Actions: map[string]ActionConfig{
			"approve": {Value: 16, MinLevel: LevelEditor, Inherits: []string{ActionUpdate}},
		}},
		{ID: 4, Name: "invoice", Actions: map[string]ActionConfig{
			ActionCreate: {MinLevel: LevelEditor},
			"void":       {Value: 16, MinLevel: LevelAdmin, Inherits: []string{ActionUpdate}},
		}},
		{ID: 5, Name: "product", Actions: map[string]ActionConfig{
			ActionCreate: {Inherits: []string{ActionUpdate}},
		}},
		{ID: 6, Name: "config", Actions: map[string]ActionConfig{
			ActionRead:   {MinLevel: LevelEditor},
			ActionUpdate: {MinLevel: LevelAdmin},
			ActionCreate: {MinLevel: LevelAdmin},
		}},
		{ID: 7, Name: "user", Actions: map[string]ActionConfig{
			ActionRead:   {MinLevel: LevelEditor},
			ActionUpdate: {MinLevel: LevelAdmin},
			ActionCreate: {MinLevel: LevelAdmin},
		}},
		{ID: 8, Name: "report", Actions: map[string]ActionConfig{
			ActionExecute: {MinLevel: LevelEditor},
			"export":      {Value: 16, MinLevel: LevelUser, Inherits: []string{ActionRead}},
		}},
	}
}

func mergeAction(def ActionConfig, hasDefault bool, override ActionConfig) ActionConfig {
	out := ActionConfig{}
	if hasDefault {
		out.Value = def.Value
		out.MinLevel = def.MinLevel
		out.Inherits = def.Inherits
	}
	if override.Value != 0 {
		out.Value = override.Value
	}
	if override.MinLevel != 0 {
		out.MinLevel = override.MinLevel
	}
	if override.Inherits != nil {
		out.Inherits = override.Inherits
	}
	inherits := make([]string, len(out.Inherits))
	copy(inherits, out.Inherits)
	out.Inherits = inherits
	return out
}
