package permission

import "time"

// FeatureGrant lists the actions a user may perform on one feature, in bit order.
type FeatureGrant struct {
	ID      uint16   `json:"id"`
	Actions []string `json:"actions"`
}

// EffectivePermissions is the resolved permission set of a user at a point in
// time. It is also the cache payload.
type EffectivePermissions struct {
	UserID      string                  `json:"user_id"`
	Level       Level                   `json:"level"`
	ExpiresAt   *time.Time              `json:"expires_at"`
	Permissions map[string]FeatureGrant `json:"permissions"`
}

// Allows reports whether action is granted on feature.
func (p *EffectivePermissions) Allows(feature, action string) bool {
	if p == nil {
		return false
	}
	grant, ok := p.Permissions[feature]
	if !ok {
		return false
	}
	for _, a := range grant.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Expired reports whether the override expiry recorded in p has passed.
func (p *EffectivePermissions) Expired(now time.Time) bool {
	return p != nil && p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}

// Actions flattens the grants to feature → action names.
func (p *EffectivePermissions) Actions() map[string][]string {
	if p == nil {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(p.Permissions))
	for name, grant := range p.Permissions {
		actions := make([]string, len(grant.Actions))
		copy(actions, grant.Actions)
		out[name] = actions
	}
	return out
}
