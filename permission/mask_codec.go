package permission

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// OverrideSeparator joins packed tokens in an override string.
const OverrideSeparator = "."

// Pack combines a feature id and a mask into one wire token value.
func Pack(featureID, mask uint16) uint32 {
	return uint32(featureID)<<16 | uint32(mask)
}

// Unpack splits a wire token value into feature id (high 16 bits) and mask
// (low 16 bits).
func Unpack(v uint32) (featureID, mask uint16) {
	return uint16(v >> 16), uint16(v & 0xFFFF)
}

// Codec encodes and decodes per-user override strings against a [Registry].
// Unknown or malformed input is skipped with a warning, never returned as an error.
type Codec struct {
	registry *Registry
	logger   *zap.Logger
}

// NewCodec returns a codec bound to registry. A nil logger discards warnings.
func NewCodec(registry *Registry, logger *zap.Logger) *Codec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{registry: registry, logger: logger}
}

// Encode packs {feature: [actions]} into an override string. Each named action
// contributes its combined mask; an empty action list encodes a zero mask, which
// denies every action of that feature. ok is false when nothing could be encoded.
func (c *Codec) Encode(perms map[string][]string) (string, bool) {
	if len(perms) == 0 {
		return "", false
	}

	masks := make(map[uint16]uint16, len(perms))
	for featureName, actions := range perms {
		f, found := c.registry.Feature(featureName)
		if !found {
			c.logger.Warn("permission: encode skipped unknown feature", zap.String("feature", featureName))
			continue
		}
		var (
			mask  uint16
			known int
		)
		for _, actionName := range actions {
			a, ok := f.Action(actionName)
			if !ok {
				c.logger.Warn("permission: encode skipped unknown action",
					zap.String("feature", featureName),
					zap.String("action", actionName))
				continue
			}
			mask |= a.CombinedMask
			known++
		}
		// An empty action list is an explicit revoke; a list of only unknown
		// actions encodes nothing.
		if len(actions) > 0 && known == 0 {
			continue
		}
		masks[f.ID] = mask
	}
	if len(masks) == 0 {
		return "", false
	}
	return c.EncodeMasks(masks), true
}

// EncodeMasks packs already-computed masks, ordered by feature id.
func (c *Codec) EncodeMasks(masks map[uint16]uint16) string {
	ids := make([]int, 0, len(masks))
	for id := range masks {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteString(OverrideSeparator)
		}
		b.WriteString(strconv.FormatUint(uint64(Pack(uint16(id), masks[uint16(id)])), 10))
	}
	return b.String()
}

// Decode parses an override string into feature id → mask. Tokens that are
// empty, negative, non-numeric, wider than 32 bits, or name an unknown feature
// are skipped. When a feature id repeats, the last token wins.
func (c *Codec) Decode(s string) map[uint16]uint16 {
	out := make(map[uint16]uint16)
	if strings.TrimSpace(s) == "" {
		return out
	}

	for i, tok := range strings.Split(s, OverrideSeparator) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			c.logger.Warn("permission: decode skipped malformed token",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		featureID, mask := Unpack(uint32(v))
		if _, known := c.registry.FeatureByID(featureID); !known {
			c.logger.Warn("permission: decode skipped unknown feature id",
				zap.Int("index", i),
				zap.Uint16("feature_id", featureID))
			continue
		}
		out[featureID] = mask
	}
	return out
}
