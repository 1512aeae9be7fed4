package goPerm

import (
	"errors"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a setting that is valid but likely unintended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	codes := make([]string, 0, len(ws))
	for _, w := range ws {
		codes = append(codes, w.Code)
	}
	return codes
}

// BySeverity returns the warnings at or above min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil.
func (ws LintWarnings) AsError(min LintSeverity) error {
	filtered := ws.BySeverity(min)
	if len(filtered) == 0 {
		return nil
	}
	parts := make([]string, 0, len(filtered))
	for _, w := range filtered {
		parts = append(parts, w.Severity.String()+" "+w.Code+": "+w.Message)
	}
	return errors.New("config lint: " + strings.Join(parts, "; "))
}

// Lint reports settings that pass Validate but weaken cache consistency or
// observability. Build logs every warning.
func (c Config) Lint() LintWarnings {
	var ws LintWarnings

	if !c.Cache.Enabled {
		ws = append(ws, LintWarning{
			Code:     "cache_disabled",
			Severity: LintInfo,
			Message:  "every check resolves permissions from the user provider",
		})
	} else {
		if c.Cache.TTL > time.Hour {
			ws = append(ws, LintWarning{
				Code:     "cache_ttl_long",
				Severity: LintWarn,
				Message:  "entries missed by invalidation stay stale for over an hour",
			})
		}
		if c.Cache.OperationTimeout == 0 {
			ws = append(ws, LintWarning{
				Code:     "cache_no_timeout",
				Severity: LintHigh,
				Message:  "a stalled Redis blocks every permission check",
			})
		} else if c.Cache.OperationTimeout > time.Second {
			ws = append(ws, LintWarning{
				Code:     "cache_timeout_long",
				Severity: LintWarn,
				Message:  "checks wait over a second before falling back to direct computation",
			})
		}
	}

	if !c.Audit.Enabled {
		ws = append(ws, LintWarning{
			Code:     "audit_disabled",
			Severity: LintInfo,
			Message:  "permission changes are not audited",
		})
	} else if !c.Audit.DropIfFull {
		ws = append(ws, LintWarning{
			Code:     "audit_blocking",
			Severity: LintWarn,
			Message:  "write paths block while the audit buffer is full",
		})
	}

	return ws
}
