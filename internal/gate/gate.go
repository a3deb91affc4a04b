// Package gate derives feature allow/deny decisions from a session state
// snapshot and a static capability table. Decisions are pure: the gate
// never mutates state and never performs I/O.
package gate

import (
	"fmt"

	"github.com/adminkit/session/internal/models"
	"github.com/adminkit/session/internal/session"
)

// Decision is the result of a gate check.
type Decision struct {
	Allowed bool
	Reason  string
}

func deny(reason string) Decision { return Decision{Reason: reason} }

// Requirement describes what a feature demands from the current session.
// Zero-value fields impose no constraint.
type Requirement struct {
	// MinTier is the minimum membership level. Empty means any tier.
	MinTier models.Tier

	// Roles restricts access to the listed roles. Empty means any role.
	Roles []models.Role

	// Permission, when set, must be present in the user's permission set.
	Permission string

	// GuestAllowed whitelists the feature in guest mode.
	GuestAllowed bool

	// CountsUsage subjects the feature to the per-account analysis quota.
	CountsUsage bool
}

// Gate evaluates feature access against a capability table.
type Gate struct {
	features map[string]Requirement
}

// New builds a gate over the given table. The table is not copied; treat
// it as frozen after construction.
func New(features map[string]Requirement) *Gate {
	return &Gate{features: features}
}

// CanAccess decides whether the session in st may use the feature.
//
// Decision order: session mode first (initializing and error deny
// everything, guest only the whitelist), then role, tier, permission, and
// finally the usage quota.
func (g *Gate) CanAccess(st session.State, featureID string) Decision {
	req, known := g.features[featureID]
	if !known {
		return deny(fmt.Sprintf("unknown feature %q", featureID))
	}

	switch st.Mode {
	case session.ModeInitializing:
		return deny("initializing")
	case session.ModeError:
		return deny("auth error")
	case session.ModeGuest:
		if req.GuestAllowed {
			return Decision{Allowed: true}
		}
		return deny("requires login")
	}

	u := st.User
	if u == nil {
		// Defensive: authenticated mode guarantees a user.
		return deny("requires login")
	}

	if len(req.Roles) > 0 && !roleAllowed(u.Role, req.Roles) {
		return deny(fmt.Sprintf("requires role %s", rolesList(req.Roles)))
	}
	if req.MinTier != "" && !u.Tier.AtLeast(req.MinTier) {
		return deny(fmt.Sprintf("requires %s tier or higher", req.MinTier))
	}
	if req.Permission != "" && !u.HasPermission(req.Permission) {
		return deny(fmt.Sprintf("missing permission %q", req.Permission))
	}
	if req.CountsUsage && u.AnalysisLimit > 0 && u.AnalysisCount >= u.AnalysisLimit {
		return deny(fmt.Sprintf("analysis limit reached (%d/%d)", u.AnalysisCount, u.AnalysisLimit))
	}

	return Decision{Allowed: true}
}

func roleAllowed(have models.Role, want []models.Role) bool {
	for _, r := range want {
		if have == r {
			return true
		}
	}
	return false
}

func rolesList(roles []models.Role) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += " or "
		}
		out += string(r)
	}
	return out
}
