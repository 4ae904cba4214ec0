package middleware

import (
	"log/slog"
	"net/http"

	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/platform/httputil"
	"docgate/pkg/requestcontext"
)

// Role enumerates who can act on the review surface. Roles come from the
// token claims; the gate below is the only place capabilities are checked,
// so rendering layers never need their own conditionals.
type Role string

const (
	RoleManager         Role = "manager"
	RoleHandler         Role = "handler"
	RoleRuleAdmin       Role = "rule_admin"
	RolePermissionAdmin Role = "permission_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleHandler, RoleRuleAdmin, RolePermissionAdmin:
		return true
	}
	return false
}

// Capability is a named permission an operation requires.
type Capability string

const (
	// CapViewCases allows reading case lists, details, and history.
	CapViewCases Capability = "view_cases"
	// CapReviewCases allows transitions, field overrides, and supplement
	// flags on assigned cases.
	CapReviewCases Capability = "review_cases"
	// CapManageRoster allows adding, reordering, and (de)activating
	// handlers, and reassigning cases.
	CapManageRoster Capability = "manage_roster"
	// CapManageRules allows toggling rule enabled/required flags.
	CapManageRules Capability = "manage_rules"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleManager: {
		CapViewCases:    true,
		CapReviewCases:  true,
		CapManageRoster: true,
		CapManageRules:  true,
	},
	RoleHandler: {
		CapViewCases:   true,
		CapReviewCases: true,
	},
	RoleRuleAdmin: {
		CapViewCases:   true,
		CapManageRules: true,
	},
	RolePermissionAdmin: {
		CapViewCases:    true,
		CapManageRoster: true,
	},
}

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

// RequireCapability rejects requests whose actor lacks the capability.
// Must run after RequireAuth.
func RequireCapability(capability Capability, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.ActorFrom(ctx)
			if !Role(actor.Role).Can(capability) {
				logger.WarnContext(ctx, "capability denied",
					"request_id", requestcontext.RequestID(ctx),
					"actor_id", actor.ID,
					"role", actor.Role,
					"capability", capability,
				)
				httputil.WriteError(w, dErrors.Newf(dErrors.CodeForbidden, "role %s lacks %s", actor.Role, capability))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
