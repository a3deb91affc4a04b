package gate

import "github.com/adminkit/session/internal/models"

// DefaultFeatures is the capability table of the admin application.
// Feature IDs match what the dashboard screens request.
func DefaultFeatures() map[string]Requirement {
	return map[string]Requirement{
		// Read-only overview, visible without login.
		"dashboard": {GuestAllowed: true},

		// Core screens for any signed-in account.
		"profile":        {},
		"analysis-basic": {CountsUsage: true},

		// Paid tiers.
		"analysis-advanced": {MinTier: models.TierGold, CountsUsage: true},
		"real-time-alerts":  {MinTier: models.TierDiamond},
		"export-reports":    {MinTier: models.TierGold, Permission: "reports:export"},

		// Administration.
		"user-management":       {Roles: []models.Role{models.RoleAdmin, models.RoleManager}},
		"permission-management": {Roles: []models.Role{models.RoleAdmin}},
		"financial-dashboard":   {Roles: []models.Role{models.RoleAdmin, models.RoleManager}, Permission: "finance:read"},
	}
}
