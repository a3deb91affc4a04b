// Package models holds the wire-level domain types shared by the API
// client, the token store, and the session manager.
package models

// Role is the capability class assigned to an account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Tier is the membership level gating paid features.
type Tier string

const (
	TierFree    Tier = "free"
	TierGold    Tier = "gold"
	TierDiamond Tier = "diamond"
)

// tierRank orders tiers for minimum-tier comparisons.
var tierRank = map[Tier]int{
	TierFree:    0,
	TierGold:    1,
	TierDiamond: 2,
}

// AtLeast reports whether t satisfies the minimum tier min.
// Unknown tiers rank below free.
func (t Tier) AtLeast(min Tier) bool {
	return tierRank[t] >= tierRank[min]
}

// User is the verified account as returned by the backend's verify and
// login endpoints.
type User struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	Role          Role     `json:"role"`
	Permissions   []string `json:"permissions"`
	Tier          Tier     `json:"tier"`
	AnalysisCount int      `json:"analysis_count"`
	AnalysisLimit int      `json:"analysis_limit"`
}

// HasPermission reports whether the user's permission set contains perm.
func (u *User) HasPermission(perm string) bool {
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. State snapshots hand these out to subscribers,
// so the manager never shares its own mutable copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Permissions = append([]string(nil), u.Permissions...)
	return &c
}
