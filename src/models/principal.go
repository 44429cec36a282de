package models

// Permission hierarchy levels carried in the access token.
const (
	HierarchyClient = 0
	HierarchyUsers  = 1
	HierarchyAdmin  = 2
)

// Principal is the authenticated caller, built once at the API boundary.
type Principal struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Permission string `json:"perm"`
	PermID     int64  `json:"perm_id"`
	Hierarchy  int    `json:"hierarchy"`
	EntityID   int64  `json:"entity_id"`
}
