package models

// Identity is the already-authenticated principal produced once at the
// transport boundary and passed explicitly into core operations.
type Identity struct {
	UserID     int    `json:"user_id"`
	BuildingID int    `json:"building_id,omitempty"`
	Role       string `json:"role,omitempty"`
}
