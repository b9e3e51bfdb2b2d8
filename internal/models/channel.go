package models

import "time"

// ChannelKind discriminates the scope of a channel.
type ChannelKind string

const (
	ChannelOneToOne      ChannelKind = "ONE_TO_ONE"
	ChannelGroup         ChannelKind = "GROUP"
	ChannelBuilding      ChannelKind = "BUILDING"
	ChannelBuildingGroup ChannelKind = "BUILDING_GROUP"
	ChannelPublic        ChannelKind = "PUBLIC"
)

// MemberRole is the role a user holds inside a channel.
type MemberRole string

const (
	RoleOwner     MemberRole = "OWNER"
	RoleAdmin     MemberRole = "ADMIN"
	RoleModerator MemberRole = "MODERATOR"
	RoleMember    MemberRole = "MEMBER"
)

// CanManageMembers reports whether the role may add/remove members or change roles.
func (r MemberRole) CanManageMembers() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Channel is a named communication scope. Closing a channel flips Active/Closed;
// rows are never physically deleted so membership and messages stay auditable.
type Channel struct {
	ID         int         `db:"id" json:"id"`
	Kind       ChannelKind `db:"kind" json:"kind"`
	BuildingID *int        `db:"building_id" json:"building_id,omitempty"`
	GroupID    *int        `db:"group_id" json:"group_id,omitempty"`
	CreatorID  int         `db:"creator_id" json:"creator_id"`
	PeerLowID  *int        `db:"peer_low_id" json:"-"`
	PeerHighID *int        `db:"peer_high_id" json:"-"`
	Active     bool        `db:"active" json:"active"`
	Private    bool        `db:"private" json:"private"`
	Closed     bool        `db:"closed" json:"closed"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// Membership is a user's participation record in a channel. Inactive rows are
// retained as history and excluded from delivery and roster counts.
type Membership struct {
	ChannelID int        `db:"channel_id" json:"channel_id"`
	UserID    int        `db:"user_id" json:"user_id"`
	Role      MemberRole `db:"role" json:"role"`
	CanWrite  bool       `db:"can_write" json:"can_write"`
	Active    bool       `db:"active" json:"active"`
	JoinedAt  time.Time  `db:"joined_at" json:"joined_at"`
	LeftAt    *time.Time `db:"left_at" json:"left_at,omitempty"`
}
