package domain

// Member represents user's participation meta for a lobby.
// No transport or lifecycle logic here.
type Member struct {
	User *User
	// Seq is the join order inside the lobby; lower joined earlier.
	Seq uint64
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{User: user}
}
