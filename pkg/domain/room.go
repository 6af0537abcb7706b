package domain

// DefaultRoomID is the room used when none is configured.
const DefaultRoomID = "default-chat"

// Room is a named, independent message stream.
// Members and Active are display counters only.
type Room struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name" toml:"name"`
	Description string `json:"description,omitempty" toml:"description"`
	Members     int    `json:"members,omitempty" toml:"members"`
	Active      int    `json:"active,omitempty" toml:"active"`
}

// DisplayName returns the room name, falling back to its ID.
func (r Room) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
