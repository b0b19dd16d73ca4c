package domain

type (
	LobbyName string
	LobbyID   string
)

const DefaultLobbyName LobbyName = "Lobby"

const (
	DefaultBoxSize     = 1000
	DefaultVoiceRadius = 200
	DefaultMaxUsers    = 10
)

// Settings is the authoritative configuration of a lobby.
// Password never leaves the server.
type Settings struct {
	BoxSize     int    `json:"boxSize"`
	VoiceRadius int    `json:"voiceRadius"`
	MaxUsers    int    `json:"maxUsers"`
	IsPublic    bool   `json:"isPublic"`
	Password    string `json:"-"`
}

// PublicSettings is what members are allowed to see.
type PublicSettings struct {
	BoxSize     int  `json:"boxSize"`
	VoiceRadius int  `json:"voiceRadius"`
	MaxUsers    int  `json:"maxUsers"`
	IsPublic    bool `json:"isPublic"`
	HasPassword bool `json:"hasPassword"`
}

func DefaultSettings(password string) Settings {
	return Settings{
		BoxSize:     DefaultBoxSize,
		VoiceRadius: DefaultVoiceRadius,
		MaxUsers:    DefaultMaxUsers,
		IsPublic:    password == "",
		Password:    password,
	}
}

func (s Settings) Public() PublicSettings {
	return PublicSettings{
		BoxSize:     s.BoxSize,
		VoiceRadius: s.VoiceRadius,
		MaxUsers:    s.MaxUsers,
		IsPublic:    s.IsPublic,
		HasPassword: s.Password != "",
	}
}

// SettingsPatch carries only the fields a host wants to change.
type SettingsPatch struct {
	BoxSize     *int    `json:"boxSize,omitempty"`
	VoiceRadius *int    `json:"voiceRadius,omitempty"`
	MaxUsers    *int    `json:"maxUsers,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
	Password    *string `json:"password,omitempty"`
}

// TouchesListing reports whether the public lobby listing may change.
func (p SettingsPatch) TouchesListing() bool {
	return p.IsPublic != nil || p.Password != nil || p.MaxUsers != nil
}

// Merge applies the present fields on top of s. Absent fields stay untouched.
// memberCount bounds maxUsers from below.
func (s Settings) Merge(p SettingsPatch, memberCount int) (Settings, error) {
	out := s
	if p.BoxSize != nil {
		if *p.BoxSize <= 0 {
			return s, ErrInvalidSettings
		}
		out.BoxSize = *p.BoxSize
	}
	if p.VoiceRadius != nil {
		if *p.VoiceRadius <= 0 {
			return s, ErrInvalidSettings
		}
		out.VoiceRadius = *p.VoiceRadius
	}
	if p.MaxUsers != nil {
		if *p.MaxUsers <= 0 || *p.MaxUsers < memberCount {
			return s, ErrInvalidSettings
		}
		out.MaxUsers = *p.MaxUsers
	}
	if p.IsPublic != nil {
		out.IsPublic = *p.IsPublic
	}
	if p.Password != nil {
		out.Password = *p.Password
	}
	return out, nil
}

// LobbySnapshot is the full state handed to a member on create/join.
// Users are listed in join order.
type LobbySnapshot struct {
	ID       LobbyID        `json:"id"`
	Name     LobbyName      `json:"name"`
	HostID   UserID         `json:"hostId"`
	Users    []User         `json:"users"`
	Settings PublicSettings `json:"settings"`
}

// LobbyListing is one row of the public lobby browser.
type LobbyListing struct {
	ID          LobbyID   `json:"id"`
	Name        LobbyName `json:"name"`
	MemberCount int       `json:"memberCount"`
	MaxUsers    int       `json:"maxUsers"`
}
