package config

import (
	"fmt"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const DefaultSensitivity = 50

type ClientConfig struct {
	ServerURL   string   `mapstructure:"server_url"`
	Username    string   `mapstructure:"username"`
	Sensitivity float64  `mapstructure:"sensitivity"`
	ICEServers  []string `mapstructure:"ice_servers"`
	LogLevel    string   `mapstructure:"log_level"`
	// Lobby is joined when set; otherwise the client creates LobbyName.
	Lobby     string `mapstructure:"lobby"`
	LobbyName string `mapstructure:"lobby_name"`
	Password  string `mapstructure:"password"`
}

// LoadClient reads the headless client configuration. The returned Prefs
// share the same viper instance, so Save persists what was loaded plus
// any later change.
func LoadClient(args []string) (*ClientConfig, *Prefs, error) {
	fs := pflag.NewFlagSet("voice-client", pflag.ContinueOnError)
	fs.String("config", "config/client.yaml", "path to a yaml config file")
	fs.String("server-url", "ws://localhost:8080/api/ws/signal", "signal endpoint")
	fs.String("username", "", "display name")
	fs.String("lobby", "", "lobby id to join")
	fs.String("lobby-name", "", "name of the lobby to create")
	fs.String("password", "", "lobby password")
	fs.String("log-level", "info", "zerolog level")

	v, err := newViper(fs, args)
	if err != nil {
		return nil, nil, err
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, nil, err
	}
	v.SetDefault("sensitivity", DefaultSensitivity)
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	return &cfg, NewPrefs(v), nil
}

// Prefs are the user preferences kept between runs.
type Prefs struct {
	mu sync.Mutex
	v  *viper.Viper
}

func NewPrefs(v *viper.Viper) *Prefs { return &Prefs{v: v} }

func (p *Prefs) Username() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.v.GetString("username")
}

func (p *Prefs) SetUsername(name string) {
	p.mu.Lock()
	p.v.Set("username", name)
	p.mu.Unlock()
}

func (p *Prefs) Sensitivity() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.v.GetFloat64("sensitivity")
}

func (p *Prefs) SetSensitivity(s float64) {
	p.mu.Lock()
	p.v.Set("sensitivity", s)
	p.mu.Unlock()
}

func (p *Prefs) SetServerURL(u string) {
	p.mu.Lock()
	p.v.Set("server_url", u)
	p.mu.Unlock()
}

// Save writes the preferences back to the config file in use.
func (p *Prefs) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.v.ConfigFileUsed() == "" {
		return fmt.Errorf("no config file to save to")
	}
	return p.v.WriteConfig()
}
