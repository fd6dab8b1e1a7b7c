// Package query fetches live game server state and caches it for a short time.
package query

import (
	"context"
	"net"
	"strings"
)

// Player is a participant as reported by a query backend.
type Player struct {
	Name string `json:"name"`
	Team int    `json:"team"`
}

// ServerInfo is the normalized server state shared by all backends.
type ServerInfo struct {
	NumPlayers  int      `json:"numPlayers"`
	MaxPlayers  int      `json:"maxPlayers"`
	GameVariant string   `json:"gameVariant"`
	Players     []Player `json:"players"`
}

// FindPlayer reports whether a player with the exact name is present.
func (s ServerInfo) FindPlayer(name string) (Player, bool) {
	for _, p := range s.Players {
		if p.Name == name {
			return p, true
		}
	}

	return Player{}, false
}

// Target identifies the server to query.
type Target struct {
	Address   string
	Port      int
	QueryPort int
}

// Client is what bots and servers consume.
type Client interface {
	GetServerInfo(ctx context.Context, t Target) (ServerInfo, error)
}

// Backend fetches uncached server state.
type Backend interface {
	// Key identifies the target within the backend, used as the cache key.
	Key(t Target) string
	Fetch(ctx context.Context, t Target) (ServerInfo, error)
}

// ShouldQueryDirectly reports whether the native protocol must be used. Public
// status APIs only know servers with a global address.
func ShouldQueryDirectly(address string, forced bool) bool {
	if forced {
		return true
	}

	ip := net.ParseIP(address)
	if ip == nil {
		// hostnames are resolved by the status API
		return false
	}

	return !ip.IsGlobalUnicast() || ip.IsPrivate()
}

// stripTag removes a leading clan tag, names are reported as "[tag] name".
func stripTag(name string) string {
	if _, rest, ok := strings.Cut(name, " "); ok && rest != "" {
		return rest
	}

	return name
}
