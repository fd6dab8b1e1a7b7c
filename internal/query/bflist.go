package query

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultBflistURL = "https://api.bflist.io/bf2/v1"

var _ Backend = (*BflistBackend)(nil)

type bflistPlayer struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
	Team int    `json:"team"`
}

type bflistServer struct {
	NumPlayers  int            `json:"numPlayers"`
	MaxPlayers  int            `json:"maxPlayers"`
	GameVariant string         `json:"gameVariant"`
	Players     []bflistPlayer `json:"players"`
}

// BflistBackend queries the public bflist status API.
type BflistBackend struct {
	client  *resty.Client
	baseURL string
}

func NewBflistBackend(baseURL string, timeout time.Duration) *BflistBackend {
	if baseURL == "" {
		baseURL = DefaultBflistURL
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &BflistBackend{client: client, baseURL: baseURL}
}

func (b *BflistBackend) url(t Target) string {
	return fmt.Sprintf("%s/servers/%s:%d", b.baseURL, t.Address, t.Port)
}

func (b *BflistBackend) Key(t Target) string {
	return "get:" + b.url(t)
}

func (b *BflistBackend) Fetch(ctx context.Context, t Target) (ServerInfo, error) {
	var server bflistServer
	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&server).
		Get(b.url(t))
	if err != nil {
		return ServerInfo{}, fmt.Errorf("bflist request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return ServerInfo{}, fmt.Errorf("bflist request: unexpected status %d", resp.StatusCode())
	}

	info := ServerInfo{
		NumPlayers:  server.NumPlayers,
		MaxPlayers:  server.MaxPlayers,
		GameVariant: server.GameVariant,
		Players:     make([]Player, 0, len(server.Players)),
	}
	for _, p := range server.Players {
		info.Players = append(info.Players, Player{Name: p.Name, Team: p.Team})
	}

	return info, nil
}
