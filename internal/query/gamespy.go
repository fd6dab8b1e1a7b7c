package query

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

var _ Backend = (*GamespyBackend)(nil)

var (
	ErrMalformedPacket = errors.New("malformed gamespy packet")
	ErrMissingPacket   = errors.New("missing gamespy packet")
)

const (
	gamespyMagic0     byte = 0xFE
	gamespyMagic1     byte = 0xFD
	gamespyTypeQuery  byte = 0x00
	gamespySessionID       = uint32(1)
	gamespySplitLabel      = "splitnum\x00"
	gamespyMaxPacket       = 4096
)

// full info request: server rules, players and teams
var gamespyRequestAll = []byte{0xFF, 0xFF, 0xFF, 0x01}

// GamespyBackend talks GameSpy v3 over UDP to the server's query port.
// Battlefield 2 answers without a challenge handshake.
type GamespyBackend struct {
	timeout     time.Duration
	maxAttempts int
}

func NewGamespyBackend(timeout time.Duration, maxAttempts int) *GamespyBackend {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &GamespyBackend{timeout: timeout, maxAttempts: maxAttempts}
}

func (g *GamespyBackend) Key(t Target) string {
	return fmt.Sprintf("query:gamespy3:%s:%d", t.Address, t.QueryPort)
}

func (g *GamespyBackend) Fetch(ctx context.Context, t Target) (ServerInfo, error) {
	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		packets, err := g.roundTrip(ctx, t)
		if err == nil {
			return parseGamespy(packets)
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return ServerInfo{}, fmt.Errorf("gamespy query %s:%d: %w", t.Address, t.QueryPort, lastErr)
}

func (g *GamespyBackend) roundTrip(ctx context.Context, t Target) ([][]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", net.JoinHostPort(t.Address, strconv.Itoa(t.QueryPort)))
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(g.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	req := make([]byte, 0, 7+len(gamespyRequestAll))
	req = append(req, gamespyMagic0, gamespyMagic1, gamespyTypeQuery)
	req = binary.BigEndian.AppendUint32(req, gamespySessionID)
	req = append(req, gamespyRequestAll...)
	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	parts := make(map[int][]byte)
	total := 0
	buf := make([]byte, gamespyMaxPacket)
	for total == 0 || len(parts) < total {
		n, err := conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}

		id, last, body, ok := splitGamespyPacket(buf[:n])
		if !ok {
			continue
		}

		parts[id] = body
		if last {
			total = id + 1
		}
	}

	packets := make([][]byte, total)
	for i := 0; i < total; i++ {
		p, ok := parts[i]
		if !ok {
			return nil, fmt.Errorf("packet %d: %w", i, ErrMissingPacket)
		}
		packets[i] = p
	}

	return packets, nil
}

// splitGamespyPacket validates the header and returns the packet number and payload.
func splitGamespyPacket(b []byte) (id int, last bool, body []byte, ok bool) {
	// type, session id, "splitnum\0", packet number, unknown byte
	headerLen := 1 + 4 + len(gamespySplitLabel) + 2
	if len(b) < headerLen || b[0] != gamespyTypeQuery {
		return 0, false, nil, false
	}

	if binary.BigEndian.Uint32(b[1:5]) != gamespySessionID {
		return 0, false, nil, false
	}

	n := b[5+len(gamespySplitLabel)]
	body = make([]byte, len(b)-headerLen)
	copy(body, b[headerLen:])

	return int(n & 0x7F), n&0x80 != 0, body, true
}

type gamespyReader struct {
	b   []byte
	pos int
}

func (r *gamespyReader) done() bool {
	return r.pos >= len(r.b)
}

func (r *gamespyReader) readByte() byte {
	c := r.b[r.pos]
	r.pos++
	return c
}

func (r *gamespyReader) readString() string {
	end := bytes.IndexByte(r.b[r.pos:], 0)
	if end < 0 {
		s := string(r.b[r.pos:])
		r.pos = len(r.b)
		return s
	}

	s := string(r.b[r.pos : r.pos+end])
	r.pos += end + 1
	return s
}

// parseGamespy reads the rule key/values from the first packet and the
// player/team field arrays from every packet.
func parseGamespy(packets [][]byte) (ServerInfo, error) {
	if len(packets) == 0 {
		return ServerInfo{}, ErrMalformedPacket
	}

	rules := make(map[string]string)
	players := make([]map[string]string, 0)

	for i, packet := range packets {
		r := &gamespyReader{b: packet}
		if i == 0 {
			for !r.done() {
				key := r.readString()
				if key == "" {
					break
				}
				rules[key] = r.readString()
			}
		}

		for !r.done() {
			if r.readByte() <= 2 {
				continue
			}
			r.pos--

			field := r.readString()
			if field == "" || r.done() {
				continue
			}

			name, kind, _ := strings.Cut(field, "_")
			offset := int(r.readByte())
			for !r.done() {
				item := r.readString()
				if item == "" {
					break
				}

				// team arrays are suffixed "_t" and not needed
				if kind == "" {
					for len(players) <= offset {
						players = append(players, make(map[string]string))
					}
					players[offset][name] = item
				}
				offset++
			}
		}
	}

	maxPlayers, err := strconv.Atoi(rules["maxplayers"])
	if err != nil {
		return ServerInfo{}, fmt.Errorf("maxplayers %q: %w", rules["maxplayers"], ErrMalformedPacket)
	}

	info := ServerInfo{
		MaxPlayers:  maxPlayers,
		GameVariant: rules["gamevariant"],
		Players:     make([]Player, 0, len(players)),
	}
	for _, p := range players {
		team, _ := strconv.Atoi(p["team"])
		info.Players = append(info.Players, Player{Name: stripTag(p["player"]), Team: team})
	}
	info.NumPlayers = len(info.Players)

	return info, nil
}
