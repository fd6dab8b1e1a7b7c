package model

import (
	"strconv"
	"time"
)

// Identity is the rotating in-game identity of one bot slot.
type Identity struct {
	Server    string    `json:"server"`
	Slot      int       `json:"slot"`
	Nickname  string    `json:"nickname"`
	CDKey     string    `json:"cdkey"`
	RotatedAt time.Time `json:"rotatedAt"`
}

func Key(server string, slot int) string {
	return server + "/" + strconv.Itoa(slot)
}

func (i Identity) Key() string {
	return Key(i.Server, i.Slot)
}
