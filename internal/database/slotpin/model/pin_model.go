package model

import "time"

// Pin is an operator override of a server's bot slot target.
type Pin struct {
	Server   string    `json:"server"`
	Slots    int       `json:"slots"`
	PinnedAt time.Time `json:"pinnedAt"`
}
