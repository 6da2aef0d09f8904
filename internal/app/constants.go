package app

import "time"

// Rulebook defaults; deployment config may override them through Params.
const (
	DefaultMinPlayers      = 5
	DefaultLiberalRequired = 5
	DefaultFascistRequired = 6
	DefaultAutostartDelay  = 30 * time.Second
)

// ProtocolVersion is the compatibility version stamped on session records.
const ProtocolVersion = 1
