package cdn

import "strings"

// Connection is the effective network class of the client.
type Connection int

const (
	Fast Connection = iota
	Slow
)

func (c Connection) String() string {
	if c == Slow {
		return "slow"
	}
	return "fast"
}

// ConnectionFromEffectiveType maps a Network Information effective type
// ("slow-2g", "2g", "3g", "4g") to a connection class. Unknown or empty
// values count as fast.
func ConnectionFromEffectiveType(ect string) Connection {
	switch strings.ToLower(strings.TrimSpace(ect)) {
	case "slow-2g", "2g", "3g":
		return Slow
	}
	return Fast
}

// Capabilities are the environment facts the encoder reads. They are
// sampled by the caller and passed in; the encoder never looks them up.
type Capabilities struct {
	Connection Connection
	WebP       bool
}
