package models

import (
	"math/rand/v2"
	"strconv"
)

// Handle is the stable identity of an entity. Values are random 64-bit
// integers; collisions are not defended against.
type Handle uint64

// RootHandle names the synthetic root entity of every scene.
const RootHandle Handle = 0

// NewHandle returns a fresh random handle. It never returns RootHandle.
func NewHandle() Handle {
	for {
		if h := Handle(rand.Uint64()); h != RootHandle {
			return h
		}
	}
}

// IsRoot reports whether h names the scene root.
func (h Handle) IsRoot() bool { return h == RootHandle }

func (h Handle) String() string {
	return strconv.FormatUint(uint64(h), 16)
}
