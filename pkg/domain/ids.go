package domain

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces context identifiers.
type IDGenerator func() string

var processSequence atomic.Int64

// SequentialIDs returns the process-wide counter generator ("1", "2", ...).
// All generators returned by it share the same counter.
func SequentialIDs() IDGenerator {
	return func() string {
		return strconv.FormatInt(processSequence.Add(1), 10)
	}
}

// NewSequence returns an independent counter starting after start.
func NewSequence(start int64) IDGenerator {
	var seq atomic.Int64
	seq.Store(start)
	return func() string {
		return strconv.FormatInt(seq.Add(1), 10)
	}
}

// UUIDs returns a generator of random (v4) UUID strings.
func UUIDs() IDGenerator {
	return uuid.NewString
}
