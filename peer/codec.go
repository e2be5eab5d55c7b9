// Package peer implements the per-tick exchange of agents that leave one
// arena and enter another. Everything on the wire is big-endian.
package peer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// AuxBytes is the size of the auxiliary state carried by each migrant:
// int32 age followed by int32 satiety counter.
const AuxBytes = 8

// recordSize is the full wire size of one migrant.
const recordSize = 16 + AuxBytes

var (
	// ErrDesync reports a peer that broke the wire contract.
	ErrDesync = errors.New("peer: protocol desync")
	// ErrClosed is returned by a client that was closed or failed before.
	ErrClosed = errors.New("peer: client closed")
)

// Migrant is one agent crossing between arenas. X and Y are arena
// coordinates; the codec normalizes them to [0,1] on the wire.
type Migrant struct {
	X       float64
	Y       float64
	Age     int32
	Satiety int32
}

// Outbound is what the local arena sends in one tick.
type Outbound struct {
	RemainingPrey int
	RemainingPred int
	Prey          []Migrant // exit-detection order
	Pred          []Migrant
}

// Inbound is what the peer hands back in one tick.
type Inbound struct {
	Prey []Migrant
	Pred []Migrant
}

func putInt32s(w io.Writer, vals ...int32) error {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(buf[4*i:], uint32(v))
	}
	_, err := w.Write(buf)
	return err
}

func readInt32s(r io.Reader, n int) ([]int32, error) {
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	vals := make([]int32, n)
	for i := range vals {
		vals[i] = int32(binary.BigEndian.Uint32(buf[4*i:]))
	}
	return vals, nil
}

// encodeRecord writes one migrant with coordinates divided by scale.
func encodeRecord(w io.Writer, m Migrant, scale float64) error {
	var buf [recordSize]byte
	binary.BigEndian.PutUint64(buf[0:], math.Float64bits(m.X/scale))
	binary.BigEndian.PutUint64(buf[8:], math.Float64bits(m.Y/scale))
	binary.BigEndian.PutUint32(buf[16:], uint32(m.Age))
	binary.BigEndian.PutUint32(buf[20:], uint32(m.Satiety))
	_, err := w.Write(buf[:])
	return err
}

// decodeRecord reads one migrant and multiplies its coordinates by scale.
// Normalized coordinates must be finite; bounded additionally requires them
// inside [0,1], which holds for entering agents but not for exiting ones.
func decodeRecord(r io.Reader, scale float64, bounded bool) (Migrant, error) {
	var buf [recordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Migrant{}, err
	}
	x := math.Float64frombits(binary.BigEndian.Uint64(buf[0:]))
	y := math.Float64frombits(binary.BigEndian.Uint64(buf[8:]))
	m := Migrant{
		Age:     int32(binary.BigEndian.Uint32(buf[16:])),
		Satiety: int32(binary.BigEndian.Uint32(buf[20:])),
	}
	if err := checkCoord(x, bounded); err != nil {
		return Migrant{}, fmt.Errorf("x: %w", err)
	}
	if err := checkCoord(y, bounded); err != nil {
		return Migrant{}, fmt.Errorf("y: %w", err)
	}
	if m.Age < 0 {
		return Migrant{}, fmt.Errorf("%w: negative age %d", ErrDesync, m.Age)
	}
	if m.Satiety < -1 {
		return Migrant{}, fmt.Errorf("%w: satiety %d below -1", ErrDesync, m.Satiety)
	}
	m.X = x * scale
	m.Y = y * scale
	return m, nil
}

func checkCoord(v float64, bounded bool) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: non-finite coordinate", ErrDesync)
	}
	if bounded && (v < 0 || v > 1) {
		return fmt.Errorf("%w: normalized coordinate %v outside [0,1]", ErrDesync, v)
	}
	return nil
}

// checkCount validates a count announced by the other side.
func checkCount(name string, n int32, max int) error {
	if n < 0 || int(n) > max {
		return fmt.Errorf("%w: %s count %d outside [0,%d]", ErrDesync, name, n, max)
	}
	return nil
}

// WrapUnit folds a normalized coordinate into [0,1). Agents that left an
// arena carry coordinates slightly outside the unit square.
func WrapUnit(v float64) float64 {
	w := v - math.Floor(v)
	if w >= 1 {
		return 0
	}
	return w
}
