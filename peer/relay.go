package peer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
)

// Relay is a conforming peer that pairs two simulations. Each tick it
// forwards the agents leaving one arena to the other as entering agents,
// wrapping their normalized coordinates into [0,1).
type Relay struct {
	// MaxCount bounds every count a simulation may announce.
	MaxCount int
}

// NewRelay creates a relay with the default count limit.
func NewRelay() *Relay {
	return &Relay{MaxCount: DefaultMaxEntering}
}

type relaySide struct {
	name       string
	conn       net.Conn
	r          *bufio.Reader
	w          *bufio.Writer
	handshaken bool
}

type relayHeader struct {
	remainingPrey int32
	remainingPred int32
	exitPrey      int32
	exitPred      int32
}

// errSessionEnd marks a simulation that disconnected between ticks.
var errSessionEnd = errors.New("session ended")

// Serve accepts two simulations on ln and relays between them until one
// disconnects or ctx is cancelled.
func (r *Relay) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	conns := make([]net.Conn, 0, 2)
	for len(conns) < 2 {
		conn, err := ln.Accept()
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("accepting simulation: %w", err)
		}
		slog.Info("relay: simulation connected", "remote", conn.RemoteAddr().String(), "slot", len(conns))
		conns = append(conns, conn)
	}
	return r.Pair(ctx, conns[0], conns[1])
}

// Pair relays between two established connections. It returns nil when a
// simulation disconnects cleanly between ticks and closes both connections
// before returning.
func (r *Relay) Pair(ctx context.Context, a, b net.Conn) error {
	sides := [2]*relaySide{newRelaySide("a", a), newRelaySide("b", b)}
	closeAll := func() {
		a.Close()
		b.Close()
	}
	defer closeAll()

	stop := context.AfterFunc(ctx, closeAll)
	defer stop()

	for tick := 0; ; tick++ {
		err := r.round(sides)
		if errors.Is(err, errSessionEnd) {
			slog.Info("relay: session ended", "ticks", tick)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("relay tick %d: %w", tick, err)
		}
	}
}

func newRelaySide(name string, conn net.Conn) *relaySide {
	return &relaySide{
		name: name,
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

// round relays one tick. Both sides are driven concurrently since each
// simulation writes before it reads.
func (r *Relay) round(sides [2]*relaySide) error {
	var headers [2]relayHeader
	if err := both(sides, func(i int, s *relaySide) error {
		h, err := r.readHeader(s)
		headers[i] = h
		return err
	}); err != nil {
		return err
	}

	slog.Debug("relay tick",
		"a_prey", headers[0].remainingPrey, "a_pred", headers[0].remainingPred,
		"b_prey", headers[1].remainingPrey, "b_pred", headers[1].remainingPred,
		"a_exits", headers[0].exitPrey+headers[0].exitPred,
		"b_exits", headers[1].exitPrey+headers[1].exitPred)

	// Records read from side i are written to side 1-i.
	var forward [2]chan Migrant
	for i, h := range headers {
		forward[i] = make(chan Migrant, int(h.exitPrey)+int(h.exitPred))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	fail := func(err error) {
		errs <- err
		for _, s := range sides {
			s.conn.Close()
		}
	}

	for i, s := range sides {
		other := headers[1-i]
		mine := headers[i]
		in := forward[1-i]
		out := forward[i]

		wg.Add(2)
		go func() {
			defer wg.Done()
			defer close(out)
			for k := int32(0); k < mine.exitPrey+mine.exitPred; k++ {
				m, err := decodeRecord(s.r, 1, false)
				if err != nil {
					fail(fmt.Errorf("reading record %d from %s: %w", k, s.name, err))
					return
				}
				m.X = WrapUnit(m.X)
				m.Y = WrapUnit(m.Y)
				out <- m
			}
		}()
		go func() {
			defer wg.Done()
			if err := putInt32s(s.w, other.exitPrey, other.exitPred); err != nil {
				fail(fmt.Errorf("writing counts to %s: %w", s.name, err))
				return
			}
			if err := s.w.Flush(); err != nil {
				fail(fmt.Errorf("writing counts to %s: %w", s.name, err))
				return
			}
			for m := range in {
				if err := encodeRecord(s.w, m, 1); err != nil {
					fail(fmt.Errorf("writing record to %s: %w", s.name, err))
					return
				}
				if err := s.w.Flush(); err != nil {
					fail(fmt.Errorf("writing record to %s: %w", s.name, err))
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	return <-errs
}

func (r *Relay) readHeader(s *relaySide) (relayHeader, error) {
	if !s.handshaken {
		hs, err := readInt32s(s.r, 2)
		if errors.Is(err, io.EOF) {
			return relayHeader{}, errSessionEnd
		}
		if err != nil {
			return relayHeader{}, fmt.Errorf("reading handshake from %s: %w", s.name, err)
		}
		if hs[0] != AuxBytes || hs[1] != AuxBytes {
			return relayHeader{}, fmt.Errorf("%w: handshake %d/%d from %s, want %d/%d",
				ErrDesync, hs[0], hs[1], s.name, AuxBytes, AuxBytes)
		}
		s.handshaken = true
	}

	vals, err := readInt32s(s.r, 4)
	if errors.Is(err, io.EOF) {
		return relayHeader{}, errSessionEnd
	}
	if err != nil {
		return relayHeader{}, fmt.Errorf("reading counts from %s: %w", s.name, err)
	}
	limit := r.MaxCount
	if limit <= 0 {
		limit = DefaultMaxEntering
	}
	names := [4]string{"remaining prey", "remaining predator", "exiting prey", "exiting predator"}
	for i, v := range vals {
		if err := checkCount(names[i], v, limit); err != nil {
			return relayHeader{}, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return relayHeader{
		remainingPrey: vals[0],
		remainingPred: vals[1],
		exitPrey:      vals[2],
		exitPred:      vals[3],
	}, nil
}

// both runs fn for each side concurrently and returns the first error.
// A session end on either side wins over errors it caused on the other.
func both(sides [2]*relaySide, fn func(i int, s *relaySide) error) error {
	var wg sync.WaitGroup
	var errs [2]error
	for i, s := range sides {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn(i, s)
			if errs[i] != nil {
				// Unblock the other side's read.
				for _, o := range sides {
					o.conn.Close()
				}
			}
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if errors.Is(err, errSessionEnd) {
			return err
		}
	}
	return errors.Join(errs[0], errs[1])
}
