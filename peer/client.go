package peer

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"net"
	"time"
)

// DefaultMaxEntering bounds the entering counts a client accepts.
const DefaultMaxEntering = 1 << 20

// Client is the simulation side of a peer session. It is not safe for
// concurrent use; the tick loop calls Exchange once per tick.
type Client struct {
	conn  net.Conn
	r     *bufio.Reader
	w     *bufio.Writer
	scale float64

	maxEntering int
	handshaken  bool
	err         error // sticky: set by the first failure or Close
}

// Dial connects to a peer at addr. scale is the local arena size used to
// normalize coordinates.
func Dial(ctx context.Context, addr string, scale float64) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing peer %s: %w", addr, err)
	}
	return NewClient(conn, scale), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, scale float64) *Client {
	return &Client{
		conn:        conn,
		r:           bufio.NewReader(conn),
		w:           bufio.NewWriter(conn),
		scale:       scale,
		maxEntering: DefaultMaxEntering,
	}
}

// SetMaxEntering changes the largest entering count accepted per kind.
func (c *Client) SetMaxEntering(n int) {
	if n > 0 {
		c.maxEntering = n
	}
}

// Exchange runs one tick of the protocol: counts, then the prey block,
// then the predator block. It blocks until the peer has answered every
// record. Cancelling ctx expires the connection deadline, which aborts the
// exchange. Any failure poisons the client; later calls return ErrClosed.
func (c *Client) Exchange(ctx context.Context, out Outbound) (Inbound, error) {
	if c.err != nil {
		return Inbound{}, ErrClosed
	}

	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	in, err := c.exchange(out)
	if err != nil {
		c.err = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Inbound{}, fmt.Errorf("peer exchange aborted: %w", ctxErr)
		}
		return Inbound{}, fmt.Errorf("peer exchange: %w", err)
	}
	return in, nil
}

func (c *Client) exchange(out Outbound) (Inbound, error) {
	if out.RemainingPrey < 0 || out.RemainingPred < 0 ||
		out.RemainingPrey > math.MaxInt32 || out.RemainingPred > math.MaxInt32 {
		return Inbound{}, fmt.Errorf("remaining counts %d/%d out of range", out.RemainingPrey, out.RemainingPred)
	}

	if !c.handshaken {
		if err := putInt32s(c.w, AuxBytes, AuxBytes); err != nil {
			return Inbound{}, fmt.Errorf("writing handshake: %w", err)
		}
		c.handshaken = true
	}

	err := putInt32s(c.w,
		int32(out.RemainingPrey), int32(out.RemainingPred),
		int32(len(out.Prey)), int32(len(out.Pred)))
	if err != nil {
		return Inbound{}, fmt.Errorf("writing counts: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return Inbound{}, fmt.Errorf("writing counts: %w", err)
	}

	counts, err := readInt32s(c.r, 2)
	if err != nil {
		return Inbound{}, fmt.Errorf("reading entering counts: %w", err)
	}
	if err := checkCount("entering prey", counts[0], c.maxEntering); err != nil {
		return Inbound{}, err
	}
	if err := checkCount("entering predator", counts[1], c.maxEntering); err != nil {
		return Inbound{}, err
	}

	var in Inbound
	if in.Prey, err = c.block("prey", out.Prey, int(counts[0])); err != nil {
		return Inbound{}, err
	}
	if in.Pred, err = c.block("predator", out.Pred, int(counts[1])); err != nil {
		return Inbound{}, err
	}

	return in, nil
}

// block sends each exit and reads each entry in lockstep. When the peer
// announces more entries than there are exits, the extra records are read
// after the last exit.
func (c *Client) block(name string, exits []Migrant, entering int) ([]Migrant, error) {
	var entries []Migrant
	if entering > 0 {
		entries = make([]Migrant, 0, entering)
	}

	n := max(len(exits), entering)
	for i := 0; i < n; i++ {
		if i < len(exits) {
			if err := encodeRecord(c.w, exits[i], c.scale); err != nil {
				return nil, fmt.Errorf("writing %s record %d: %w", name, i, err)
			}
			if err := c.w.Flush(); err != nil {
				return nil, fmt.Errorf("writing %s record %d: %w", name, i, err)
			}
		}
		if i < entering {
			m, err := decodeRecord(c.r, c.scale, true)
			if err != nil {
				return nil, fmt.Errorf("reading %s record %d: %w", name, i, err)
			}
			entries = append(entries, m)
		}
	}
	return entries, nil
}

// Close closes the connection. Further exchanges return ErrClosed.
func (c *Client) Close() error {
	if c.err == nil {
		c.err = ErrClosed
	}
	return c.conn.Close()
}
