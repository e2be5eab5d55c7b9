package peer

import (
	"context"
	"errors"
	"math"
	"net"
	"testing"
	"time"
)

func startRelay(t *testing.T) (a, b *Client, done <-chan error) {
	t.Helper()
	aLocal, aRemote := net.Pipe()
	bLocal, bRemote := net.Pipe()

	errc := make(chan error, 1)
	go func() {
		errc <- NewRelay().Pair(context.Background(), aRemote, bRemote)
	}()

	a = NewClient(aLocal, testScale)
	b = NewClient(bLocal, testScale)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b, errc
}

func TestRelayForwardsExits(t *testing.T) {
	a, b, done := startRelay(t)

	ticks := []struct {
		a, b Outbound
	}{
		{
			a: Outbound{RemainingPrey: 5, RemainingPred: 5,
				Prey: []Migrant{{X: -4, Y: 200, Age: 3, Satiety: 2}},
				Pred: []Migrant{{X: 100, Y: 410, Age: 6, Satiety: 0}}},
			b: Outbound{RemainingPrey: 7, RemainingPred: 1,
				Prey: []Migrant{{X: 404, Y: 12, Age: 1, Satiety: 5}}},
		},
		{
			a: Outbound{RemainingPrey: 4},
			b: Outbound{RemainingPrey: 8,
				Pred: []Migrant{{X: 20, Y: -1, Age: 9}, {X: 401, Y: 399, Age: 2, Satiety: 4}}},
		},
		{
			a: Outbound{},
			b: Outbound{},
		},
	}

	for i, tick := range ticks {
		type result struct {
			in  Inbound
			err error
		}
		bc := make(chan result, 1)
		go func() {
			in, err := b.Exchange(context.Background(), tick.b)
			bc <- result{in, err}
		}()

		inA, err := a.Exchange(context.Background(), tick.a)
		if err != nil {
			t.Fatalf("tick %d: a.Exchange: %v", i, err)
		}
		rb := <-bc
		if rb.err != nil {
			t.Fatalf("tick %d: b.Exchange: %v", i, rb.err)
		}

		checkForwarded(t, i, "a<-b prey", tick.b.Prey, inA.Prey)
		checkForwarded(t, i, "a<-b pred", tick.b.Pred, inA.Pred)
		checkForwarded(t, i, "b<-a prey", tick.a.Prey, rb.in.Prey)
		checkForwarded(t, i, "b<-a pred", tick.a.Pred, rb.in.Pred)
	}

	a.Close()
	b.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Logf("relay ended with %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after both simulations closed")
	}
}

// checkForwarded verifies that entries are the sent exits wrapped into the
// arena, in order, with auxiliary state intact.
func checkForwarded(t *testing.T, tick int, what string, sent, got []Migrant) {
	t.Helper()
	if len(got) != len(sent) {
		t.Fatalf("tick %d %s: %d entries, want %d", tick, what, len(got), len(sent))
	}
	for i := range sent {
		wantX := WrapUnit(sent[i].X/testScale) * testScale
		wantY := WrapUnit(sent[i].Y/testScale) * testScale
		if math.Abs(got[i].X-wantX) > 1e-9 || math.Abs(got[i].Y-wantY) > 1e-9 {
			t.Errorf("tick %d %s[%d]: at (%v, %v), want (%v, %v)", tick, what, i, got[i].X, got[i].Y, wantX, wantY)
		}
		if got[i].X < 0 || got[i].X >= testScale || got[i].Y < 0 || got[i].Y >= testScale {
			t.Errorf("tick %d %s[%d]: (%v, %v) outside arena", tick, what, i, got[i].X, got[i].Y)
		}
		if got[i].Age != sent[i].Age || got[i].Satiety != sent[i].Satiety {
			t.Errorf("tick %d %s[%d]: age/satiety %d/%d, want %d/%d",
				tick, what, i, got[i].Age, got[i].Satiety, sent[i].Age, sent[i].Satiety)
		}
	}
}

func TestRelayRejectsBadHandshake(t *testing.T) {
	aLocal, aRemote := net.Pipe()
	bLocal, bRemote := net.Pipe()
	defer aLocal.Close()
	defer bLocal.Close()

	errc := make(chan error, 1)
	go func() {
		errc <- NewRelay().Pair(context.Background(), aRemote, bRemote)
	}()

	go putInt32s(aLocal, 7, 8, 0, 0, 0, 0)
	go NewClient(bLocal, testScale).Exchange(context.Background(), Outbound{})

	select {
	case err := <-errc:
		if !errors.Is(err, ErrDesync) {
			t.Errorf("Pair() = %v, want ErrDesync", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not reject the handshake")
	}
}

func TestRelayServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- NewRelay().Serve(ctx, ln)
	}()

	c, err := Dial(context.Background(), ln.Addr().String(), testScale)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
