package peer

import "context"

// Mirror is an in-process peer for standalone runs. Every exiting agent
// comes straight back in at the opposite edge of the same arena, so a
// single simulation behaves like a torus.
type Mirror struct {
	Arena float64
}

// Exchange returns each exit wrapped into the arena, preserving order,
// age and satiety.
func (m *Mirror) Exchange(ctx context.Context, out Outbound) (Inbound, error) {
	if err := ctx.Err(); err != nil {
		return Inbound{}, err
	}
	return Inbound{
		Prey: m.wrap(out.Prey),
		Pred: m.wrap(out.Pred),
	}, nil
}

func (m *Mirror) wrap(exits []Migrant) []Migrant {
	if len(exits) == 0 {
		return nil
	}
	entries := make([]Migrant, len(exits))
	for i, e := range exits {
		e.X = WrapUnit(e.X/m.Arena) * m.Arena
		e.Y = WrapUnit(e.Y/m.Arena) * m.Arena
		entries[i] = e
	}
	return entries
}

// Close is a no-op.
func (m *Mirror) Close() error {
	return nil
}
