package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/ecotile/components"
)

var testSpeeds = SpeedTable{Base: 10, Tired: 5, Fed: 20, FedDuration: 3, TiredAge: 7}

func TestBaseSpeedStateMachine(t *testing.T) {
	tests := []struct {
		kind          components.Kind
		ticksSinceFed int32
		want          float64
	}{
		{components.KindPredator, -1, 20},
		{components.KindPredator, 0, 20},
		{components.KindPredator, 2, 20},
		{components.KindPredator, 3, 10},
		{components.KindPredator, 6, 10},
		{components.KindPredator, 7, 5},
		{components.KindPredator, 12, 5},
		{components.KindPrey, 0, 10},
		{components.KindPrey, 12, 10},
	}

	for _, tt := range tests {
		got := BaseSpeed(tt.kind, tt.ticksSinceFed, testSpeeds)
		if got != tt.want {
			t.Errorf("BaseSpeed(%v, %d) = %v, want %v", tt.kind, tt.ticksSinceFed, got, tt.want)
		}
	}
}

func TestMoveSpeedHalvesOnceAfterPlant(t *testing.T) {
	v := &components.Vitals{TicksSinceFed: 4, AtePlant: true}

	if got := MoveSpeed(components.KindPredator, v, testSpeeds); got != 5 {
		t.Errorf("first move after plant = %v, want 5", got)
	}
	if v.AtePlant {
		t.Error("AtePlant should clear after one move")
	}
	if v.Speed != 5 {
		t.Errorf("Vitals.Speed = %v, want 5", v.Speed)
	}
	if got := MoveSpeed(components.KindPredator, v, testSpeeds); got != 10 {
		t.Errorf("second move = %v, want 10", got)
	}
}

func TestReproductionRates(t *testing.T) {
	k := RateDecay{Pred: 0.008, Prey: 0.016}

	r := ReproductionRates(0, 0, k)
	if r.Pred != 1 || r.Prey != 1 {
		t.Errorf("empty population rates = %+v, want 1/1", r)
	}

	r = ReproductionRates(50, 100, k)
	if math.Abs(r.Pred-math.Exp(-0.4)) > 1e-12 {
		t.Errorf("pred rate = %v, want %v", r.Pred, math.Exp(-0.4))
	}
	if math.Abs(r.Prey-math.Exp(-1.6)) > 1e-12 {
		t.Errorf("prey rate = %v, want %v", r.Prey, math.Exp(-1.6))
	}
}
