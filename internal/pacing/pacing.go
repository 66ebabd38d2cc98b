package pacing

import (
	"context"
	"math/rand/v2"
	"time"
)

// #region kinds
// Kind names a pause between actions.
type Kind string

const (
	Action       Kind = "action"
	PageLoad     Kind = "page_load"
	Scroll       Kind = "scroll"
	AfterConnect Kind = "after_connect"
	CoffeeBreak  Kind = "coffee_break"
)

// Window is a closed delay range.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// Config holds the delay windows and the global multiplier.
type Config struct {
	SpeedFactor       float64
	Windows           map[Kind]Window
	CoffeeProbability float64 // chance a CoffeeBreak actually pauses
}

// DefaultConfig returns the stock windows at speed factor 1.5.
func DefaultConfig() Config {
	return Config{
		SpeedFactor: 1.5,
		Windows: map[Kind]Window{
			Action:       {2 * time.Second, 5 * time.Second},
			PageLoad:     {5 * time.Second, 8 * time.Second},
			Scroll:       {3 * time.Second, 5 * time.Second},
			AfterConnect: {45 * time.Second, 90 * time.Second},
			CoffeeBreak:  {2 * time.Minute, 5 * time.Minute},
		},
		CoffeeProbability: 0.08,
	}
}

// #endregion kinds

// #region pacer
// Pacer computes how long to wait before the next action. It never sleeps.
type Pacer struct {
	cfg Config
	rng *rand.Rand
}

// New returns a pacer. A non-positive speed factor is treated as 1.
func New(cfg Config, rng *rand.Rand) *Pacer {
	if cfg.SpeedFactor <= 0 {
		cfg.SpeedFactor = 1
	}
	return &Pacer{cfg: cfg, rng: rng}
}

// SpeedFactor returns the multiplier in effect.
func (p *Pacer) SpeedFactor() float64 { return p.cfg.SpeedFactor }

// Delay returns the pause required before the next action of kind k.
func (p *Pacer) Delay(k Kind) time.Duration {
	if k == CoffeeBreak && p.rng.Float64() >= p.cfg.CoffeeProbability {
		return 0
	}
	w, ok := p.cfg.Windows[k]
	if !ok {
		return 0
	}
	d := w.Min
	if span := w.Max - w.Min; span > 0 {
		d += time.Duration(p.rng.Int64N(int64(span) + 1))
	}
	return time.Duration(float64(d) * p.cfg.SpeedFactor)
}

// #endregion pacer

// #region wait
// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// #endregion wait
