package engagement

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldActRate(t *testing.T) {
	d := NewDecider(rand.New(rand.NewPCG(2024, 1)))

	const n = 10000
	fired := 0
	for i := 0; i < n; i++ {
		if d.ShouldAct(0.3) {
			fired++
		}
	}
	rate := float64(fired) / n
	assert.GreaterOrEqual(t, rate, 0.27)
	assert.LessOrEqual(t, rate, 0.33)
}

func TestShouldActBounds(t *testing.T) {
	d := NewDecider(rand.New(rand.NewPCG(1, 2)))
	for i := 0; i < 1000; i++ {
		assert.False(t, d.ShouldAct(0))
		assert.False(t, d.ShouldAct(-1))
		assert.True(t, d.ShouldAct(1))
		assert.False(t, d.ShouldAct(math.NaN()))
	}
}

func TestIndependentDraws(t *testing.T) {
	d := NewDecider(rand.New(rand.NewPCG(7, 7)))

	var both, likeOnly, commentOnly, neither int
	for i := 0; i < 10000; i++ {
		like := d.ShouldAct(0.5)
		comment := d.ShouldAct(0.5)
		switch {
		case like && comment:
			both++
		case like:
			likeOnly++
		case comment:
			commentOnly++
		default:
			neither++
		}
	}
	for _, n := range []int{both, likeOnly, commentOnly, neither} {
		assert.InDelta(t, 2500, n, 250)
	}
}
