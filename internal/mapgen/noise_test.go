package mapgen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradientNoiseIsBoundedAndDeterministic(t *testing.T) {
	n := newGradientNoise2D(7)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			v := n.at(float64(x)*0.13, float64(y)*0.13)
			assert.GreaterOrEqual(t, v, -1.01)
			assert.LessOrEqual(t, v, 1.01)
		}
	}

	other := newGradientNoise2D(7)
	assert.Equal(t, n.at(1.23, 4.56), other.at(1.23, 4.56), "same seed must reproduce the same field")
}

func TestGradientNoiseDifferentSeedsDiffer(t *testing.T) {
	a := newGradientNoise2D(1)
	b := newGradientNoise2D(2)
	assert.NotEqual(t, a.at(3.3, 9.9), b.at(3.3, 9.9))
}

func TestOctavesStaysBounded(t *testing.T) {
	n := newGradientNoise2D(42)
	v := n.octaves(10.5, 3.2, 4, 0.5, 2.0)
	assert.GreaterOrEqual(t, v, -1.01)
	assert.LessOrEqual(t, v, 1.01)
}

func TestUniformizeMapsToUnitInterval(t *testing.T) {
	for _, s := range []float64{-5, -1, -0.1, 0, 0.1, 1, 5} {
		v := uniformize(s)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
	assert.InDelta(t, 0.5, uniformize(0), 1e-9, "zero sample must map to the midpoint")
}

func TestUniformizeIsMonotonic(t *testing.T) {
	prev := math.Inf(-1)
	for s := -3.0; s <= 3.0; s += 0.25 {
		v := uniformize(s)
		assert.Greater(t, v, prev)
		prev = v
	}
}
