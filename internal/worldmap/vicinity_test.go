package worldmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVicinityVisitsEveryCellExactlyOnce(t *testing.T) {
	pts := vicinity(2, 2, 5, 5)
	assert.Len(t, pts, 25)

	seen := map[point]int{}
	for _, p := range pts {
		seen[p]++
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			assert.Equal(t, 1, seen[point{x, y}], "cell (%d,%d) should be visited exactly once", x, y)
		}
	}
}

func TestVicinityCenterIsFirst(t *testing.T) {
	pts := vicinity(3, 3, 10, 10)
	assert.Equal(t, point{3, 3}, pts[0])
}

func TestVicinityClipsToBounds(t *testing.T) {
	pts := vicinity(0, 0, 3, 3)
	assert.Len(t, pts, 9)
}
