package idregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	id   int
	name string
}

func TestRegistryRecyclesFreedIDs(t *testing.T) {
	r := New[*widget](1)

	a := r.Create(func(id int) *widget { return &widget{id: id, name: "a"} })
	b := r.Create(func(id int) *widget { return &widget{id: id, name: "b"} })
	require.Equal(t, 1, a.id)
	require.Equal(t, 2, b.id)

	r.Destroy(a.id)
	c := r.Create(func(id int) *widget { return &widget{id: id, name: "c"} })
	assert.Equal(t, 1, c.id, "freed id should be recycled before growing the watermark")

	got, ok := r.Get(2)
	require.True(t, ok)
	assert.Equal(t, "b", got.name)
}

func TestRegistryShrinksWatermarkForContiguousSuffix(t *testing.T) {
	r := New[*widget](1)
	a := r.Create(func(id int) *widget { return &widget{id: id} })
	b := r.Create(func(id int) *widget { return &widget{id: id} })
	c := r.Create(func(id int) *widget { return &widget{id: id} })
	require.Equal(t, 3, c.id)

	r.Destroy(c.id)
	r.Destroy(b.id)

	next := r.Create(func(id int) *widget { return &widget{id: id} })
	assert.Equal(t, 2, next.id)

	r.Destroy(a.id)
	r.Destroy(next.id)
	fresh := r.Create(func(id int) *widget { return &widget{id: id} })
	assert.Equal(t, 1, fresh.id, "destroying the whole contiguous suffix resets the watermark to firstID")
}

func TestRegistryDestroyUnknownIsNoop(t *testing.T) {
	r := New[*widget](1)
	r.Destroy(42)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryEach(t *testing.T) {
	r := New[*widget](1)
	r.Create(func(id int) *widget { return &widget{id: id, name: "x"} })
	r.Create(func(id int) *widget { return &widget{id: id, name: "y"} })

	seen := map[string]bool{}
	r.Each(func(w *widget) { seen[w.name] = true })
	assert.True(t, seen["x"])
	assert.True(t, seen["y"])
}
