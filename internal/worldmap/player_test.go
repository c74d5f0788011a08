package worldmap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juan10024/reset-server/internal/rules"
)

func testCatalog() *rules.Catalog {
	c := rules.NewCatalog()
	c.AddResource("wood", "lumber", 100)
	c.AddResource("food", "sustenance", 50)
	return c
}

func TestPlayerTakeDeductsAllOrNothing(t *testing.T) {
	catalog := testCatalog()
	m := New(context.Background(), catalog, 1, 1)
	p := m.AddPlayer("alice")

	wood, _ := catalog.ResourceByName("wood")
	food, _ := catalog.ResourceByName("food")

	err := p.Take(map[*rules.ResourceType]int{wood: 10, food: 1000})
	var rerr *ResourceError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "food", rerr.Resource)

	assert.Equal(t, 100, p.Resource(wood).Get(), "wood must not be deducted when food was insufficient")
}

func TestPlayerTakeSucceedsAndGiveRefunds(t *testing.T) {
	catalog := testCatalog()
	m := New(context.Background(), catalog, 1, 1)
	p := m.AddPlayer("alice")
	wood, _ := catalog.ResourceByName("wood")

	require.NoError(t, p.Take(map[*rules.ResourceType]int{wood: 30}))
	assert.Equal(t, 70, p.Resource(wood).Get())

	p.Give(map[*rules.ResourceType]int{wood: 30})
	assert.Equal(t, 100, p.Resource(wood).Get())
}

func TestPaymentReleaseRefundsUnlessCommitted(t *testing.T) {
	catalog := testCatalog()
	m := New(context.Background(), catalog, 1, 1)
	p := m.AddPlayer("alice")
	wood, _ := catalog.ResourceByName("wood")
	cost := map[*rules.ResourceType]int{wood: 20}

	pay, err := NewPayment(p, cost)
	require.NoError(t, err)
	assert.Equal(t, 80, p.Resource(wood).Get())
	pay.Release()
	assert.Equal(t, 100, p.Resource(wood).Get(), "uncommitted payment must refund on release")

	pay2, err := NewPayment(p, cost)
	require.NoError(t, err)
	pay2.Commit()
	pay2.Release()
	assert.Equal(t, 80, p.Resource(wood).Get(), "committed payment must not refund")
}

func TestPlayerWaitResourcesUnblocksOnChange(t *testing.T) {
	catalog := testCatalog()
	m := New(context.Background(), catalog, 1, 1)
	p := m.AddPlayer("alice")
	wood, _ := catalog.ResourceByName("wood")

	require.NoError(t, p.Take(map[*rules.ResourceType]int{wood: 90}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.WaitResources(ctx, map[*rules.ResourceType]int{wood: 15})
	}()

	time.Sleep(10 * time.Millisecond)
	p.Give(map[*rules.ResourceType]int{wood: 20})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitResources never returned")
	}
}
