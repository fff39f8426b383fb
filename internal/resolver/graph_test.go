package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertionOrder(t *testing.T) {
	g := NewGraph()
	g.AddEdge("posts", "users")
	g.AddEdge("comments", "posts")
	g.AddEdge("comments", "users")
	g.AddTable("tags")

	order, cycles := g.InsertionOrder()
	assert.Empty(t, cycles)
	assert.Equal(t, []string{"users", "posts", "comments", "tags"}, order)
}

func TestInsertionOrderWithCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")
	g.AddEdge("a", "a")

	order, cycles := g.InsertionOrder()
	assert.Len(t, order, 3)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0])
}

func TestBuildGraph(t *testing.T) {
	r := New(shop())
	g, err := r.BuildGraph(context.Background(), []string{"order_items", "orders"})
	require.NoError(t, err)

	assert.Equal(t, []string{"customers", "order_items", "orders", "products"}, g.Tables())
	assert.Equal(t, []string{"orders", "products"}, g.Dependencies("order_items"))

	order, cycles := g.InsertionOrder()
	assert.Empty(t, cycles)
	assert.Equal(t, []string{"customers", "orders", "products", "order_items"}, order)
}
