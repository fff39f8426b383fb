package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog/catalogtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCol(name string) catalog.Column {
	return catalog.Column{Name: name, RawType: "integer", Type: catalog.TypeInteger}
}

func idCol() catalog.Column {
	return catalog.Column{Name: "id", RawType: "integer", Type: catalog.TypeInteger, PrimaryKey: true, Unique: true, AutoIncrement: true, HasDefault: true}
}

func fk(col, target string) catalog.ForeignKeyEdge {
	return catalog.ForeignKeyEdge{Column: col, TargetTable: target, TargetColumn: "id"}
}

// shop: order_items -> orders -> customers, order_items -> products
func shop() *catalogtest.Fake {
	return catalogtest.New().
		AddTable(catalog.Table{Name: "customers", PrimaryKey: "id", Columns: []catalog.Column{idCol()}}).
		AddTable(catalog.Table{Name: "products", PrimaryKey: "id", Columns: []catalog.Column{idCol()}}).
		AddTable(catalog.Table{
			Name: "orders", PrimaryKey: "id",
			Columns:     []catalog.Column{idCol(), intCol("customer_id")},
			ForeignKeys: []catalog.ForeignKeyEdge{fk("customer_id", "customers")},
		}).
		AddTable(catalog.Table{
			Name: "order_items", PrimaryKey: "id",
			Columns:     []catalog.Column{idCol(), intCol("order_id"), intCol("product_id")},
			ForeignKeys: []catalog.ForeignKeyEdge{fk("order_id", "orders"), fk("product_id", "products")},
		})
}

func indexOf(order []string, table string) int {
	for i, t := range order {
		if t == table {
			return i
		}
	}
	return -1
}

func TestResolveOrdersDependenciesFirst(t *testing.T) {
	r := New(shop())

	res, err := r.Resolve(context.Background(), "order_items")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "products", "order_items"}, res.Order)
	assert.False(t, res.HasCycles())
	assert.NoError(t, res.Err())

	for _, tbl := range []string{"customers", "orders", "products"} {
		assert.Less(t, indexOf(res.Order, tbl), indexOf(res.Order, "order_items"))
	}
	assert.Less(t, indexOf(res.Order, "customers"), indexOf(res.Order, "orders"))
}

func TestResolveTableWithoutForeignKeys(t *testing.T) {
	r := New(shop())

	res, err := r.Resolve(context.Background(), "customers")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers"}, res.Order)

	priority, err := r.PopulationPriority(context.Background(), "customers")
	require.NoError(t, err)
	assert.Empty(t, priority)
}

func TestPopulationPrioritySkipsPopulatedTables(t *testing.T) {
	fake := shop()
	r := New(fake)

	priority, err := r.PopulationPriority(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers"}, priority)

	fake.AddTable(catalog.Table{Name: "customers", PrimaryKey: "id", Columns: []catalog.Column{idCol()}}, catalog.Record{"id": 1})
	priority, err = r.PopulationPriority(context.Background(), "orders")
	require.NoError(t, err)
	assert.Empty(t, priority)

	priority, err = r.PopulationPriority(context.Background(), "order_items")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "products"}, priority)
}

func TestResolveReportsCycles(t *testing.T) {
	fake := catalogtest.New().
		AddTable(catalog.Table{Name: "a", Columns: []catalog.Column{idCol(), intCol("b_id")}, ForeignKeys: []catalog.ForeignKeyEdge{fk("b_id", "b")}}).
		AddTable(catalog.Table{Name: "b", Columns: []catalog.Column{idCol(), intCol("a_id")}, ForeignKeys: []catalog.ForeignKeyEdge{fk("a_id", "a")}})
	r := New(fake)

	res, err := r.Resolve(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, res.Order)
	require.Len(t, res.Cycles, 1)
	assert.Equal(t, []string{"a", "b", "a"}, res.Cycles[0])

	cycleErr := res.Err()
	require.Error(t, cycleErr)
	assert.True(t, errors.Is(cycleErr, catalog.ErrCyclicDependency))
	assert.Contains(t, cycleErr.Error(), "a -> b -> a")

	r.StrictCycles = true
	_, err = r.Resolve(context.Background(), "a")
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
}

func TestResolveIgnoresSelfReference(t *testing.T) {
	fake := catalogtest.New().AddTable(catalog.Table{
		Name:        "employees",
		Columns:     []catalog.Column{idCol(), intCol("manager_id")},
		ForeignKeys: []catalog.ForeignKeyEdge{fk("manager_id", "employees")},
	})

	res, err := New(fake).Resolve(context.Background(), "employees")
	require.NoError(t, err)
	assert.Equal(t, []string{"employees"}, res.Order)
	assert.Empty(t, res.Cycles)
}

func TestResolveCatalogFailure(t *testing.T) {
	fake := shop()
	fake.Fail["GetForeignKeys:orders"] = errors.New("connection reset")

	res, err := New(fake).Resolve(context.Background(), "order_items")
	assert.Nil(t, res)
	assert.True(t, catalog.IsCatalogUnavailable(err))

	fake = shop()
	fake.Fail["RowCount:customers"] = errors.New("connection reset")
	_, err = New(fake).PopulationPriority(context.Background(), "orders")
	assert.True(t, catalog.IsCatalogUnavailable(err))
}

func TestResolveMissingTable(t *testing.T) {
	_, err := New(shop()).Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, catalog.ErrTableNotFound)
}

func TestResolveIsRepeatable(t *testing.T) {
	r := New(shop())
	first, err := r.Resolve(context.Background(), "order_items")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "order_items")
	require.NoError(t, err)
	assert.Equal(t, first.Order, second.Order)
}
