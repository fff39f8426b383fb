package populator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog/catalogtest"
	"github.com/Lumos-Labs-HQ/flashseed/internal/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idCol() catalog.Column {
	return catalog.Column{Name: "id", RawType: "integer", Type: catalog.TypeInteger, PrimaryKey: true, Unique: true, AutoIncrement: true, HasDefault: true}
}

func textCol(name string, nullable bool) catalog.Column {
	return catalog.Column{Name: name, RawType: "varchar(100)", Type: catalog.TypeVarText, MaxLength: 100, Nullable: nullable}
}

func intCol(name string, nullable bool) catalog.Column {
	return catalog.Column{Name: name, RawType: "integer", Type: catalog.TypeInteger, Nullable: nullable}
}

func fk(col, target string) catalog.ForeignKeyEdge {
	return catalog.ForeignKeyEdge{Column: col, TargetTable: target, TargetColumn: "id"}
}

func usersTable() catalog.Table {
	email := textCol("email", false)
	email.Unique = true
	return catalog.Table{
		Name:       "users",
		PrimaryKey: "id",
		Columns:    []catalog.Column{idCol(), textCol("name", false), email, intCol("n", true)},
	}
}

func shop() *catalogtest.Fake {
	return catalogtest.New().
		AddTable(catalog.Table{Name: "customers", PrimaryKey: "id", Columns: []catalog.Column{idCol(), textCol("name", false)}}).
		AddTable(catalog.Table{Name: "products", PrimaryKey: "id", Columns: []catalog.Column{idCol(), textCol("product_name", false)}}).
		AddTable(catalog.Table{
			Name: "orders", PrimaryKey: "id",
			Columns:     []catalog.Column{idCol(), intCol("customer_id", false), textCol("status", false)},
			ForeignKeys: []catalog.ForeignKeyEdge{fk("customer_id", "customers")},
		}).
		AddTable(catalog.Table{
			Name: "order_items", PrimaryKey: "id",
			Columns:     []catalog.Column{idCol(), intCol("order_id", false), intCol("product_id", false), intCol("quantity", false)},
			ForeignKeys: []catalog.ForeignKeyEdge{fk("order_id", "orders"), fk("product_id", "products")},
		})
}

type recordingReporter struct {
	mu       sync.Mutex
	started  int
	batches  []BatchOutcome
	rejected []*catalog.ConstraintError
	warnings []string
	finished []*Result
}

func (r *recordingReporter) RunStarted(string, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingReporter) BatchDone(_ string, o BatchOutcome, _, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, o)
}

func (r *recordingReporter) RowRejected(_ string, err *catalog.ConstraintError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, err)
}

func (r *recordingReporter) Warn(table, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, table+": "+message)
}

func (r *recordingReporter) RunFinished(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, res)
}

func TestPopulateSplitsIntoBatches(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	rep := &recordingReporter{}
	p := New(fake, Options{Seed: 1}).WithReporter(rep)

	res, err := p.Populate(context.Background(), Request{Table: "users", RecordCount: 5, BatchSize: 2})
	require.NoError(t, err)

	require.Len(t, res.Batches, 3)
	sizes := []int{res.Batches[0].Size, res.Batches[1].Size, res.Batches[2].Size}
	assert.Equal(t, []int{2, 2, 1}, sizes)

	total := 0
	for _, b := range res.Batches {
		total += b.SuccessCount + b.ErrorCount
		assert.Equal(t, BatchCommitted, b.State)
	}
	assert.Equal(t, 5, total)
	assert.Equal(t, 5, res.SuccessCount)
	assert.Equal(t, 0, res.ErrorCount)
	assert.Equal(t, 3, fake.BulkCalls)
	assert.Zero(t, fake.InsertCalls)
	assert.Len(t, fake.Rows("users"), 5)

	assert.Equal(t, 1, rep.started)
	assert.Len(t, rep.batches, 3)
	require.Len(t, rep.finished, 1)
	assert.False(t, res.Aborted)
}

func TestPopulateDefaultColumnsSkipAutoIncrement(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	res, err := New(fake, Options{Seed: 1}).Populate(context.Background(), Request{Table: "users", RecordCount: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email", "n"}, res.Columns)
}

func TestPopulateRowRetryAfterBulkFailure(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	fake.Reject = func(_ string, r catalog.Record) error {
		if r["n"] == int64(2) {
			return fmt.Errorf("%w: NOT NULL constraint failed: users.name", catalog.ErrConstraintViolation)
		}
		return nil
	}
	rep := &recordingReporter{}
	p := New(fake, Options{Seed: 1}).WithReporter(rep)

	res, err := p.Populate(context.Background(), Request{
		Table:         "users",
		RecordCount:   3,
		BatchSize:     3,
		ColumnConfigs: map[string]generator.ColumnConfig{"n": {Mode: generator.ModeSequence, StartValue: 1}},
	})
	require.NoError(t, err)
	require.Len(t, res.Batches, 1)

	batch := res.Batches[0]
	assert.Equal(t, 2, batch.SuccessCount)
	assert.Equal(t, 1, batch.ErrorCount)
	assert.Equal(t, BatchPartiallyCommitted, batch.State)
	assert.Error(t, batch.BulkErr)
	require.Len(t, batch.RowErrors, 1)
	assert.Equal(t, int64(2), batch.RowErrors[0].Record["n"])
	assert.True(t, errors.Is(batch.RowErrors[0], catalog.ErrConstraintViolation))

	assert.Equal(t, 3, fake.InsertCalls)
	assert.Len(t, fake.Rows("users"), 2)
	assert.Len(t, rep.rejected, 1)
}

func TestPopulateSequenceFollowsInsertOrder(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	_, err := New(fake, Options{Seed: 3}).Populate(context.Background(), Request{
		Table:         "users",
		RecordCount:   5,
		BatchSize:     2,
		ColumnConfigs: map[string]generator.ColumnConfig{"n": {Mode: generator.ModeSequence, StartValue: 100}},
	})
	require.NoError(t, err)

	var got []interface{}
	for _, r := range fake.Rows("users") {
		got = append(got, r["n"])
	}
	assert.Equal(t, []interface{}{int64(100), int64(101), int64(102), int64(103), int64(104)}, got)
}

func TestPopulateEmptyDependencyAbortsBeforeInsert(t *testing.T) {
	fake := shop()
	_, err := New(fake, Options{}).Populate(context.Background(), Request{Table: "orders", RecordCount: 5})
	require.Error(t, err)
	assert.True(t, catalog.IsEmptyDependency(err))

	var ede *catalog.EmptyDependencyError
	require.True(t, errors.As(err, &ede))
	assert.Equal(t, "customers", ede.Target)
	assert.Zero(t, fake.BulkCalls)
	assert.Zero(t, fake.InsertCalls)
}

func TestPopulateNullableForeignKeyWithEmptyTarget(t *testing.T) {
	fake := catalogtest.New().
		AddTable(catalog.Table{Name: "teams", PrimaryKey: "id", Columns: []catalog.Column{idCol()}}).
		AddTable(catalog.Table{
			Name: "players", PrimaryKey: "id",
			Columns:     []catalog.Column{idCol(), textCol("name", false), intCol("team_id", true)},
			ForeignKeys: []catalog.ForeignKeyEdge{fk("team_id", "teams")},
		})
	rep := &recordingReporter{}

	res, err := New(fake, Options{Seed: 1}).WithReporter(rep).Populate(context.Background(), Request{Table: "players", RecordCount: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, res.SuccessCount)
	for _, r := range fake.Rows("players") {
		assert.Nil(t, r["team_id"])
	}
	assert.NotEmpty(t, rep.warnings)
}

func TestPopulateDrawsForeignKeysFromTarget(t *testing.T) {
	fake := shop()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, fake.InsertOne(ctx, "customers", []string{"name"}, catalog.Record{"name": fmt.Sprintf("c%d", i)}))
	}

	res, err := New(fake, Options{Seed: 7}).Populate(ctx, Request{Table: "orders", RecordCount: 20, BatchSize: 6})
	require.NoError(t, err)
	assert.Equal(t, 20, res.SuccessCount)

	for _, r := range fake.Rows("orders") {
		assert.Contains(t, []interface{}{int64(1), int64(2), int64(3)}, r["customer_id"])
	}
}

func TestPopulateUniqueTargetHandsOutEveryValueOnce(t *testing.T) {
	code := textCol("code", false)
	code.Unique = true
	fake := catalogtest.New().
		AddTable(catalog.Table{Name: "accounts", PrimaryKey: "id", Columns: []catalog.Column{idCol(), code}},
			catalog.Record{"code": "a"}, catalog.Record{"code": "b"}, catalog.Record{"code": "c"}).
		AddTable(catalog.Table{
			Name: "profiles", PrimaryKey: "id",
			Columns:     []catalog.Column{idCol(), textCol("account_code", false)},
			ForeignKeys: []catalog.ForeignKeyEdge{{Column: "account_code", TargetTable: "accounts", TargetColumn: "code"}},
		})

	res, err := New(fake, Options{Seed: 3}).Populate(context.Background(), Request{Table: "profiles", RecordCount: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.SuccessCount)

	var codes []interface{}
	for _, r := range fake.Rows("profiles") {
		codes = append(codes, r["account_code"])
	}
	assert.ElementsMatch(t, []interface{}{"a", "b", "c"}, codes)
}

func TestPopulateMissingTargetIsStructural(t *testing.T) {
	fake := catalogtest.New().AddTable(catalog.Table{
		Name: "orders", PrimaryKey: "id",
		Columns:     []catalog.Column{idCol(), intCol("ghost_id", true)},
		ForeignKeys: []catalog.ForeignKeyEdge{fk("ghost_id", "ghosts")},
	})

	_, err := New(fake, Options{}).Populate(context.Background(), Request{Table: "orders", RecordCount: 1})
	require.Error(t, err)
	assert.True(t, catalog.IsStructural(err))
	assert.True(t, errors.Is(err, catalog.ErrTableNotFound))
	assert.Zero(t, fake.BulkCalls)
}

func TestPopulateUnknownColumn(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	_, err := New(fake, Options{}).Populate(context.Background(), Request{Table: "users", RecordCount: 1, Columns: []string{"name", "nope"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrColumnNotFound))
}

func TestPopulateMissingTable(t *testing.T) {
	_, err := New(catalogtest.New(), Options{}).Populate(context.Background(), Request{Table: "users", RecordCount: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrTableNotFound))
}

func TestPopulateAbortsOnConnectionLoss(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	fake.Fail["BulkInsert"] = errors.New("write: connection reset by peer")
	fake.PingErr = errors.New("dial tcp: connection refused")

	res, err := New(fake, Options{Seed: 1}).Populate(context.Background(), Request{Table: "users", RecordCount: 6, BatchSize: 2})
	require.Error(t, err)
	assert.True(t, catalog.IsCatalogUnavailable(err))
	require.NotNil(t, res)
	assert.True(t, res.Aborted)
	assert.Len(t, res.Batches, 1)
	assert.Equal(t, 2, res.ErrorCount)
	assert.Zero(t, fake.InsertCalls)
}

func TestPopulateRetriesRowsWhenServerIsAlive(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	fake.Fail["BulkInsert"] = errors.New("too many SQL variables")

	res, err := New(fake, Options{Seed: 1}).Populate(context.Background(), Request{Table: "users", RecordCount: 4, BatchSize: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, res.SuccessCount)
	assert.Equal(t, BatchPartiallyCommitted, res.Batches[0].State)
	assert.Equal(t, 4, fake.InsertCalls)
}

func TestPopulateHonorsCancellation(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(fake, Options{}).Populate(ctx, Request{Table: "users", RecordCount: 3})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.True(t, res.Aborted)
	assert.Empty(t, res.Batches)
	assert.Zero(t, fake.BulkCalls)
}

// interruptingCatalog cancels the run while the first bulk insert is in
// flight and fails the insert the way a driver would on a cancelled context.
type interruptingCatalog struct {
	*catalogtest.Fake
	cancel context.CancelFunc
}

func (c *interruptingCatalog) BulkInsert(ctx context.Context, table string, columns []string, records []catalog.Record) error {
	c.cancel()
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Fake.BulkInsert(ctx, table, columns, records)
}

func TestPopulateFinishesBatchInFlightWhenCancelled(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := New(&interruptingCatalog{Fake: fake, cancel: cancel}, Options{Seed: 1}).
		Populate(ctx, Request{Table: "users", RecordCount: 6, BatchSize: 2})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, catalog.IsCatalogUnavailable(err))
	require.NotNil(t, res)
	assert.True(t, res.Aborted)
	require.Len(t, res.Batches, 1)
	assert.Equal(t, BatchCommitted, res.Batches[0].State)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Zero(t, res.ErrorCount)
	assert.Equal(t, 1, fake.BulkCalls)
	assert.Len(t, fake.Rows("users"), 2)
}

func TestPopulateRespectsExistingUniqueValues(t *testing.T) {
	status := textCol("status", false)
	status.Unique = true
	existing := []catalog.Record{{"status": "active"}, {"status": "pending"}, {"status": "completed"}}
	fake := catalogtest.New().AddTable(catalog.Table{
		Name: "states", PrimaryKey: "id", Columns: []catalog.Column{idCol(), status},
	}, existing...)

	res, err := New(fake, Options{Seed: 5}).Populate(context.Background(), Request{Table: "states", RecordCount: 25, BatchSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, res.SuccessCount)
	assert.Zero(t, res.ErrorCount)
	assert.Len(t, fake.Rows("states"), 28)
}

func TestPopulateNullProbability(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	_, err := New(fake, Options{Seed: 1, NullProbability: 1}).Populate(context.Background(), Request{Table: "users", RecordCount: 3})
	require.NoError(t, err)
	for _, r := range fake.Rows("users") {
		assert.Nil(t, r["n"])
		assert.NotNil(t, r["name"])
		assert.NotNil(t, r["email"])
	}
}

func TestPopulateTruncatesFirst(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable(),
		catalog.Record{"name": "a", "email": "a@example.com"},
		catalog.Record{"name": "b", "email": "b@example.com"},
	)
	_, err := New(fake, Options{Seed: 1}).Populate(context.Background(), Request{Table: "users", RecordCount: 3, Truncate: true})
	require.NoError(t, err)
	assert.Len(t, fake.Rows("users"), 3)
}

func TestPopulateWithPrerequisites(t *testing.T) {
	fake := shop()
	counts := map[string]int{"customers": 4, "orders": 6, "products": 3}

	results, err := New(fake, Options{Seed: 11}).PopulateWithPrerequisites(context.Background(),
		Request{Table: "order_items", RecordCount: 10, BatchSize: 4},
		func(table string) Request {
			return Request{RecordCount: counts[table], BatchSize: 4}
		})
	require.NoError(t, err)

	var order []string
	for _, r := range results {
		order = append(order, r.Table)
		assert.Zero(t, r.ErrorCount, r.Table)
	}
	assert.Equal(t, []string{"customers", "orders", "products", "order_items"}, order)
	assert.Len(t, fake.Rows("customers"), 4)
	assert.Len(t, fake.Rows("orders"), 6)
	assert.Len(t, fake.Rows("products"), 3)
	assert.Len(t, fake.Rows("order_items"), 10)
}

func TestPopulateWithPrerequisitesSkipsPopulatedTables(t *testing.T) {
	fake := shop()
	require.NoError(t, fake.InsertOne(context.Background(), "customers", []string{"name"}, catalog.Record{"name": "x"}))

	results, err := New(fake, Options{Seed: 2}).PopulateWithPrerequisites(context.Background(), Request{Table: "orders", RecordCount: 2}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "orders", results[0].Table)
}

func TestPreviewRejectsNegativeCount(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	records, err := New(fake, Options{Seed: 1}).Preview(context.Background(), Request{Table: "users"}, -1)
	require.EqualError(t, err, "record count must not be negative, got -1")
	assert.Nil(t, records)
}

func TestPreviewDoesNotInsert(t *testing.T) {
	fake := catalogtest.New().AddTable(usersTable())
	records, err := New(fake, Options{Seed: 1}).Preview(context.Background(), Request{Table: "users"}, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Contains(t, r, "name")
		assert.Contains(t, r, "email")
		assert.NotContains(t, r, "id")
	}
	assert.Zero(t, fake.BulkCalls)
}
