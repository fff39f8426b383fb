package validator

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

func pkCol() catalog.Column {
	c := intCol("id")
	c.PrimaryKey, c.Unique, c.AutoIncrement, c.HasDefault = true, true, true, true
	return c
}

func fixture() *catalogtest.Fake {
	return catalogtest.New().
		AddTable(catalog.Table{Name: "users", PrimaryKey: "id", Columns: []catalog.Column{pkCol()}}, catalog.Record{}).
		AddTable(catalog.Table{Name: "teams", PrimaryKey: "id", Columns: []catalog.Column{pkCol()}}).
		AddTable(catalog.Table{
			Name:       "posts",
			PrimaryKey: "id",
			Columns:    []catalog.Column{pkCol(), intCol("author_id"), intCol("editor_id"), intCol("team_id"), intCol("org_id"), intCol("owner_id")},
			ForeignKeys: []catalog.ForeignKeyEdge{
				{Column: "author_id", TargetTable: "users", TargetColumn: "id"},
				{Column: "editor_id", TargetTable: "users", TargetColumn: "uuid"},
				{Column: "team_id", TargetTable: "teams", TargetColumn: "id"},
				{Column: "org_id", TargetTable: "orgs", TargetColumn: "id"},
				{Column: "owner_id", TargetTable: "teams", TargetColumn: "id"},
			},
		}).
		AddTable(catalog.Table{
			Name: "logs",
			Columns: []catalog.Column{
				intCol("order"),
				{Name: "bad-name", RawType: "text", Type: catalog.TypeVarText},
				{Name: "shape", RawType: "geometry", Type: catalog.TypeUnknown},
			},
		})
}

func TestValidateTable(t *testing.T) {
	ctx := context.Background()
	f := fixture()

	report, err := ValidateTable(ctx, f, "users")
	require.NoError(t, err)
	assert.True(t, report.Valid())
	assert.Empty(t, report.Warnings)
	assert.NoError(t, report.Err())

	report, err = ValidateTable(ctx, f, "logs")
	require.NoError(t, err)
	assert.False(t, report.Valid())
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "bad-name", report.Errors[0].Column)

	var messages []string
	for _, w := range report.Warnings {
		messages = append(messages, w.String())
	}
	assert.ElementsMatch(t, []string{
		"table has no primary key",
		"order: column name is a reserved word",
		`shape: type "geometry" is not recognized, values will be placeholders unless configured`,
	}, messages)
}

func TestValidateTableMissing(t *testing.T) {
	report, err := ValidateTable(context.Background(), fixture(), "ghosts")
	require.NoError(t, err)
	require.False(t, report.Valid())

	err = report.Err()
	assert.ErrorIs(t, err, catalog.ErrTableNotFound)
	assert.True(t, catalog.IsStructural(err))
}

func TestValidateTableCatalogFailure(t *testing.T) {
	f := fixture()
	f.Fail["GetColumns:users"] = errors.New("connection reset")

	_, err := ValidateTable(context.Background(), f, "users")
	require.Error(t, err)
	assert.True(t, catalog.IsCatalogUnavailable(err))
}

func TestValidateForeignKeys(t *testing.T) {
	report, err := ValidateForeignKeys(context.Background(), fixture(), "posts")
	require.NoError(t, err)
	require.Len(t, report.Errors, 2)

	assert.Equal(t, "editor_id", report.Errors[0].Column)
	assert.ErrorIs(t, report.Errors[0].Err, catalog.ErrColumnNotFound)
	assert.Equal(t, "org_id", report.Errors[1].Column)
	assert.ErrorIs(t, report.Errors[1].Err, catalog.ErrTableNotFound)

	assert.Equal(t, []string{"teams"}, report.EmptyTables)
	assert.Len(t, report.Warnings, 2)

	var structural *catalog.StructuralError
	require.ErrorAs(t, report.Err(), &structural)
	assert.Equal(t, "posts", structural.Table)
}

func TestValidateForeignKeysNoEdges(t *testing.T) {
	report, err := ValidateForeignKeys(context.Background(), fixture(), "users")
	require.NoError(t, err)
	assert.True(t, report.Valid())
	assert.Empty(t, report.EmptyTables)
}

func TestValidateRecord(t *testing.T) {
	table := &catalog.Table{
		Name: "items",
		Columns: []catalog.Column{
			intCol("qty"),
			{Name: "price", Type: catalog.TypeNumeric, Nullable: true},
			{Name: "name", Type: catalog.TypeVarText, MaxLength: 4},
			{Name: "active", Type: catalog.TypeBoolean, Nullable: true},
			{Name: "made_on", Type: catalog.TypeDate, Nullable: true},
		},
	}

	assert.Empty(t, ValidateRecord(table, catalog.Record{
		"qty": int64(3), "price": "9.99", "name": "abcd", "active": "t", "made_on": "2023-01-02",
	}))

	issues := ValidateRecord(table, catalog.Record{
		"qty":     nil,
		"price":   "cheap",
		"name":    "toolong",
		"active":  "maybe",
		"made_on": "yesterday",
		"extra":   1,
	})
	columns := make(map[string]bool)
	for _, issue := range issues {
		columns[issue.Column] = true
	}
	assert.Equal(t, map[string]bool{
		"qty": true, "price": true, "name": true, "active": true, "made_on": true, "extra": true,
	}, columns)
}
