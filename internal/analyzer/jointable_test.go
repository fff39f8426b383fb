package analyzer

import (
	"testing"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/stretchr/testify/assert"
)

func TestLooksLikeJoinTable(t *testing.T) {
	edges := []catalog.ForeignKeyEdge{
		{Column: "post_id", TargetTable: "posts", TargetColumn: "id"},
		{Column: "tag_id", TargetTable: "tags", TargetColumn: "id"},
	}

	tests := []struct {
		name    string
		table   string
		columns []string
		edges   []catalog.ForeignKeyEdge
		want    bool
	}{
		{"only keys", "taggings", []string{"id", "post_id", "tag_id", "created_at"}, edges, true},
		{"named after targets", "post_tags", []string{"post_id", "tag_id", "weight"}, edges, true},
		{"extra payload", "assignments", []string{"post_id", "tag_id", "note"}, edges, false},
		{"single target", "comments", []string{"id", "post_id"}, edges[:1], false},
		{"self reference ignored", "posts", []string{"id", "parent_id", "tag_id"}, []catalog.ForeignKeyEdge{
			{Column: "parent_id", TargetTable: "posts", TargetColumn: "id"},
			{Column: "tag_id", TargetTable: "tags", TargetColumn: "id"},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := make([]catalog.Column, len(tt.columns))
			for i, name := range tt.columns {
				cols[i] = catalog.Column{Name: name}
			}
			assert.Equal(t, tt.want, LooksLikeJoinTable(tt.table, cols, tt.edges))
		})
	}
}

func TestMarkManyToMany(t *testing.T) {
	rels := []Relationship{
		{
			ForeignKeyEdge: catalog.ForeignKeyEdge{Column: "post_id", TargetTable: "posts"},
			Table:          "post_tags",
			Cardinality:    OneToOnePotential,
			Availability:   Availability{RowCount: 50, DistinctCount: 50, HasData: true},
		},
		{
			ForeignKeyEdge: catalog.ForeignKeyEdge{Column: "tag_id", TargetTable: "tags"},
			Table:          "post_tags",
			Degraded:       true,
			Recommendation: "could not inspect",
		},
	}

	MarkManyToMany(rels)
	assert.Equal(t, ManyToMany, rels[0].Cardinality)
	assert.Contains(t, rels[0].Recommendation, "join table")
	assert.Equal(t, ManyToMany, rels[1].Cardinality)
	assert.Equal(t, "could not inspect", rels[1].Recommendation)
}
