package analyzer

import (
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/go-openapi/inflect"
)

// bookkeeping columns a join table may carry besides its foreign keys
var joinTableExtras = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"createdat":  true,
	"updatedat":  true,
}

// LooksLikeJoinTable guesses whether a table links two others many-to-many:
// it points at two or more distinct tables and either carries nothing but
// foreign keys and bookkeeping columns, or is named after its targets
// (post_tags, users_roles).
func LooksLikeJoinTable(table string, columns []catalog.Column, edges []catalog.ForeignKeyEdge) bool {
	targets := make(map[string]bool)
	fkColumns := make(map[string]bool)
	for _, e := range edges {
		if e.TargetTable == table {
			continue
		}
		targets[e.TargetTable] = true
		fkColumns[e.Column] = true
	}
	if len(targets) < 2 {
		return false
	}

	onlyKeys := true
	for _, col := range columns {
		if fkColumns[col.Name] || joinTableExtras[strings.ToLower(col.Name)] {
			continue
		}
		onlyKeys = false
		break
	}
	if onlyKeys {
		return true
	}

	parts := strings.Split(strings.ToLower(table), "_")
	named := 0
	for target := range targets {
		singular := inflect.Singularize(strings.ToLower(target))
		for _, part := range parts {
			if inflect.Singularize(part) == singular {
				named++
				break
			}
		}
	}
	return named >= 2
}

// MarkManyToMany relabels every edge as ManyToMany. Callers use it when they
// know (or LooksLikeJoinTable guesses) that the table is a join table.
func MarkManyToMany(relationships []Relationship) {
	for i := range relationships {
		relationships[i].Cardinality = ManyToMany
		if !relationships[i].Degraded {
			relationships[i].Recommendation = recommend(relationships[i])
		}
	}
}
