package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
)

// Graph holds table dependencies: an edge A -> B means A has a foreign key
// into B, so B must be populated first.
type Graph struct {
	edges map[string]map[string]struct{}
}

func NewGraph() *Graph {
	return &Graph{
		edges: make(map[string]map[string]struct{}),
	}
}

func (g *Graph) AddTable(name string) {
	if _, ok := g.edges[name]; !ok {
		g.edges[name] = make(map[string]struct{})
	}
}

// AddEdge records that from depends on to. Self-references are dropped: a
// self-referencing column has to be nullable for the table to be seeded at all.
func (g *Graph) AddEdge(from, to string) {
	g.AddTable(from)
	g.AddTable(to)
	if from == to {
		return
	}
	g.edges[from][to] = struct{}{}
}

func (g *Graph) Tables() []string {
	tables := make([]string, 0, len(g.edges))
	for name := range g.edges {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables
}

// Dependencies returns the direct dependencies of a table, sorted.
func (g *Graph) Dependencies(table string) []string {
	deps := make([]string, 0, len(g.edges[table]))
	for dep := range g.edges[table] {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// InsertionOrder returns every table with dependencies before dependents.
// Cycles do not stop the walk; they are returned alongside the order.
func (g *Graph) InsertionOrder() ([]string, [][]string) {
	t := newTraversal(func(table string) ([]string, error) {
		return g.Dependencies(table), nil
	})
	for _, table := range g.Tables() {
		// lookups on an in-memory graph cannot fail
		_ = t.visit(table)
	}
	return t.order, t.cycles
}

// traversal is a DFS with permanent and temporary marks. A dependency that is
// still temporarily marked closes a cycle; it is recorded and skipped.
type traversal struct {
	deps    func(string) ([]string, error)
	visited map[string]bool
	temp    map[string]bool
	stack   []string
	order   []string
	cycles  [][]string
}

func newTraversal(deps func(string) ([]string, error)) *traversal {
	return &traversal{
		deps:    deps,
		visited: make(map[string]bool),
		temp:    make(map[string]bool),
	}
}

func (t *traversal) visit(table string) error {
	if t.visited[table] {
		return nil
	}

	t.temp[table] = true
	t.stack = append(t.stack, table)

	deps, err := t.deps(table)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if dep == table {
			continue
		}
		if t.temp[dep] {
			t.cycles = append(t.cycles, t.cyclePath(dep))
			continue
		}
		if err := t.visit(dep); err != nil {
			return err
		}
	}

	t.stack = t.stack[:len(t.stack)-1]
	t.temp[table] = false
	t.visited[table] = true
	t.order = append(t.order, table)
	return nil
}

func (t *traversal) cyclePath(closing string) []string {
	for i, name := range t.stack {
		if name == closing {
			path := append([]string{}, t.stack[i:]...)
			return append(path, closing)
		}
	}
	return []string{closing, closing}
}

// CycleError lists the dependency cycles found while resolving.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		parts[i] = strings.Join(c, " -> ")
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(parts, "; "))
}

func (e *CycleError) Is(target error) bool {
	return target == catalog.ErrCyclicDependency
}
