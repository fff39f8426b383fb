package generator

import (
	"fmt"
	"math/rand"
	"time"
)

type columnKey struct {
	table  string
	column string
}

// GenerationContext carries the mutable state of one population run:
// the random source, the values already emitted per column and the
// sequence counters. It must not be shared between runs or goroutines.
type GenerationContext struct {
	Seed int64

	rand        *rand.Rand
	seen        map[columnKey]map[string]struct{}
	sequences   map[columnKey]int64
	placeholder int64
	unresolved  int
}

// NewContext returns a context whose random source is seeded with seed, or
// with the current time when seed is zero.
func NewContext(seed int64) *GenerationContext {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &GenerationContext{
		Seed:      seed,
		rand:      rand.New(rand.NewSource(seed)),
		seen:      make(map[columnKey]map[string]struct{}),
		sequences: make(map[columnKey]int64),
	}
}

// Rand exposes the run's random source to callers that make their own
// random decisions (null probability) so seeded runs stay reproducible.
func (gc *GenerationContext) Rand() *rand.Rand {
	return gc.rand
}

// Reserve marks values as already present in table.column, typically the
// rows that exist before the run starts.
func (gc *GenerationContext) Reserve(table, column string, values ...interface{}) {
	set := gc.seenSet(table, column)
	for _, v := range values {
		if v != nil {
			set[valueKey(v)] = struct{}{}
		}
	}
}

// Seen reports whether v was emitted or reserved for table.column.
func (gc *GenerationContext) Seen(table, column string, v interface{}) bool {
	_, ok := gc.seen[columnKey{table, column}][valueKey(v)]
	return ok
}

// Unresolved is the number of values accepted after the unique attempt
// ceiling was reached.
func (gc *GenerationContext) Unresolved() int {
	return gc.unresolved
}

func (gc *GenerationContext) seenSet(table, column string) map[string]struct{} {
	k := columnKey{table, column}
	set, ok := gc.seen[k]
	if !ok {
		set = make(map[string]struct{})
		gc.seen[k] = set
	}
	return set
}

func (gc *GenerationContext) nextSequence(table, column string) int64 {
	k := columnKey{table, column}
	n := gc.sequences[k]
	gc.sequences[k] = n + 1
	return n
}

func (gc *GenerationContext) nextPlaceholder() int64 {
	gc.placeholder++
	return gc.placeholder
}

// sampled values may come back as int64 while generated ones are int, so
// uniqueness is tracked on the printed form
func valueKey(v interface{}) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%v", v)
}
