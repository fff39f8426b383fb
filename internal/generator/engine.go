// Package generator synthesizes column values: explicit configuration first,
// then foreign key candidates, then column-name heuristics, then a fallback
// per declared type.
package generator

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/google/uuid"
)

const DefaultMaxUniqueAttempts = 100

type Engine struct {
	maxAttempts int
	heuristics  []heuristic
}

func NewEngine(maxUniqueAttempts int) *Engine {
	if maxUniqueAttempts <= 0 {
		maxUniqueAttempts = DefaultMaxUniqueAttempts
	}
	return &Engine{
		maxAttempts: maxUniqueAttempts,
		heuristics:  heuristics,
	}
}

// Generate returns a value for spec. It never returns nil except for a
// foreign key column whose pool is empty; nullability is decided by the
// caller.
func (e *Engine) Generate(gc *GenerationContext, spec *ColumnSpec) interface{} {
	if v, ok := e.configured(gc, spec); ok {
		return v
	}
	if spec.Strategy == StrategyForeignKey || spec.Pool != nil {
		return spec.Pool.Draw(gc.rand)
	}
	return e.synthesize(gc, spec.Column)
}

func (e *Engine) configured(gc *GenerationContext, spec *ColumnSpec) (interface{}, bool) {
	if spec.Strategy != StrategyConfigured {
		return nil, false
	}
	switch spec.Config.Mode {
	case ModeFixed:
		return spec.Config.FixedValue, true
	case ModeTrue:
		return true, true
	case ModeFalse:
		return false, true
	case ModeSequence:
		if !number(spec.Column.Type) {
			return nil, false
		}
		return spec.Config.StartValue + gc.nextSequence(spec.Table, spec.Column.Name), true
	}
	return nil, false
}

// synthesize runs the name heuristics, then the type fallback.
func (e *Engine) synthesize(gc *GenerationContext, col catalog.Column) interface{} {
	name := strings.ToLower(col.Name)
	for _, h := range e.heuristics {
		if h.match(name) && h.accepts(col.Type) {
			return fitString(h.gen(gc, col), col.MaxLength)
		}
	}
	return fitString(e.fallback(gc, col), col.MaxLength)
}

func (e *Engine) fallback(gc *GenerationContext, col catalog.Column) interface{} {
	switch col.Type {
	case catalog.TypeInteger:
		return int64(gc.rand.Intn(1000000) + 1)
	case catalog.TypeBoolean:
		return gc.rand.Intn(2) == 1
	case catalog.TypeTimestamp:
		return randomTime(gc)
	case catalog.TypeDate:
		return randomTime(gc).Format("2006-01-02")
	case catalog.TypeTime:
		return fmt.Sprintf("%02d:%02d:%02d", gc.rand.Intn(24), gc.rand.Intn(60), gc.rand.Intn(60))
	case catalog.TypeVarText:
		return fmt.Sprintf("%s %s %s", oneOf(gc, words), oneOf(gc, words), oneOf(gc, words))
	case catalog.TypeNumeric:
		return round2(10 + gc.rand.Float64()*990)
	case catalog.TypeUUID:
		id, err := uuid.NewRandomFromReader(gc.rand)
		if err != nil {
			return uuid.NewString()
		}
		return id.String()
	case catalog.TypeJSON:
		return fmt.Sprintf(`{"generated":true,"seq":%d}`, gc.nextPlaceholder())
	}
	return fmt.Sprintf("value_%d", gc.nextPlaceholder())
}

// Category names the layer that fills col when no configuration applies.
func (e *Engine) Category(col catalog.Column) string {
	name := strings.ToLower(col.Name)
	for _, h := range e.heuristics {
		if h.match(name) && h.accepts(col.Type) {
			return h.tag
		}
	}
	return "type:" + col.Type.String()
}

// GenerateUnique returns a value not yet emitted for spec's column in this
// run. Collisions are perturbed up to the attempt ceiling; after that a
// suffixed or offset value is accepted and counted as unresolved.
func (e *Engine) GenerateUnique(gc *GenerationContext, spec *ColumnSpec) interface{} {
	if v, ok := e.configured(gc, spec); ok {
		// configured values are emitted verbatim
		gc.Reserve(spec.Table, spec.Column.Name, v)
		return v
	}
	v := e.Generate(gc, spec)
	if v == nil {
		return nil
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if !gc.Seen(spec.Table, spec.Column.Name, v) {
			gc.Reserve(spec.Table, spec.Column.Name, v)
			return v
		}
		v = e.perturb(gc, spec, v, attempt)
	}

	gc.unresolved++
	v = e.force(gc, spec, v)
	gc.Reserve(spec.Table, spec.Column.Name, v)
	return v
}

// GenerateUniqueValues returns n values that are distinct from each other
// and from everything reserved for the column.
func (e *Engine) GenerateUniqueValues(gc *GenerationContext, spec *ColumnSpec, n int) []interface{} {
	values := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		values = append(values, e.GenerateUnique(gc, spec))
	}
	return values
}

// perturb derives a new candidate after a collision.
func (e *Engine) perturb(gc *GenerationContext, spec *ColumnSpec, v interface{}, attempt int) interface{} {
	if spec.Strategy == StrategyForeignKey || spec.Pool != nil {
		return spec.Pool.Draw(gc.rand)
	}

	switch val := v.(type) {
	case int64:
		return val + int64(gc.rand.Intn(1000)+1)
	case float64:
		return round2(val + float64(gc.rand.Intn(1000)+1) + gc.rand.Float64())
	case time.Time:
		return val.Add(time.Duration(gc.rand.Intn(86400)+1) * time.Second)
	case string:
		if !spec.Column.Type.IsTextual() {
			// uuid, json, date and time strings are regenerated instead
			return e.synthesize(gc, spec.Column)
		}
		base := e.synthesize(gc, spec.Column)
		s, ok := base.(string)
		if !ok {
			return base
		}
		return withSuffix(s, fmt.Sprintf("_%d", gc.rand.Intn(10000*attempt)+1), spec.Column.MaxLength)
	}
	return e.Generate(gc, spec)
}

// force produces the value accepted once the attempt ceiling is hit.
// Suffixed strings are checked against the seen set, offset numbers are not.
func (e *Engine) force(gc *GenerationContext, spec *ColumnSpec, v interface{}) interface{} {
	if spec.Strategy == StrategyForeignKey || spec.Pool != nil {
		return v
	}

	switch val := v.(type) {
	case int64:
		return val + int64(len(gc.seenSet(spec.Table, spec.Column.Name))) + 1
	case float64:
		return val + float64(len(gc.seenSet(spec.Table, spec.Column.Name))) + 1
	case string:
		if !spec.Column.Type.IsTextual() {
			return val
		}
		base, ok := e.synthesize(gc, spec.Column).(string)
		if !ok {
			base = val
		}
		seen := len(gc.seenSet(spec.Table, spec.Column.Name))
		for i := 0; i < e.maxAttempts*10; i++ {
			candidate := withSuffix(base, fmt.Sprintf("_%d", seen+1000+i), spec.Column.MaxLength)
			if !gc.Seen(spec.Table, spec.Column.Name, candidate) {
				return candidate
			}
		}
		return withSuffix(base, fmt.Sprintf("_%d", seen+1000), spec.Column.MaxLength)
	}
	return v
}

func fitString(v interface{}, maxLength int) interface{} {
	if s, ok := v.(string); ok {
		return truncate(s, maxLength)
	}
	return v
}

// truncate cuts s to at most maxLength runes. Zero means unbounded.
func truncate(s string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLength])
}

// withSuffix appends suffix to s, shortening s rather than the suffix when
// the result would exceed maxLength. Email addresses get the suffix on the
// local part.
func withSuffix(s, suffix string, maxLength int) string {
	if at := strings.LastIndex(s, "@"); at > 0 && !strings.ContainsAny(s, " ") {
		local, domain := s[:at], s[at:]
		if maxLength > 0 {
			keep := maxLength - utf8.RuneCountInString(domain) - utf8.RuneCountInString(suffix)
			if keep >= 1 {
				return truncate(local, keep) + suffix + domain
			}
		} else {
			return local + suffix + domain
		}
	}

	if maxLength <= 0 {
		return s + suffix
	}
	keep := maxLength - utf8.RuneCountInString(suffix)
	if keep < 1 {
		return truncate(strings.TrimPrefix(suffix, "_"), maxLength)
	}
	return truncate(s, keep) + suffix
}
