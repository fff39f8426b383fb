package generator

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
)

type Strategy int

const (
	StrategyGenerated Strategy = iota
	StrategyConfigured
	StrategyForeignKey
)

func (s Strategy) String() string {
	switch s {
	case StrategyConfigured:
		return "configured"
	case StrategyForeignKey:
		return "foreignKey"
	default:
		return "generated"
	}
}

// Mode is the generation_type of a configured column.
type Mode string

const (
	ModeRandom   Mode = "random"
	ModeSequence Mode = "sequence"
	ModeFixed    Mode = "fixed"
	ModeTrue     Mode = "true"
	ModeFalse    Mode = "false"
)

// ParseMode accepts the generation types understood in config files. An
// empty string is random.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeRandom, nil
	case ModeRandom, ModeSequence, ModeFixed, ModeTrue, ModeFalse:
		return m, nil
	default:
		return "", fmt.Errorf("unknown generation type %q (want random, sequence, fixed, true or false)", s)
	}
}

type ColumnConfig struct {
	Mode       Mode
	FixedValue interface{}
	StartValue int64
	Unique     bool
}

// ColumnSpec tells the engine how to fill one column. Specs are built per
// population run and must not be shared between runs.
type ColumnSpec struct {
	Table    string
	Column   catalog.Column
	Strategy Strategy
	Config   ColumnConfig
	Pool     *CandidatePool
	Unique   bool
}

// CandidatePool holds the sampled values of a foreign key target. A
// one-to-one pool hands out every value once before it starts repeating.
type CandidatePool struct {
	values    []interface{}
	oneToOne  bool
	remaining []int
}

func NewCandidatePool(values []interface{}, oneToOne bool) *CandidatePool {
	p := &CandidatePool{
		values:   append([]interface{}{}, values...),
		oneToOne: oneToOne,
	}
	if oneToOne {
		p.remaining = make([]int, len(values))
		for i := range p.remaining {
			p.remaining[i] = i
		}
	}
	return p
}

func (p *CandidatePool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.values)
}

func (p *CandidatePool) Empty() bool {
	return p.Len() == 0
}

func (p *CandidatePool) OneToOne() bool {
	return p != nil && p.oneToOne
}

// Exhausted reports whether a one-to-one pool has handed out every value.
func (p *CandidatePool) Exhausted() bool {
	return p.OneToOne() && len(p.remaining) == 0
}

// Draw picks a value uniformly at random. Draws from a one-to-one pool are
// without replacement until the pool is exhausted.
func (p *CandidatePool) Draw(r *rand.Rand) interface{} {
	if p.Empty() {
		return nil
	}
	if len(p.remaining) > 0 {
		i := r.Intn(len(p.remaining))
		idx := p.remaining[i]
		last := len(p.remaining) - 1
		p.remaining[i] = p.remaining[last]
		p.remaining = p.remaining[:last]
		return p.values[idx]
	}
	return p.values[r.Intn(len(p.values))]
}
