package returns

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MovementSource yields a per-symbol price movement multiplier applied
// to contributed amounts when estimating profit.
type MovementSource interface {
	Multiplier(symbol string) decimal.Decimal
}

// UniformSource draws multipliers uniformly from [Min, Max). The zero
// value uses the default band of -3% to +5%.
type UniformSource struct {
	Min decimal.Decimal
	Max decimal.Decimal

	mu   sync.Mutex
	rng  *rand.Rand
	once sync.Once
}

var (
	defaultMin = decimal.NewFromFloat(-0.03)
	defaultMax = decimal.NewFromFloat(0.05)
)

func (s *UniformSource) init() {
	s.once.Do(func() {
		if s.rng == nil {
			s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		if s.Min.IsZero() && s.Max.IsZero() {
			s.Min = defaultMin
			s.Max = defaultMax
		}
	})
}

// NewUniformSource builds a seeded source over [min, max).
func NewUniformSource(min, max decimal.Decimal, seed int64) *UniformSource {
	s := &UniformSource{
		Min: min,
		Max: max,
		rng: rand.New(rand.NewSource(seed)),
	}
	s.init()
	return s
}

func (s *UniformSource) Multiplier(string) decimal.Decimal {
	s.init()
	s.mu.Lock()
	draw := s.rng.Float64()
	s.mu.Unlock()
	span := s.Max.Sub(s.Min)
	return s.Min.Add(span.Mul(decimal.NewFromFloat(draw)))
}

// FixedSource returns the same multiplier for every symbol.
type FixedSource struct {
	Value decimal.Decimal
}

func (s FixedSource) Multiplier(string) decimal.Decimal { return s.Value }
