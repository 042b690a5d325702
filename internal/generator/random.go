package generator

import (
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Each component draws from its own stream so that changing how many values
// one component consumes never shifts another component's output.
const (
	streamEntities int64 = iota + 1
	streamRelationships
	streamTransactions
	streamFiller
	streamLoans
	streamChats
	streamInjector
	streamFaker
)

// source is an explicitly owned, seeded random stream.
type source struct {
	*rand.Rand
}

func newSource(seed, stream int64) *source {
	return &source{rand.New(rand.NewSource(streamSeed(seed, stream)))}
}

// streamSeed mixes the run seed with a stream id (splitmix64 finalizer).
func streamSeed(seed, stream int64) int64 {
	z := uint64(seed) + uint64(stream)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return int64(z ^ (z >> 31))
}

// between returns a float uniformly drawn from [lo, hi).
func (s *source) between(lo, hi float64) float64 {
	return lo + s.Float64()*(hi-lo)
}

// intBetween returns an int uniformly drawn from [lo, hi].
func (s *source) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.Intn(hi-lo+1)
}

func (s *source) chance(p float64) bool {
	return s.Float64() < p
}

// weighted returns an index into weights with probability proportional to
// its weight. Weights must sum to a positive value.
func (s *source) weighted(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	r := s.Intn(total)
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// poisson draws a Poisson count with mean lambda (Knuth). Rates used here
// are small, so the multiplicative loop is short.
func (s *source) poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := s.Float64()
	for p > limit {
		k++
		p *= s.Float64()
	}
	return k
}

// logNormal draws around median with log-space spread sigma, clamped to
// [lo, hi].
func (s *source) logNormal(median, sigma, lo, hi float64) float64 {
	v := median * math.Exp(sigma*s.NormFloat64())
	return math.Min(hi, math.Max(lo, v))
}

// money draws a log-normal amount rounded to cents.
func (s *source) money(median, sigma, lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(s.logNormal(median, sigma, lo, hi)).Round(2)
}

// timeBetween returns an instant in [from, to) at second precision, or from
// when the range is empty.
func (s *source) timeBetween(from, to time.Time) time.Time {
	span := int64(to.Sub(from) / time.Second)
	if span <= 0 {
		return from
	}
	return from.Add(time.Duration(s.Int63n(span)) * time.Second)
}

// atBusinessHours moves t to a random minute between fromHour and toHour on
// the same calendar day.
func (s *source) atBusinessHours(t time.Time, fromHour, toHour int) time.Time {
	day := truncateDay(t)
	minute := s.intBetween(fromHour*60, toHour*60-1)
	return day.Add(time.Duration(minute)*time.Minute + time.Duration(s.Intn(60))*time.Second)
}

func (s *source) hex(n int) string {
	const digits = "0123456789abcdef"
	b := make([]byte, n)
	for i := range b {
		b[i] = digits[s.Intn(len(digits))]
	}
	return string(b)
}

func pick[T any](s *source, xs []T) T {
	return xs[s.Intn(len(xs))]
}

// ─── Time helpers ─────────────────────────────────────────────────────────────

const day = 24 * time.Hour

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / day)
}

func timePtr(t time.Time) *time.Time { return &t }

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }

func int64Ptr(v int64) *int64 { return &v }
