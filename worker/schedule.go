package worker

import (
	"math/rand"
	"time"
)

// Schedule decides how long a worker idles before requesting access and how long it keeps the resource.
type Schedule interface {
	ThinkTime() time.Duration
	UseTime() time.Duration
}

type FixedSchedule struct {
	Think time.Duration
	Use   time.Duration
}

func (fs FixedSchedule) ThinkTime() time.Duration { return fs.Think }
func (fs FixedSchedule) UseTime() time.Duration   { return fs.Use }

// Range is an inclusive duration interval.
type Range struct {
	Min time.Duration
	Max time.Duration
}

func (r Range) pick(rnd *rand.Rand) time.Duration {

	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rnd.Int63n(int64(r.Max-r.Min)+1))
}

// RandomSchedule draws uniform durations from a seeded source, so runs are reproducible.
// It is not safe for concurrent use; give every worker its own.
type RandomSchedule struct {
	rnd   *rand.Rand
	think Range
	use   Range
}

func NewRandomSchedule(seed int64, think, use Range) *RandomSchedule {

	return &RandomSchedule{
		rnd:   rand.New(rand.NewSource(seed)),
		think: think,
		use:   use,
	}
}

func (rs *RandomSchedule) ThinkTime() time.Duration { return rs.think.pick(rs.rnd) }
func (rs *RandomSchedule) UseTime() time.Duration   { return rs.use.pick(rs.rnd) }
