package partition

import (
	"fmt"
	"math"

	"github.com/medplan/reminder-engine/internal/domain"
)

// Partitioner spreads a rule's daily doses across its dose window. It is
// pure and safe for concurrent use.
type Partitioner struct{}

func NewPartitioner() *Partitioner {
	return &Partitioner{}
}

// Partition returns count times of day inside [start, end]. A window whose
// end is not after its start is treated as wrapping past midnight. A single
// dose lands on the window midpoint; multiple doses are spaced evenly with
// both endpoints included.
func (p *Partitioner) Partition(start, end domain.TimeOfDay, count int) ([]domain.TimeOfDay, error) {
	if !start.Valid() || !end.Valid() {
		return nil, fmt.Errorf("%w: start=%s end=%s", domain.ErrInvalidWindow, start, end)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidCount, count)
	}

	startMin := start.Minutes()
	endMin := end.Minutes()
	if endMin <= startMin {
		endMin += domain.MinutesPerDay
	}

	times := make([]domain.TimeOfDay, 0, count)

	if count == 1 {
		mid := float64(startMin) + float64(endMin-startMin)/2
		times = append(times, roundToMinute(mid))
		return times, nil
	}

	interval := float64(endMin-startMin) / float64(count-1)
	for i := range count {
		times = append(times, roundToMinute(float64(startMin)+float64(i)*interval))
	}

	return times, nil
}

func roundToMinute(minutes float64) domain.TimeOfDay {
	return domain.TimeOfDay(int(math.Round(minutes))).Normalize()
}
