package materialize

import (
	"time"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/service/partition"
)

// Materializer expands a medication rule into the concrete dose instants of
// one calendar day. It always starts from the undisturbed base rule;
// late-dose recalculation is a runtime event handled elsewhere and never
// leaks into future days.
type Materializer struct {
	partitioner *partition.Partitioner
}

func NewMaterializer(partitioner *partition.Partitioner) *Materializer {
	return &Materializer{
		partitioner: partitioner,
	}
}

// Materialize returns the dose instants for rule on the given calendar day,
// or an empty list when the rule is inactive or the day falls outside its
// active date range.
func (m *Materializer) Materialize(rule *domain.MedicationRule, date time.Time) ([]domain.DoseInstant, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if !rule.ActiveOn(date) {
		return nil, nil
	}

	times, err := m.partitioner.Partition(rule.WindowStart, rule.WindowEnd, rule.DosesPerDay)
	if err != nil {
		return nil, err
	}

	doses := make([]domain.DoseInstant, 0, len(times))
	for _, tod := range times {
		doses = append(doses, domain.NewDoseInstant(rule.ID, date, tod))
	}

	return doses, nil
}
