package adherence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medication-adherence/internal/domain/schedule"
	"medication-adherence/internal/platform/clock"
)

// ComputeMonthlyStatus colorea cada día del mes. Es pura: today y los conteos vienen de afuera.
//
// Reglas: día posterior a today => future; 0 tomas => missed;
// tomas >= expected (con expected > 0) => full; resto => partial.
// Con expected == 0 y sin tomas el día queda missed.
func ComputeMonthlyStatus(year, month int, today string, takenByDate map[string]int, expected int) map[int]DayStatus {
	out := map[int]DayStatus{}
	if !validMonth(year, month) {
		return out
	}
	days := daysIn(year, month)
	for d := 1; d <= days; d++ {
		date := dateOf(year, month, d)
		taken := takenByDate[date]
		switch {
		case date > today:
			out[d] = DayFuture
		case taken == 0:
			out[d] = DayMissed
		case expected > 0 && taken >= expected:
			out[d] = DayFull
		default:
			out[d] = DayPartial
		}
	}
	return out
}

type DayReport struct {
	Day    int
	Date   string
	Taken  int
	Status DayStatus
}

type MonthlyReport struct {
	Year     int
	Month    int
	Expected int
	Days     []DayReport
}

// Aggregator resume el historial para el calendario.
type Aggregator struct {
	meds  MedicationStore
	repo  Repository
	clock clock.Clock
}

func NewAggregator(meds MedicationStore, repo Repository, clk clock.Clock) *Aggregator {
	return &Aggregator{meds: meds, repo: repo, clock: clk}
}

// MonthlyStatus usa el horario actual de las medicaciones como esperado diario
// para todo el mes.
func (a *Aggregator) MonthlyStatus(ctx context.Context, userID string, year, month int) (MonthlyReport, error) {
	if strings.TrimSpace(userID) == "" {
		return MonthlyReport{}, ErrInvalidInput
	}
	if !validMonth(year, month) {
		return MonthlyReport{}, fmt.Errorf("%w: month must be 1..12", ErrInvalidInput)
	}

	meds, err := a.meds.ListByUser(ctx, userID)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("list medications: %w", err)
	}
	expected := 0
	for _, m := range meds {
		expected += schedule.EnabledCount(m.Times)
	}

	from := dateOf(year, month, 1)
	to := dateOf(year, month, daysIn(year, month))
	entries, err := a.repo.ListByDateRange(ctx, userID, from, to)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("list dose logs: %w", err)
	}
	taken := map[string]int{}
	for _, e := range entries {
		if e.Taken && !e.Skipped {
			taken[e.Date]++
		}
	}

	statuses := ComputeMonthlyStatus(year, month, a.clock.Today(), taken, expected)
	report := MonthlyReport{
		Year:     year,
		Month:    month,
		Expected: expected,
		Days:     make([]DayReport, 0, len(statuses)),
	}
	for d := 1; d <= len(statuses); d++ {
		date := dateOf(year, month, d)
		report.Days = append(report.Days, DayReport{
			Day:    d,
			Date:   date,
			Taken:  taken[date],
			Status: statuses[d],
		})
	}
	return report, nil
}

// validMonth limita el año a 4 dígitos: las fechas se comparan como "YYYY-MM-DD".
func validMonth(year, month int) bool {
	return year >= 1 && year <= 9999 && month >= 1 && month <= 12
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateOf(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
