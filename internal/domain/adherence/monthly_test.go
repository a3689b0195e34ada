package adherence

import (
	"context"
	"testing"
	"time"

	"medication-adherence/internal/domain/schedule"
	"medication-adherence/internal/platform/clock"

	"github.com/stretchr/testify/require"
)

func TestComputeMonthlyStatus(t *testing.T) {
	taken := map[string]int{
		"2025-06-01": 2,
		"2025-06-02": 1,
		"2025-06-10": 3,
	}
	got := ComputeMonthlyStatus(2025, 6, "2025-06-10", taken, 2)

	require.Len(t, got, 30)
	require.Equal(t, DayFull, got[1])
	require.Equal(t, DayPartial, got[2])
	require.Equal(t, DayMissed, got[3])
	require.Equal(t, DayFull, got[10])
	require.Equal(t, DayFuture, got[11])
	require.Equal(t, DayFuture, got[30])
}

func TestComputeMonthlyStatus_ZeroExpected(t *testing.T) {
	got := ComputeMonthlyStatus(2025, 6, "2025-06-30", map[string]int{"2025-06-05": 1}, 0)

	require.Equal(t, DayMissed, got[1])
	// Sin esperado no hay "full": cualquier toma cuenta como parcial.
	require.Equal(t, DayPartial, got[5])
}

func TestComputeMonthlyStatus_MonthLengths(t *testing.T) {
	require.Len(t, ComputeMonthlyStatus(2024, 2, "2024-12-31", nil, 1), 29)
	require.Len(t, ComputeMonthlyStatus(2025, 2, "2025-12-31", nil, 1), 28)
	require.Len(t, ComputeMonthlyStatus(2025, 12, "2025-12-31", nil, 1), 31)
	require.Empty(t, ComputeMonthlyStatus(2025, 13, "2025-12-31", nil, 1))
}

func TestAggregator_MonthlyStatus(t *testing.T) {
	meds := newTestMeds(med("m1", 30, "08:00"), med("m2", 30, "21:30"))
	logs := newTestLogs()
	clk := clock.NewFixed(time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC))

	ctx := context.Background()
	put := func(id, medID string, b schedule.Bucket, date string, taken bool) {
		require.NoError(t, logs.Create(ctx, DoseLogEntry{
			ID: id, UserID: "u1", MedicationID: medID, Bucket: b, Date: date, Taken: taken,
		}))
	}
	put("a", "m1", schedule.BucketMorning, "2025-06-01", true)
	put("b", "m2", schedule.BucketNight, "2025-06-01", true)
	put("c", "m1", schedule.BucketMorning, "2025-06-02", true)
	put("d", "m2", schedule.BucketNight, "2025-06-02", false) // no cuenta
	put("e", "m1", schedule.BucketMorning, "2025-05-31", true) // otro mes

	agg := NewAggregator(meds, logs, clk)
	rep, err := agg.MonthlyStatus(ctx, "u1", 2025, 6)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Expected)
	require.Len(t, rep.Days, 30)

	require.Equal(t, DayFull, rep.Days[0].Status)
	require.Equal(t, 2, rep.Days[0].Taken)
	require.Equal(t, DayPartial, rep.Days[1].Status)
	require.Equal(t, DayMissed, rep.Days[2].Status)
	require.Equal(t, DayFuture, rep.Days[3].Status)
	require.Equal(t, "2025-06-04", rep.Days[3].Date)
}

func TestAggregator_RejectsInvalidMonth(t *testing.T) {
	agg := NewAggregator(newTestMeds(), newTestLogs(), clock.NewFixed(time.Now()))

	_, err := agg.MonthlyStatus(context.Background(), "u1", 2025, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = agg.MonthlyStatus(context.Background(), "u1", 2025, 13)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAggregator_RejectsYearOutsideFourDigits(t *testing.T) {
	agg := NewAggregator(newTestMeds(), newTestLogs(), clock.NewFixed(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))

	for _, year := range []int{0, -1, 10000, 20250} {
		_, err := agg.MonthlyStatus(context.Background(), "u1", year, 6)
		require.ErrorIs(t, err, ErrInvalidInput, "year %d", year)
	}

	rep, err := agg.MonthlyStatus(context.Background(), "u1", 9999, 12)
	require.NoError(t, err)
	require.Len(t, rep.Days, 31)
	require.Equal(t, DayFuture, rep.Days[0].Status)

	require.Empty(t, ComputeMonthlyStatus(10000, 1, "2025-06-01", nil, 1))
}
