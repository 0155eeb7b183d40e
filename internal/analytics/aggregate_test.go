package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orgmanage/orgmanage/internal/sales"
)

func tx(owner uuid.UUID, date time.Time, region string, amount float64) sales.Transaction {
	return sales.Transaction{
		ID:         uuid.New(),
		OwnerID:    owner,
		Date:       date,
		Region:     region,
		SaleAmount: amount,
		Status:     sales.StatusClosedWon,
	}
}

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestRevenueByDaySkipsEmptyDates(t *testing.T) {
	owner := uuid.New()
	txs := []sales.Transaction{
		tx(owner, day(1), "Ashanti", 100),
		tx(owner, day(1), "Ashanti", 50),
		tx(owner, day(5), "Volta", 200),
	}

	got := RevenueByDay(txs, 30)
	require.Equal(t, []DayRevenue{
		{Date: "2026-01-01", Revenue: 150},
		{Date: "2026-01-05", Revenue: 200},
	}, got)
}

func TestRevenueByDayKeepsLastWindowDates(t *testing.T) {
	owner := uuid.New()
	var txs []sales.Transaction
	for d := 1; d <= 10; d++ {
		txs = append(txs, tx(owner, day(d), "Ashanti", float64(d)))
	}

	got := RevenueByDay(txs, 3)
	require.Len(t, got, 3)
	require.Equal(t, "2026-01-08", got[0].Date)
	require.Equal(t, "2026-01-10", got[2].Date)
}

func TestRevenueByRegionOrdersDescending(t *testing.T) {
	owner := uuid.New()
	txs := []sales.Transaction{
		tx(owner, day(1), "Volta", 300),
		tx(owner, day(2), "Ashanti", 500),
		tx(owner, day(3), "Volta", 100),
		tx(owner, day(4), "Northern", 400),
	}

	got := RevenueByRegion(txs)
	require.Equal(t, []RegionRevenue{
		{Region: "Ashanti", Revenue: 500},
		{Region: "Northern", Revenue: 400},
		{Region: "Volta", Revenue: 400},
	}, got)
}

func TestGoalProgressPartial(t *testing.T) {
	owner := uuid.New()
	win := GoalWindow{
		OwnerID: owner,
		Target:  50000,
		Start:   day(1),
		End:     day(31),
	}
	txs := []sales.Transaction{
		tx(owner, day(10), "Ashanti", 20000),
		tx(uuid.New(), day(10), "Ashanti", 99999),
		tx(owner, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), "Ashanti", 5000),
	}

	p := GoalProgress(win, txs)
	require.Equal(t, 20000.0, p.Current)
	require.Equal(t, 40.0, p.Percent)
	require.Equal(t, 30000.0, p.Remaining)
}

func TestGoalProgressClampsWhenExceeded(t *testing.T) {
	owner := uuid.New()
	win := GoalWindow{OwnerID: owner, Target: 1000, Start: day(1), End: day(31)}
	txs := []sales.Transaction{tx(owner, day(2), "Ashanti", 2500)}

	p := GoalProgress(win, txs)
	require.Equal(t, 2500.0, p.Current)
	require.Equal(t, 100.0, p.Percent)
	require.Zero(t, p.Remaining)
}

func TestGoalProgressIncludesBoundaryDates(t *testing.T) {
	owner := uuid.New()
	win := GoalWindow{OwnerID: owner, Target: 300, Start: day(1), End: day(31)}
	txs := []sales.Transaction{
		tx(owner, day(1), "Ashanti", 100),
		tx(owner, day(31), "Ashanti", 100),
	}

	p := GoalProgress(win, txs)
	require.Equal(t, 200.0, p.Current)
}

func TestGoalProgressZeroTarget(t *testing.T) {
	owner := uuid.New()
	win := GoalWindow{OwnerID: owner, Target: 0, Start: day(1), End: day(31)}
	txs := []sales.Transaction{tx(owner, day(2), "Ashanti", 500)}

	p := GoalProgress(win, txs)
	require.Zero(t, p.Percent)
	require.Zero(t, p.Remaining)
}

func TestSummarize(t *testing.T) {
	owner := uuid.New()
	txs := []sales.Transaction{
		tx(owner, day(1), "Ashanti", 100),
		tx(owner, day(2), "Volta", 300),
	}
	txs[1].Status = sales.StatusInProgress

	s := Summarize(txs)
	require.Equal(t, 400.0, s.TotalRevenue)
	require.Equal(t, 2, s.Count)
	require.Equal(t, 200.0, s.AverageSale)
	require.Equal(t, map[string]int{
		sales.StatusClosedWon:  1,
		sales.StatusInProgress: 1,
	}, s.StatusCounts)
}
