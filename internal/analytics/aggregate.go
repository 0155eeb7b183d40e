package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/sales"
)

const dateLayout = "2006-01-02"

// DayRevenue is one point on the revenue trend chart.
type DayRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// RegionRevenue is one slice of the regional breakdown.
type RegionRevenue struct {
	Region  string  `json:"region"`
	Revenue float64 `json:"revenue"`
}

// SegmentRevenue is one slice of the customer segment breakdown.
type SegmentRevenue struct {
	Segment string  `json:"segment"`
	Revenue float64 `json:"revenue"`
}

// Summary carries the headline dashboard figures.
type Summary struct {
	TotalRevenue float64        `json:"total_revenue"`
	Count        int            `json:"count"`
	AverageSale  float64        `json:"average_sale"`
	StatusCounts map[string]int `json:"status_counts"`
}

// Summarize computes the headline figures over the given transactions.
func Summarize(txs []sales.Transaction) Summary {
	s := Summary{StatusCounts: map[string]int{}}
	for _, tx := range txs {
		s.TotalRevenue += tx.SaleAmount
		s.Count++
		s.StatusCounts[tx.Status]++
	}
	if s.Count > 0 {
		s.AverageSale = s.TotalRevenue / float64(s.Count)
	}
	return s
}

// RevenueByDay groups revenue by calendar date ascending, keeping the last
// window distinct dates that actually have transactions. Dates with no
// activity are absent rather than zero-filled.
func RevenueByDay(txs []sales.Transaction, window int) []DayRevenue {
	if window <= 0 {
		window = 30
	}
	byDate := map[string]float64{}
	for _, tx := range txs {
		key := tx.Date.Format(dateLayout)
		byDate[key] += tx.SaleAmount
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > window {
		dates = dates[len(dates)-window:]
	}
	out := make([]DayRevenue, 0, len(dates))
	for _, d := range dates {
		out = append(out, DayRevenue{Date: d, Revenue: byDate[d]})
	}
	return out
}

// RevenueByRegion groups revenue by region, highest first. Ties break on
// region name so the chart order is stable.
func RevenueByRegion(txs []sales.Transaction) []RegionRevenue {
	byRegion := map[string]float64{}
	for _, tx := range txs {
		byRegion[tx.Region] += tx.SaleAmount
	}
	out := make([]RegionRevenue, 0, len(byRegion))
	for region, revenue := range byRegion {
		out = append(out, RegionRevenue{Region: region, Revenue: revenue})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// RevenueBySegment groups revenue by customer segment, highest first.
func RevenueBySegment(txs []sales.Transaction) []SegmentRevenue {
	bySegment := map[string]float64{}
	for _, tx := range txs {
		bySegment[tx.CustomerSegment] += tx.SaleAmount
	}
	out := make([]SegmentRevenue, 0, len(bySegment))
	for segment, revenue := range bySegment {
		out = append(out, SegmentRevenue{Segment: segment, Revenue: revenue})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Segment < out[j].Segment
	})
	return out
}

// GoalWindow scopes goal progress to one owner and an inclusive date range.
type GoalWindow struct {
	OwnerID uuid.UUID
	Target  float64
	Start   time.Time
	End     time.Time
}

// Progress is the computed standing of a goal against its transactions.
type Progress struct {
	Current   float64 `json:"current"`
	Target    float64 `json:"target"`
	Percent   float64 `json:"percent"`
	Remaining float64 `json:"remaining"`
}

// GoalProgress sums the owner's transactions inside the goal window. The
// displayed percentage is capped at 100 and the remaining amount never goes
// negative, even when the goal is exceeded.
func GoalProgress(win GoalWindow, txs []sales.Transaction) Progress {
	p := Progress{Target: win.Target}
	for _, tx := range txs {
		if tx.OwnerID != win.OwnerID {
			continue
		}
		if tx.Date.Before(win.Start) || tx.Date.After(win.End) {
			continue
		}
		p.Current += tx.SaleAmount
	}
	if win.Target > 0 {
		p.Percent = p.Current / win.Target * 100
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	p.Remaining = win.Target - p.Current
	if p.Remaining < 0 {
		p.Remaining = 0
	}
	return p
}
