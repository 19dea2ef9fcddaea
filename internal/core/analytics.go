package core

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

// Timeframe is the look-back window of the historial summary.
type Timeframe string

const (
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
	Timeframe90d Timeframe = "90d"
)

// topCourts is how many despachos the summary ranks.
const topCourts = 5

// ParseTimeframe accepts "7d", "30d" or "90d". Empty defaults to 7d.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(strings.ToLower(strings.TrimSpace(s))); tf {
	case "":
		return Timeframe7d, nil
	case Timeframe7d, Timeframe30d, Timeframe90d:
		return tf, nil
	}
	return "", fmt.Errorf("%w: timeframe %q", tablequery.ErrInvalidArgument, s)
}

// Duration is the window length.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe30d:
		return 30 * 24 * time.Hour
	case Timeframe90d:
		return 90 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// DayCount is the number of executions on one calendar day.
type DayCount struct {
	Date      string `json:"date"` // 2006-01-02
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// OutcomeShare is one slice of the outcome distribution.
type OutcomeShare struct {
	Outcome Extraccion `json:"outcome"`
	Label   string     `json:"label"`
	Count   int        `json:"count"`
	Percent float64    `json:"percent"`
}

// CourtCount ranks a despacho by executions.
type CourtCount struct {
	Court   string  `json:"court"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// HistorialSummary aggregates executions within a timeframe.
type HistorialSummary struct {
	Timeframe   Timeframe      `json:"timeframe"`
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	Pending     int            `json:"pending"`
	SuccessRate float64        `json:"successRate"`
	ErrorRate   float64        `json:"errorRate"`
	AvgPerDay   float64        `json:"avgPerDay"`
	Daily       []DayCount     `json:"daily"`
	Outcomes    []OutcomeShare `json:"outcomes"`
	TopCourts   []CourtCount   `json:"topCourts"`
}

// Historial record fields read by the summary.
const (
	fieldExecutedAt = "fecha_ejecucion"
	fieldOutcome    = "estado_extraccion"
	fieldCourt      = "despacho_juzgado"
)

// SummarizeHistorial counts executions whose fecha_ejecucion lies within tf
// before now. Records with unreadable dates are skipped. Days are bucketed
// in UTC. Rates are percentages rounded to one decimal.
func SummarizeHistorial(records []tablequery.Record, tf Timeframe, now time.Time) HistorialSummary {
	sum := HistorialSummary{
		Timeframe: tf,
		Daily:     []DayCount{},
		Outcomes:  []OutcomeShare{},
		TopCourts: []CourtCount{},
	}
	window := tf.Duration()

	days := make(map[string]*DayCount)
	outcomes := make(map[Extraccion]int)
	courts := make(map[string]int)

	for _, r := range records {
		at, ok := tablequery.ParseTime(r.Value(fieldExecutedAt))
		if !ok || now.Sub(at) > window {
			continue
		}
		outcome := Extraccion(tablequery.Text(r.Value(fieldOutcome)))

		sum.Total++
		outcomes[outcome]++

		day := at.UTC().Format(time.DateOnly)
		dc, ok := days[day]
		if !ok {
			dc = &DayCount{Date: day}
			days[day] = dc
		}
		dc.Total++

		switch {
		case outcome == ExtraccionExitoso:
			sum.Succeeded++
			dc.Succeeded++
		case outcome.IsError():
			sum.Failed++
			dc.Failed++
		case outcome == ExtraccionPendiente:
			sum.Pending++
		}

		if court := tablequery.Text(r.Value(fieldCourt)); court != "" {
			courts[court]++
		}
	}

	if sum.Total == 0 {
		return sum
	}

	sum.SuccessRate = percent(sum.Succeeded, sum.Total)
	sum.ErrorRate = percent(sum.Failed, sum.Total)

	for _, dc := range days {
		sum.Daily = append(sum.Daily, *dc)
	}
	slices.SortFunc(sum.Daily, func(a, b DayCount) int { return strings.Compare(a.Date, b.Date) })
	sum.AvgPerDay = math.Round(float64(sum.Total)/float64(len(sum.Daily))*10) / 10

	for _, x := range []Extraccion{ExtraccionExitoso, ExtraccionErrorCaptcha, ExtraccionErrorSistema, ExtraccionPendiente} {
		if n := outcomes[x]; n > 0 {
			sum.Outcomes = append(sum.Outcomes, OutcomeShare{
				Outcome: x,
				Label:   x.Badge().Label,
				Count:   n,
				Percent: percent(n, sum.Total),
			})
		}
	}

	for court, n := range courts {
		sum.TopCourts = append(sum.TopCourts, CourtCount{Court: court, Count: n, Percent: percent(n, sum.Total)})
	}
	slices.SortFunc(sum.TopCourts, func(a, b CourtCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Court, b.Court)
	})
	if len(sum.TopCourts) > topCourts {
		sum.TopCourts = sum.TopCourts[:topCourts]
	}

	return sum
}

// Analytics summarizes the executions of viewKey within tf.
func (s *Service) Analytics(ctx context.Context, viewKey string, tf Timeframe) (HistorialSummary, SnapshotInfo, error) {
	def, err := s.View(viewKey)
	if err != nil {
		return HistorialSummary{}, SnapshotInfo{}, err
	}
	records, info, err := s.snapshots.Records(ctx, def)
	if err != nil {
		return HistorialSummary{}, info, fmt.Errorf("load %s: %w", viewKey, err)
	}
	return SummarizeHistorial(records, tf, s.now()), info, nil
}

func percent(n, total int) float64 {
	return math.Round(float64(n)/float64(total)*1000) / 10
}
