package core

import (
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in      string
		want    Timeframe
		wantErr bool
	}{
		{in: "", want: Timeframe7d},
		{in: "7d", want: Timeframe7d},
		{in: " 30D ", want: Timeframe30d},
		{in: "90d", want: Timeframe90d},
		{in: "1y", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTimeframe(tt.in)
		if tt.wantErr {
			if !errors.Is(err, tablequery.ErrInvalidArgument) {
				t.Errorf("ParseTimeframe(%q) error = %v, want ErrInvalidArgument", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseTimeframe(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func historialRecords() []tablequery.Record {
	return []tablequery.Record{
		{"fecha_ejecucion": "2024-03-19T19:00:00Z", "estado_extraccion": "exitoso", "despacho_juzgado": "Juzgado 1 Civil"},
		{"fecha_ejecucion": "2024-03-19T19:05:00Z", "estado_extraccion": "error_captcha", "despacho_juzgado": "Juzgado 1 Civil"},
		{"fecha_ejecucion": "2024-03-18T19:00:00Z", "estado_extraccion": "exitoso", "despacho_juzgado": "Juzgado 2 Laboral"},
		{"fecha_ejecucion": "2024-03-18T19:02:00Z", "estado_extraccion": "pendiente", "despacho_juzgado": ""},
		{"fecha_ejecucion": "2024-03-17T19:00:00Z", "estado_extraccion": "error_sistema", "despacho_juzgado": "Juzgado 1 Civil"},
		{"fecha_ejecucion": "2024-02-01T19:00:00Z", "estado_extraccion": "exitoso", "despacho_juzgado": "Juzgado 9"},
		{"fecha_ejecucion": "no es fecha", "estado_extraccion": "exitoso"},
		{"estado_extraccion": "exitoso"},
	}
}

func TestSummarizeHistorial(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	sum := SummarizeHistorial(historialRecords(), Timeframe7d, now)

	if sum.Total != 5 || sum.Succeeded != 2 || sum.Failed != 2 || sum.Pending != 1 {
		t.Errorf("counts = total %d ok %d err %d pend %d, want 5/2/2/1",
			sum.Total, sum.Succeeded, sum.Failed, sum.Pending)
	}
	if sum.SuccessRate != 40 || sum.ErrorRate != 40 {
		t.Errorf("rates = %v/%v, want 40/40", sum.SuccessRate, sum.ErrorRate)
	}
	if len(sum.Daily) != 3 {
		t.Fatalf("Daily = %+v, want 3 days", sum.Daily)
	}
	if sum.Daily[0].Date != "2024-03-17" || sum.Daily[2].Date != "2024-03-19" {
		t.Errorf("Daily not sorted by date: %+v", sum.Daily)
	}
	if d := sum.Daily[2]; d.Total != 2 || d.Succeeded != 1 || d.Failed != 1 {
		t.Errorf("Daily[2] = %+v, want 2 total, 1 ok, 1 failed", d)
	}
	if sum.AvgPerDay != 1.7 {
		t.Errorf("AvgPerDay = %v, want 1.7", sum.AvgPerDay)
	}

	wantOutcomes := []Extraccion{ExtraccionExitoso, ExtraccionErrorCaptcha, ExtraccionErrorSistema, ExtraccionPendiente}
	if len(sum.Outcomes) != len(wantOutcomes) {
		t.Fatalf("Outcomes = %+v", sum.Outcomes)
	}
	for i, o := range wantOutcomes {
		if sum.Outcomes[i].Outcome != o {
			t.Errorf("Outcomes[%d] = %q, want %q", i, sum.Outcomes[i].Outcome, o)
		}
	}

	if len(sum.TopCourts) != 2 || sum.TopCourts[0].Court != "Juzgado 1 Civil" || sum.TopCourts[0].Count != 3 {
		t.Errorf("TopCourts = %+v, want Juzgado 1 Civil first with 3", sum.TopCourts)
	}
	if sum.TopCourts[0].Percent != 60 {
		t.Errorf("TopCourts[0].Percent = %v, want 60", sum.TopCourts[0].Percent)
	}
}

func TestSummarizeHistorial_WiderTimeframe(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	sum := SummarizeHistorial(historialRecords(), Timeframe90d, now)
	if sum.Total != 6 {
		t.Errorf("Total = %d, want 6 within 90 days", sum.Total)
	}
}

func TestSummarizeHistorial_Empty(t *testing.T) {
	sum := SummarizeHistorial(nil, Timeframe30d, time.Now())
	if sum.Total != 0 || sum.SuccessRate != 0 || sum.Daily == nil || sum.TopCourts == nil {
		t.Errorf("empty summary = %+v, want zero counts and empty lists", sum)
	}
}
