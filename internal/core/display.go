package core

// display.go holds the presentation rules shared by the HTML views, the JSON
// API and the CLI: status badges, Spanish relative dates and the countdown
// to the next scheduled execution.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

// truncateLimit is the rune width of DisplayTruncate cells.
const truncateLimit = 50

// BadgeVariant is the visual style of a status badge.
type BadgeVariant string

const (
	BadgeSuccess    BadgeVariant = "success"
	BadgeProcessing BadgeVariant = "processing"
	BadgeWarning    BadgeVariant = "warning"
	BadgeError      BadgeVariant = "error"
	BadgeInfo       BadgeVariant = "info"
	BadgeNeutral    BadgeVariant = "neutral"
)

// Badge is a label with its style.
type Badge struct {
	Label   string       `json:"label"`
	Variant BadgeVariant `json:"variant"`
}

// Estado is the lifecycle state of a solicitud.
type Estado string

const (
	EstadoActiva     Estado = "activa"
	EstadoEnProceso  Estado = "en_proceso"
	EstadoPausada    Estado = "pausada"
	EstadoError      Estado = "error"
	EstadoCompletada Estado = "completada"
)

// Badge returns the display badge. Unknown states show their raw text.
func (e Estado) Badge() Badge {
	switch e {
	case EstadoActiva:
		return Badge{Label: "Activa", Variant: BadgeSuccess}
	case EstadoEnProceso:
		return Badge{Label: "En Proceso", Variant: BadgeProcessing}
	case EstadoPausada:
		return Badge{Label: "Pausada", Variant: BadgeWarning}
	case EstadoError:
		return Badge{Label: "Error", Variant: BadgeError}
	case EstadoCompletada:
		return Badge{Label: "Completada", Variant: BadgeInfo}
	}
	return unknownBadge(string(e))
}

// Extraccion is the outcome of one historial execution.
type Extraccion string

const (
	ExtraccionExitoso      Extraccion = "exitoso"
	ExtraccionPendiente    Extraccion = "pendiente"
	ExtraccionErrorCaptcha Extraccion = "error_captcha"
	ExtraccionErrorSistema Extraccion = "error_sistema"
)

// IsError reports whether the outcome is any error kind.
func (x Extraccion) IsError() bool {
	return strings.Contains(string(x), "error")
}

func (x Extraccion) Badge() Badge {
	switch x {
	case ExtraccionExitoso:
		return Badge{Label: "Exitoso", Variant: BadgeSuccess}
	case ExtraccionErrorCaptcha:
		return Badge{Label: "Error Captcha", Variant: BadgeWarning}
	case ExtraccionErrorSistema:
		return Badge{Label: "Error Sistema", Variant: BadgeError}
	case ExtraccionPendiente:
		return Badge{Label: "Pendiente", Variant: BadgeInfo}
	}
	return unknownBadge(string(x))
}

// StatusBadge resolves a raw status of either lifecycle. The two value sets
// do not overlap.
func StatusBadge(raw string) Badge {
	if b := Extraccion(raw).Badge(); b.Variant != BadgeNeutral {
		return b
	}
	return Estado(raw).Badge()
}

func unknownBadge(raw string) Badge {
	if raw == "" {
		raw = "Desconocido"
	}
	return Badge{Label: raw, Variant: BadgeNeutral}
}

var shortMonths = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// RelativeTime formats t relative to now in Spanish: "Hace 3 días",
// "Hace 2h", "Hace 5m", "Hace poco". Beyond 7 days it falls back to an
// absolute "2 ene, 15:04". A zero t reads "Sin ejecuciones".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "Sin ejecuciones"
	}

	diff := now.Sub(t)
	days := int(diff / (24 * time.Hour))
	hours := int(diff / time.Hour)
	minutes := int(diff / time.Minute)

	switch {
	case days > 7:
		local := t.In(now.Location())
		return fmt.Sprintf("%d %s, %s", local.Day(), shortMonths[local.Month()-1], local.Format("15:04"))
	case days > 0:
		if days == 1 {
			return "Hace 1 día"
		}
		return fmt.Sprintf("Hace %d días", days)
	case hours > 0:
		return fmt.Sprintf("Hace %dh", hours)
	case minutes > 0:
		return fmt.Sprintf("Hace %dm", minutes)
	default:
		return "Hace poco"
	}
}

// FormatDateTime renders "02/01/2006, 15:04" in loc, or "Sin fecha".
func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "Sin fecha"
	}
	return t.In(loc).Format("02/01/2006, 15:04")
}

// FormatDate renders "02/01/2006" in loc, or "Sin actuaciones".
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "Sin actuaciones"
	}
	return t.In(loc).Format("02/01/2006")
}

// Truncate shortens s to limit runes followed by "...". Empty reads "N/A".
func Truncate(s string, limit int) string {
	if s == "" {
		return "N/A"
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// FormatCell renders one value for display according to spec, with dates
// shown in now's location. Values that do not parse as the field type are
// shown as text.
func FormatCell(spec FieldSpec, v any, now time.Time) string {
	switch spec.Display {
	case DisplayBadge:
		return StatusBadge(tablequery.Text(v)).Label
	case DisplayTruncate:
		return Truncate(tablequery.Text(v), truncateLimit)
	}

	switch spec.Type {
	case FieldDate:
		t, ok := tablequery.ParseTime(v)
		if !ok && v != nil {
			return tablequery.Text(v)
		}
		switch spec.Display {
		case DisplayRelative:
			return RelativeTime(t, now)
		case DisplayDateOnly:
			return FormatDate(t, now.Location())
		}
		return FormatDateTime(t, now.Location())
	case FieldBool:
		if b, ok := tablequery.ParseBool(v); ok {
			if b {
				return "Sí"
			}
			return "No"
		}
	case FieldNumeric:
		if f, ok := tablequery.ParseFloat(v); ok {
			if f == math.Trunc(f) && math.Abs(f) < 1e15 {
				return strconv.FormatFloat(f, 'f', 0, 64)
			}
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
	}
	return tablequery.Text(v)
}

// ParseSchedule parses a five-field cron expression evaluated in loc.
func ParseSchedule(expr string, loc *time.Location) (cron.Schedule, error) {
	if loc == nil {
		loc = time.UTC
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	if spec, ok := sched.(*cron.SpecSchedule); ok {
		spec.Location = loc
	}
	return sched, nil
}

// NextRun describes the next scheduled execution of a solicitud.
type NextRun struct {
	Active    bool          `json:"active"`
	At        time.Time     `json:"at,omitempty"`
	In        time.Duration `json:"in,omitempty"`
	Label     string        `json:"label"`
	Countdown string        `json:"countdown"`
}

// NextExecution computes the next run after now. Inactive solicitudes are
// not scheduled.
func NextExecution(sched cron.Schedule, active bool, now time.Time) NextRun {
	if !active {
		return NextRun{Label: "Pausada (no programada)"}
	}

	at := sched.Next(now)
	in := at.Sub(now)
	run := NextRun{Active: true, At: at, In: in, Countdown: Countdown(in)}

	today := now.In(at.Location())
	switch {
	case in < time.Hour:
		run.Label = "Muy pronto"
	case sameDay(at, today):
		run.Label = "Hoy " + at.Format("15:04")
	case sameDay(at, today.AddDate(0, 0, 1)):
		run.Label = "Mañana " + at.Format("15:04")
	default:
		run.Label = fmt.Sprintf("%d %s, %s", at.Day(), shortMonths[at.Month()-1], at.Format("15:04"))
	}
	return run
}

// Countdown renders a duration as "En 3h 25m", "En 12m" or "En más de 24h".
func Countdown(d time.Duration) string {
	if d <= 0 {
		return "Ahora"
	}
	hours := int(d / time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)
	switch {
	case hours >= 24:
		return "En más de 24h"
	case hours > 0:
		return fmt.Sprintf("En %dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("En %dm", minutes)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
