package core

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// RefreshTimeout is the maximum duration of one scheduled refresh of all views.
var RefreshTimeout = 2 * time.Minute

// Options configures a Service. Zero values take the defaults below.
type Options struct {
	DefaultPageSize int            // default: 10
	MaxPageSize     int            // default: 200
	SnapshotTTL     time.Duration  // <= 0 refetches on every read
	FetchTimeout    time.Duration  // default: 30s
	ExecutionCron   string         // default: "0 19 * * *"
	Location        *time.Location // default: UTC
	Observer        Observer
	States          StateStore // default: in-memory, 10000 keys

	MaxConcurrentExports int           // default: 4
	ExportWait           time.Duration // default: 10s
}

// Service provides the query, export and schedule operations behind the
// dashboard, the JSON API and the CLI.
type Service struct {
	snapshots *SnapshotCache
	observer  Observer
	states    StateStore
	exports   *ExportLimiter

	defaultPageSize int
	maxPageSize     int

	execution cron.Schedule
	loc       *time.Location
	now       func() time.Time
}

// NewService creates a Service reading records from source.
func NewService(source Source, opts Options) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("new service: source is required")
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 200
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	if opts.ExecutionCron == "" {
		opts.ExecutionCron = "0 19 * * *"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.States == nil {
		opts.States = NewMemoryStateStore(10000)
	}

	execution, err := ParseSchedule(opts.ExecutionCron, opts.Location)
	if err != nil {
		return nil, fmt.Errorf("new service: %w", err)
	}

	return &Service{
		snapshots:       NewSnapshotCache(source, opts.SnapshotTTL, opts.FetchTimeout, opts.Observer),
		observer:        opts.Observer,
		states:          opts.States,
		exports:         NewExportLimiter(opts.MaxConcurrentExports, opts.ExportWait),
		defaultPageSize: opts.DefaultPageSize,
		maxPageSize:     opts.MaxPageSize,
		execution:       execution,
		loc:             opts.Location,
		now:             time.Now,
	}, nil
}

// ListViews returns information about all registered views.
func (s *Service) ListViews() []ViewInfo {
	defs := All()
	infos := make([]ViewInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// ListViewsByGroup returns views organized by group.
func (s *Service) ListViewsByGroup() map[string][]ViewInfo {
	result := make(map[string][]ViewInfo)
	for _, group := range Groups() {
		for _, def := range ByGroup(group) {
			result[group] = append(result[group], def.Info)
		}
	}
	return result
}

// View returns a registered view definition.
func (s *Service) View(key string) (ViewDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return ViewDefinition{}, fmt.Errorf("%w: %s", ErrViewNotFound, key)
	}
	return def, nil
}

// Refresh refetches one view's snapshot.
func (s *Service) Refresh(ctx context.Context, key string) error {
	def, err := s.View(key)
	if err != nil {
		return err
	}
	return s.snapshots.Refresh(ctx, def)
}

// RefreshAll refetches every registered view.
func (s *Service) RefreshAll(ctx context.Context) error {
	return s.snapshots.RefreshAll(ctx, All())
}

// SnapshotInfo reports the cached state of a view without fetching.
func (s *Service) SnapshotInfo(key string) (SnapshotInfo, bool) {
	return s.snapshots.Info(key)
}

// States returns the view-state store.
func (s *Service) States() StateStore { return s.states }

// ExportStatus reports how many exports are running.
func (s *Service) ExportStatus() ExportLimiterStatus { return s.exports.Status() }

// WaitForExports blocks until running exports finish or ctx ends.
func (s *Service) WaitForExports(ctx context.Context) error {
	return s.exports.WaitForDrain(ctx)
}

// Location is the timezone dates are displayed in.
func (s *Service) Location() *time.Location { return s.loc }

// Now is the current time in the display timezone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// NextExecution reports when the daily inquiry run fires next.
func (s *Service) NextExecution(active bool) NextRun {
	return NextExecution(s.execution, active, s.Now())
}

// PageSizeFor resolves a requested page size: non-positive uses the view
// default then the service default; anything above the maximum is capped.
func (s *Service) PageSizeFor(def ViewDefinition, requested int) int {
	size := requested
	if size <= 0 {
		size = def.Info.PageSize
	}
	if size <= 0 {
		size = s.defaultPageSize
	}
	return min(size, s.maxPageSize)
}
