// Package workspace holds the list of surfaces a user is editing and keeps
// each item's error state in step with the pipeline.
//
// The workspace does not render anything. It owns the item list, assigns
// identifiers and palette colors, recomputes items through the pipeline and
// reports error transitions to an ErrorSink.
package workspace

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sandrolain/gosurface/pkg/pipeline"
	"github.com/sandrolain/gosurface/pkg/types"
)

// Palette lists the item colors, assigned in order by item count.
var Palette = []string{
	"#c74440",
	"#2d70b3",
	"#388c46",
	"#6042a6",
	"#fa7e19",
	"#000000",
}

var (
	// ErrNotFound is returned for an unknown item ID.
	ErrNotFound = errors.New("item not found")
	// ErrSuperseded is returned by Refresh when the item changed or was
	// refreshed again before the computation finished.
	ErrSuperseded = errors.New("refresh superseded")
)

// Item is one surface of the workspace.
type Item struct {
	ID         uuid.UUID              `json:"id"`
	Expression string                 `json:"expression"`
	System     types.CoordinateSystem `json:"type"`
	Visible    bool                   `json:"visible"`
	Color      string                 `json:"color"`
	// Error is the message of the last failed compile, empty when the
	// expression compiles.
	Error string `json:"error,omitempty"`
	// Mesh is the last computed surface, nil on error or before the first
	// refresh.
	Mesh *types.Mesh `json:"-"`
}

// ErrorSink is notified when an item's error state changes. A nil message
// clears the error. Repeating the same outcome does not notify again.
type ErrorSink interface {
	ReportError(itemID string, message *string)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(itemID string, message *string)

// ReportError calls f.
func (f ErrorSinkFunc) ReportError(itemID string, message *string) {
	f(itemID, message)
}

// Workspace is an ordered list of items. It is safe for concurrent use.
type Workspace struct {
	mu       sync.RWMutex
	items    []*Item
	trackers map[uuid.UUID]*pipeline.Tracker

	pipeline *pipeline.Pipeline
	sink     ErrorSink
	logger   *slog.Logger
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithErrorSink sets the receiver of error transitions.
func WithErrorSink(sink ErrorSink) Option {
	return func(w *Workspace) {
		w.sink = sink
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// New creates an empty workspace computing surfaces with p.
func New(p *pipeline.Pipeline, opts ...Option) *Workspace {
	w := &Workspace{
		trackers: make(map[uuid.UUID]*pipeline.Tracker),
		pipeline: p,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.sink == nil {
		w.sink = ErrorSinkFunc(func(string, *string) {})
	}
	return w
}

// Add appends a visible item and returns a copy of it. The color is taken
// from Palette by the current item count.
func (w *Workspace) Add(expression string, system types.CoordinateSystem) Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.addLocked(expression, system, Palette[len(w.items)%len(Palette)])
}

func (w *Workspace) addLocked(expression string, system types.CoordinateSystem, color string) *Item {
	item := &Item{
		ID:         uuid.New(),
		Expression: expression,
		System:     system,
		Visible:    true,
		Color:      color,
	}
	w.items = append(w.items, item)
	w.trackers[item.ID] = pipeline.NewTracker(w.pipeline)

	w.logger.Debug("item added", "id", item.ID, "expression", expression, "system", system.String())
	return item
}

// Defaults replaces the workspace contents with the two starter surfaces and
// returns them.
func (w *Workspace) Defaults() []Item {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, tr := range w.trackers {
		tr.Stop()
	}
	w.items = nil
	w.trackers = make(map[uuid.UUID]*pipeline.Tracker)

	first := w.addLocked("sin(sqrt(x^2 + y^2)) + 0.5 * cos(y)", types.Cartesian, Palette[0])
	second := w.addLocked("0.5 * r * cos(3 * θ)", types.Cylindrical, Palette[2])
	return []Item{*first, *second}
}

// Update changes the expression and coordinate system of an item. The
// previous mesh stays until the next Refresh.
func (w *Workspace) Update(id uuid.UUID, expression string, system types.CoordinateSystem) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	item, err := w.findLocked(id)
	if err != nil {
		return err
	}
	item.Expression = expression
	item.System = system
	return nil
}

// SetVisible shows or hides an item.
func (w *Workspace) SetVisible(id uuid.UUID, visible bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	item, err := w.findLocked(id)
	if err != nil {
		return err
	}
	item.Visible = visible
	return nil
}

// Remove deletes an item and cancels its in-flight refresh.
func (w *Workspace) Remove(id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for k, item := range w.items {
		if item.ID == id {
			w.items = append(w.items[:k], w.items[k+1:]...)
			w.trackers[id].Stop()
			delete(w.trackers, id)
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "remove %s", id)
}

// Get returns a copy of one item.
func (w *Workspace) Get(id uuid.UUID) (Item, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	item, err := w.findLocked(id)
	if err != nil {
		return Item{}, err
	}
	return *item, nil
}

// Items returns copies of all items in order.
func (w *Workspace) Items() []Item {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Item, len(w.items))
	for k, item := range w.items {
		out[k] = *item
	}
	return out
}

// Refresh recomputes one item. A newer Refresh or an Update of the same item
// while the computation runs makes this call return ErrSuperseded without
// touching the item. Cancellation of ctx is returned as an error and leaves
// the item unchanged as well.
func (w *Workspace) Refresh(ctx context.Context, id uuid.UUID) (pipeline.Result, error) {
	w.mu.RLock()
	item, err := w.findLocked(id)
	if err != nil {
		w.mu.RUnlock()
		return pipeline.Result{}, err
	}
	req := types.SurfaceRequest{Expression: item.Expression, System: item.System}
	tracker := w.trackers[id]
	w.mu.RUnlock()

	res, ok := tracker.Recompute(ctx, req)
	if !ok {
		return pipeline.Result{}, ErrSuperseded
	}

	if res.Err != nil && res.Err.Code == types.ErrCanceled {
		return pipeline.Result{}, res.Err
	}

	var message string
	if res.Err != nil {
		message = res.Err.Error()
	}

	w.mu.Lock()
	item, err = w.findLocked(id)
	if err != nil {
		w.mu.Unlock()
		return pipeline.Result{}, err
	}
	if item.Expression != req.Expression || item.System != req.System {
		w.mu.Unlock()
		return pipeline.Result{}, ErrSuperseded
	}
	changed := item.Error != message
	item.Error = message
	item.Mesh = res.Mesh
	w.mu.Unlock()

	if changed {
		if message == "" {
			w.sink.ReportError(id.String(), nil)
		} else {
			w.sink.ReportError(id.String(), &message)
		}
	}
	return res, nil
}

// RefreshAll refreshes every item in order and returns the first error other
// than ErrSuperseded.
func (w *Workspace) RefreshAll(ctx context.Context) error {
	for _, item := range w.Items() {
		if _, err := w.Refresh(ctx, item.ID); err != nil && !errors.Is(err, ErrSuperseded) {
			return errors.Wrapf(err, "refresh %s", item.ID)
		}
	}
	return nil
}

func (w *Workspace) findLocked(id uuid.UUID) (*Item, error) {
	for _, item := range w.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "item %s", id)
}
