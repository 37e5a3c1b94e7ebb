package workspace_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gosurface/pkg/pipeline"
	"github.com/sandrolain/gosurface/pkg/types"
	"github.com/sandrolain/gosurface/pkg/workspace"
)

type report struct {
	id      string
	message *string
}

type recordingSink struct {
	mu      sync.Mutex
	reports []report
}

func (s *recordingSink) ReportError(itemID string, message *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report{itemID, message})
}

func (s *recordingSink) all() []report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]report(nil), s.reports...)
}

func newWorkspace(sink workspace.ErrorSink) *workspace.Workspace {
	return workspace.New(pipeline.New(pipeline.WithResolution(4)), workspace.WithErrorSink(sink))
}

func TestAddAssignsColorsAndIDs(t *testing.T) {
	ws := newWorkspace(nil)

	seen := map[uuid.UUID]bool{}
	for k := 0; k < len(workspace.Palette)+2; k++ {
		item := ws.Add("x", types.Cartesian)
		assert.Equal(t, workspace.Palette[k%len(workspace.Palette)], item.Color)
		assert.True(t, item.Visible)
		assert.False(t, seen[item.ID])
		seen[item.ID] = true
	}
	assert.Len(t, ws.Items(), len(workspace.Palette)+2)
}

func TestDefaults(t *testing.T) {
	ws := newWorkspace(nil)
	ws.Add("x", types.Cartesian)

	items := ws.Defaults()
	require.Len(t, items, 2)
	assert.Equal(t, items, ws.Items())

	assert.Equal(t, "sin(sqrt(x^2 + y^2)) + 0.5 * cos(y)", items[0].Expression)
	assert.Equal(t, types.Cartesian, items[0].System)
	assert.Equal(t, "#c74440", items[0].Color)
	assert.Equal(t, "0.5 * r * cos(3 * θ)", items[1].Expression)
	assert.Equal(t, types.Cylindrical, items[1].System)
	assert.Equal(t, "#388c46", items[1].Color)

	require.NoError(t, ws.RefreshAll(context.Background()))
	for _, item := range ws.Items() {
		assert.Empty(t, item.Error)
		assert.NotNil(t, item.Mesh)
	}
}

func TestUpdateVisibleRemove(t *testing.T) {
	ws := newWorkspace(nil)
	item := ws.Add("x", types.Cartesian)

	require.NoError(t, ws.Update(item.ID, "r", types.Cylindrical))
	require.NoError(t, ws.SetVisible(item.ID, false))

	got, err := ws.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "r", got.Expression)
	assert.Equal(t, types.Cylindrical, got.System)
	assert.False(t, got.Visible)

	require.NoError(t, ws.Remove(item.ID))
	assert.Empty(t, ws.Items())

	missing := uuid.New()
	assert.ErrorIs(t, ws.Remove(missing), workspace.ErrNotFound)
	assert.ErrorIs(t, ws.Update(missing, "x", types.Cartesian), workspace.ErrNotFound)
	assert.ErrorIs(t, ws.SetVisible(missing, true), workspace.ErrNotFound)
	_, err = ws.Get(missing)
	assert.ErrorIs(t, err, workspace.ErrNotFound)
	_, err = ws.Refresh(context.Background(), missing)
	assert.ErrorIs(t, err, workspace.ErrNotFound)
}

func TestRefreshReportsErrorTransitions(t *testing.T) {
	sink := &recordingSink{}
	ws := newWorkspace(sink)
	item := ws.Add("x+", types.Cartesian)
	ctx := context.Background()

	res, err := ws.Refresh(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Err)

	// Same outcome again: no new report.
	_, err = ws.Refresh(ctx, item.ID)
	require.NoError(t, err)

	got, err := ws.Get(item.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Error)
	assert.Nil(t, got.Mesh)

	require.NoError(t, ws.Update(item.ID, "x + 1", types.Cartesian))
	res, err = ws.Refresh(ctx, item.ID)
	require.NoError(t, err)
	require.True(t, res.OK())

	_, err = ws.Refresh(ctx, item.ID)
	require.NoError(t, err)

	reports := sink.all()
	require.Len(t, reports, 2)
	assert.Equal(t, item.ID.String(), reports[0].id)
	require.NotNil(t, reports[0].message)
	assert.Contains(t, *reports[0].message, string(types.ErrSyntaxError))
	assert.Nil(t, reports[1].message)

	got, err = ws.Get(item.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Error)
	assert.NotNil(t, got.Mesh)
}

func TestRefreshValidExpressionReportsNothing(t *testing.T) {
	sink := &recordingSink{}
	ws := newWorkspace(sink)
	item := ws.Add("x * y", types.Cartesian)

	_, err := ws.Refresh(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Empty(t, sink.all())
}

func TestRefreshAllPropagatesCancellation(t *testing.T) {
	ws := newWorkspace(nil)
	ws.Add("x", types.Cartesian)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ws.RefreshAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	item := ws.Items()[0]
	assert.Empty(t, item.Error)
	assert.Nil(t, item.Mesh)
}

func TestErrorSinkFunc(t *testing.T) {
	var got []string
	sink := workspace.ErrorSinkFunc(func(id string, message *string) {
		got = append(got, id)
	})
	sink.ReportError("a", nil)
	assert.Equal(t, []string{"a"}, got)
}
