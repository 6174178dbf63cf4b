package replay

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/geozone/internal/config"
	"github.com/udisondev/geozone/internal/engine"
	"github.com/udisondev/geozone/internal/geom"
	"github.com/udisondev/geozone/internal/testutil"
	"github.com/udisondev/geozone/internal/tracker"
)

const trace = `entity,x,y,unix_ms
# square path
e1,-5,5,1000
e2,50,50,1000
e1,5,5,1500
e1,20,20,2000
e2,50,50,2500,leave
`

var wall = time.Unix(1_700_000_000, 0)

func ids(samples []engine.Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.EntityID
	}
	return out
}

func TestSourceReleasesByTraceTime(t *testing.T) {
	src := NewSource(strings.NewReader(trace), Options{})
	ctx := context.Background()

	got, err := src.Poll(ctx, wall)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, ids(got))
	assert.Equal(t, geom.Point{X: -5, Y: 5}, geom.Point{X: got[0].X, Y: got[0].Y})
	assert.Equal(t, wall, got[0].At)

	got, err = src.Poll(ctx, wall.Add(400*time.Millisecond))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = src.Poll(ctx, wall.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e1"}, ids(got))
	assert.Equal(t, wall.Add(500*time.Millisecond), got[0].At)

	got, err = src.Poll(ctx, wall.Add(2*time.Second))
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, got, 1)
	assert.True(t, got[0].Gone)
}

func TestSourceSpeed(t *testing.T) {
	src := NewSource(strings.NewReader(trace), Options{Speed: 2})
	ctx := context.Background()

	_, err := src.Poll(ctx, wall)
	require.NoError(t, err)

	got, err := src.Poll(ctx, wall.Add(500*time.Millisecond))
	require.NoError(t, err)
	assert.Len(t, got, 2, "1s of trace time passes in 500ms")
}

func TestSourceAllAtOnce(t *testing.T) {
	src := NewSource(strings.NewReader(trace), Options{Speed: -1})

	got, err := src.Poll(context.Background(), wall)
	require.ErrorIs(t, err, io.EOF)
	assert.Len(t, got, 5)
}

func TestSourceErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"too few fields", "e1,1,2\n"},
		{"bad x", "e1,abc,2,1000\n"},
		{"bad y", "e1,1,abc,1000\n"},
		{"bad time", "e1,1,2,soon\n"},
		{"empty id", ",1,2,1000\n"},
		{"unknown flag", "e1,1,2,1000,vanish\n"},
		{"backwards", "e1,1,2,2000\ne1,1,2,1000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewSource(strings.NewReader(tt.body), Options{Speed: -1})
			_, err := src.Poll(context.Background(), wall)
			require.Error(t, err)
			assert.NotErrorIs(t, err, io.EOF)
		})
	}
}

func TestSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource(strings.NewReader(trace), Options{}).Poll(ctx, wall)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	require.NoError(t, os.WriteFile(path, []byte(trace), 0o644))

	src, err := Open(path, Options{Speed: -1})
	require.NoError(t, err)
	defer src.Close()

	got, err := src.Poll(context.Background(), wall)
	require.ErrorIs(t, err, io.EOF)
	assert.Len(t, got, 5)

	_, err = Open(filepath.Join(t.TempDir(), "absent.csv"), Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReplayThroughEngine(t *testing.T) {
	e, err := engine.New(config.DefaultEngine(), testutil.DiscardLogger())
	require.NoError(t, err)
	require.NoError(t, e.AddZone("square", testutil.Square(10), nil))

	src := NewSource(strings.NewReader(trace), Options{})

	var got []string
	handler := func(events []tracker.Event) {
		for _, ev := range events {
			got = append(got, ev.EntityID+":"+ev.Kind.String()+":"+ev.ZoneID)
		}
	}

	steps := []time.Duration{0, 500 * time.Millisecond, time.Second, 1500 * time.Millisecond}
	var done bool
	for _, d := range steps {
		done, err = e.Tick(context.Background(), src, wall.Add(d), handler)
		require.NoError(t, err)
	}

	assert.True(t, done)
	assert.Equal(t, []string{"e1:enter:square", "e1:exit:square"}, got)
	assert.Equal(t, 1, e.Tracked(), "e2 left the trace")
}

func TestReplayBurstUsesLatestPosition(t *testing.T) {
	e, err := engine.New(config.DefaultEngine(), testutil.DiscardLogger())
	require.NoError(t, err)
	require.NoError(t, e.AddZone("square", testutil.Square(10), nil))

	// Все строки трассы приходят одним тиком: учитывается только последняя позиция e1.
	src := NewSource(strings.NewReader("e1,-5,5,1000\ne1,5,5,1100\n"), Options{Speed: -1})

	var got []tracker.Event
	_, err = e.Tick(context.Background(), src, wall, func(events []tracker.Event) { got = append(got, events...) })
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tracker.Enter, got[0].Kind)
	assert.Equal(t, []string{"square"}, e.Inside("e1"))
}
