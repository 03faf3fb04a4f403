package export

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/lamina/pkg/config"
	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/chazu/lamina/pkg/planner"
	"github.com/chazu/lamina/pkg/polygon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 60

func square(x, y, s int) polygon.Polygon {
	return polygon.New([]image.Point{{x, y}, {x + s, y}, {x + s, y + s}, {x, y + s}})
}

// testResult builds three slices: two separate squares, a square with a
// square hole, and an empty slice.
func testResult(t *testing.T) *pipeline.Result {
	t.Helper()
	res := &pipeline.Result{
		Dim:       testDim,
		Thickness: 1,
		Slices: []pipeline.Slice{
			{Index: 0, Z: 0, Polygons: []polygon.Polygon{square(10, 10, 10), square(35, 10, 10)}},
			{Index: 1, Z: 1, Polygons: []polygon.Polygon{square(10, 10, 30), square(20, 20, 10)}},
			{Index: 2, Z: 2},
		},
	}
	cursor := image.Point{}
	for i := range res.Slices {
		s := &res.Slices[i]
		s.Cursor = cursor
		if s.Empty() {
			continue
		}
		s.Bounds, _ = polygon.Bounds(s.Polygons)
		s.Order, cursor = planner.Plan(s.Polygons, cursor)
		s.RawVertices = 2 * polygon.VertexCount(s.Polygons)
		res.Stats.RawVertices += s.RawVertices
		res.Stats.Polygons += len(s.Polygons)
		res.Stats.Vertices += polygon.VertexCount(s.Polygons)
	}
	res.Stats.Slices = len(res.Slices)
	res.Cursor = cursor
	return res
}

func TestTravelMoves(t *testing.T) {
	t.Parallel()
	res := testResult(t)

	s := &res.Slices[0]
	moves := TravelMoves(s)
	require.Len(t, moves, 2)
	first := s.Polygons[s.Order[0]]
	assert.Equal(t, s.Cursor, moves[0].From)
	assert.Equal(t, first.Vertices[first.Entry], moves[0].To)
	assert.Equal(t, first.Vertices[first.Exit], moves[1].From)

	assert.Nil(t, TravelMoves(&res.Slices[2]))
}

func TestSVG(t *testing.T) {
	t.Parallel()
	res := testResult(t)

	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, &res.Slices[0], testDim))
	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Contains(t, out, "slice 0")
	assert.Equal(t, 2, strings.Count(out, "<polygon"))
	assert.Equal(t, 2, strings.Count(out, "<circle"))
	assert.Equal(t, 2, strings.Count(out, "<line"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "</svg>"))

	open := res.Slices[0]
	open.Polygons = []polygon.Polygon{square(10, 10, 10)}
	open.Polygons[0].Open = true
	open.Order = []int{0}
	buf.Reset()
	require.NoError(t, SVG(&buf, &open, testDim))
	assert.Equal(t, 1, strings.Count(buf.String(), "<polyline"))
	assert.Equal(t, 0, strings.Count(buf.String(), "<polygon"))
}

func TestMask(t *testing.T) {
	t.Parallel()
	res := testResult(t)

	tests := []struct {
		name  string
		slice int
		at    image.Point
		want  uint8
	}{
		{"inside first square", 0, image.Point{15, 15}, 0xff},
		{"inside second square", 0, image.Point{40, 15}, 0xff},
		{"between squares", 0, image.Point{27, 15}, 0},
		{"ring", 1, image.Point{15, 15}, 0xff},
		{"hole", 1, image.Point{25, 25}, 0},
		{"outside", 1, image.Point{50, 50}, 0},
		{"empty slice", 2, image.Point{15, 15}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Mask(&res.Slices[tt.slice], testDim)
			assert.Equal(t, image.Rect(0, 0, testDim, testDim), m.Bounds())
			assert.Equal(t, tt.want, m.GrayAt(tt.at.X, tt.at.Y).Y)
		})
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()
	res := testResult(t)

	var buf bytes.Buffer
	require.NoError(t, Preview(&buf, &res.Slices[0], testDim))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, testDim, testDim), img.Bounds())

	// A point on the top edge of the first square is stroked.
	r, _, _, _ := img.At(15, 10).RGBA()
	assert.Less(t, r, uint32(0x8000))
	// Far from every contour and move the canvas stays white.
	r, g, b, _ := img.At(5, 55).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
}

func TestDXF(t *testing.T) {
	t.Parallel()
	res := testResult(t)

	path := filepath.Join(t.TempDir(), "slices.dxf")
	require.NoError(t, DXF(path, res))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "LWPOLYLINE")
	assert.Contains(t, out, "slice_0000")
	assert.Contains(t, out, "slice_0001")
	assert.NotContains(t, out, "slice_0002")
}

func TestSummary(t *testing.T) {
	t.Parallel()
	res := testResult(t)

	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, res))
	_, err := png.Decode(&buf)
	assert.NoError(t, err)
}

func TestJSON(t *testing.T) {
	t.Parallel()
	res := testResult(t)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, res))
	assert.Contains(t, buf.String(), `"open_polygons"`)

	var got ResultJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, testDim, got.Dim)
	require.Len(t, got.Slices, 3)
	assert.Equal(t, 4, got.Stats.Polygons)
	assert.Equal(t, 32, got.Stats.RawVertices)
	assert.Equal(t, 16, got.Slices[0].RawVerts)

	s0 := got.Slices[0]
	require.Len(t, s0.Polygons, 2)
	for k, id := range s0.Order {
		assert.Equal(t, id, s0.Polygons[k].ID)
		assert.Len(t, s0.Polygons[k].Vertices, 4)
	}
	assert.Equal(t, [4]int{10, 10, 45, 20}, s0.Bounds)
	assert.Equal(t, [2]int{res.Slices[1].Cursor.X, res.Slices[1].Cursor.Y}, got.Slices[1].Cursor)

	assert.Empty(t, got.Slices[2].Polygons)
	assert.Equal(t, [2]int{res.Cursor.X, res.Cursor.Y}, got.Cursor)
}

func TestWriteAll(t *testing.T) {
	t.Parallel()
	res := testResult(t)

	dir := filepath.Join(t.TempDir(), "out")
	out := config.Output{Dir: dir, SVG: true, DXF: true, Preview: true, Mask: true, Summary: true, JSON: true}
	written, err := WriteAll(res, out)
	require.NoError(t, err)
	assert.Len(t, written, 3*3+3)
	for _, p := range written {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), p)
	}
	assert.FileExists(t, filepath.Join(dir, "slice_0001_mask.png"))
	assert.FileExists(t, filepath.Join(dir, "result.json"))

	written, err = WriteAll(res, config.Output{Dir: dir, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "result.json")}, written)
}
