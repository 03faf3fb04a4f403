// Package export renders a pipeline.Result for people and machines: SVG
// and PNG views of each slice, bitmap layer masks, a DXF drawing with one
// layer per slice, a summary plot and a JSON dump.
//
// Every exporter is read-only over the result.
package export

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/chazu/lamina/pkg/config"
	"github.com/chazu/lamina/pkg/pipeline"
)

// Move is a travel move between two points on the working plane.
type Move struct {
	From, To image.Point
}

// TravelMoves returns the moves the tool makes in s: from the slice's
// inbound cursor to the first entry, then from each exit to the next
// entry.
func TravelMoves(s *pipeline.Slice) []Move {
	if s.Empty() {
		return nil
	}
	moves := make([]Move, 0, len(s.Order))
	at := s.Cursor
	for _, p := range s.Ordered() {
		moves = append(moves, Move{From: at, To: p.Vertices[p.Entry]})
		at = p.Vertices[p.Exit]
	}
	return moves
}

// SliceName is the base file name used for per-slice outputs.
func SliceName(s *pipeline.Slice) string {
	return fmt.Sprintf("slice_%04d", s.Index)
}

// WriteAll writes every output enabled in out under out.Dir and returns
// the paths written.
func WriteAll(res *pipeline.Result, out config.Output) ([]string, error) {
	if err := os.MkdirAll(out.Dir, 0755); err != nil {
		return nil, fmt.Errorf("export: failed to create %s: %w", out.Dir, err)
	}

	var written []string
	perSlice := func(ext string, write func(f *os.File, s *pipeline.Slice) error) error {
		for i := range res.Slices {
			s := &res.Slices[i]
			path := filepath.Join(out.Dir, SliceName(s)+ext)
			if err := writeFile(path, func(f *os.File) error { return write(f, s) }); err != nil {
				return err
			}
			written = append(written, path)
		}
		return nil
	}
	single := func(name string, write func(f *os.File) error) error {
		path := filepath.Join(out.Dir, name)
		if err := writeFile(path, write); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if out.SVG {
		if err := perSlice(".svg", func(f *os.File, s *pipeline.Slice) error {
			return SVG(f, s, res.Dim)
		}); err != nil {
			return written, err
		}
	}
	if out.Preview {
		if err := perSlice(".png", func(f *os.File, s *pipeline.Slice) error {
			return Preview(f, s, res.Dim)
		}); err != nil {
			return written, err
		}
	}
	if out.Mask {
		if err := perSlice("_mask.png", func(f *os.File, s *pipeline.Slice) error {
			return WriteMask(f, s, res.Dim)
		}); err != nil {
			return written, err
		}
	}
	if out.DXF {
		path := filepath.Join(out.Dir, "slices.dxf")
		if err := DXF(path, res); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if out.Summary {
		if err := single("summary.png", func(f *os.File) error { return Summary(f, res) }); err != nil {
			return written, err
		}
	}
	if out.JSON {
		if err := single("result.json", func(f *os.File) error { return JSON(f, res) }); err != nil {
			return written, err
		}
	}
	return written, nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("export: %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
