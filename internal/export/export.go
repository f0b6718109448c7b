// Package export writes analysis results for downstream consumers: a CSV edge
// table, a JSON summary and a JSON node/edge document for graph renderers.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/graph"
)

// EdgeColumns is the CSV header row.
var EdgeColumns = []string{
	"source", "target", "count", "total_value", "human_value",
	"first_seen", "last_seen", "weight", "label",
}

// Paths lists the files written for one target.
type Paths struct {
	Edges   string `json:"edges"`
	Summary string `json:"summary"`
	Graph   string `json:"graph"`
}

type Writer struct {
	dir string
	log *slog.Logger
}

func NewWriter(dir string) *Writer {
	return &Writer{
		dir: dir,
		log: slog.Default().With("component", "export"),
	}
}

// Write stores edges_<target>.csv, summary_<target>.json and
// graph_<target>.json under the output directory.
func (w *Writer) Write(target string, g *graph.Graph, s graph.Summary) (Paths, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}

	name := fileSafe(domain.CanonicalAddress(target))
	paths := Paths{
		Edges:   filepath.Join(w.dir, "edges_"+name+".csv"),
		Summary: filepath.Join(w.dir, "summary_"+name+".json"),
		Graph:   filepath.Join(w.dir, "graph_"+name+".json"),
	}

	if err := writeFile(paths.Edges, func(out io.Writer) error {
		return WriteEdgesCSV(out, g.EdgeRows())
	}); err != nil {
		return Paths{}, err
	}
	if err := writeFile(paths.Summary, func(out io.Writer) error {
		return WriteSummaryJSON(out, s)
	}); err != nil {
		return Paths{}, err
	}
	if err := writeFile(paths.Graph, func(out io.Writer) error {
		return WriteGraphJSON(out, g)
	}); err != nil {
		return Paths{}, err
	}

	w.log.Info("wrote outputs", "target", target, "edges", paths.Edges, "graph", paths.Graph)
	return paths, nil
}

func writeFile(path string, encode func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteEdgesCSV writes the header and one line per row.
func WriteEdgesCSV(out io.Writer, rows []graph.EdgeRow) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(EdgeColumns); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Source,
			r.Target,
			strconv.Itoa(r.Count),
			r.TotalValue,
			formatFloat(r.HumanValue),
			r.FirstSeen,
			r.LastSeen,
			formatFloat(r.Weight),
			r.Label,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteSummaryJSON(out io.Writer, s graph.Summary) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// fileSafe keeps letters and digits and replaces everything else.
func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}
