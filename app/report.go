package app

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"hmetrics/domain/stats"
	appErrors "hmetrics/internal/errors"
	"hmetrics/internal/fsutil"
)

// PairwiseReport is a printable summary of one orchestration call
type PairwiseReport struct {
	Title   string             `json:"title"`
	Group   string             `json:"group"`
	Value   string             `json:"value"`
	PAdjust string             `json:"padjust"`
	Alpha   float64            `json:"alpha"`
	Order   []string           `json:"order"`
	Pairs   []stats.PairResult `json:"pairs"`
}

// NewPairwiseReport builds a report from a render result
func NewPairwiseReport(req PlotRequest, res *PlotResult) *PairwiseReport {
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s by %s", req.Value, req.Group)
	}
	return &PairwiseReport{
		Title:   title,
		Group:   req.Group.String(),
		Value:   req.Value.String(),
		PAdjust: req.PAdjust,
		Alpha:   req.Alpha,
		Order:   res.Order,
		Pairs:   res.Pairs,
	}
}

func formatP(p float64) string {
	if math.IsNaN(p) {
		return "n/a"
	}
	return strconv.FormatFloat(p, 'g', 4, 64)
}

// Markdown renders the report as a markdown table
func (r *PairwiseReport) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	fmt.Fprintf(&b, "Groups: %s. Correction: %s, alpha = %g.\n\n", strings.Join(r.Order, ", "), r.PAdjust, r.Alpha)
	if len(r.Pairs) == 0 {
		b.WriteString("No pairwise comparisons.\n")
		return b.String()
	}
	b.WriteString("| A | B | test | n(A) | n(B) | statistic | p | p (corrected) | |\n")
	b.WriteString("|---|---|---|---:|---:|---:|---:|---:|---|\n")
	for _, p := range r.Pairs {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %s | %s | %s | %s |\n",
			p.A, p.B, p.Test, p.NA, p.NB,
			formatP(p.Statistic), formatP(p.PValueRaw), formatP(p.PValueCorrected),
			stats.StarLabel(p.PValueCorrected, stats.DefaultStarThresholds))
	}
	return b.String()
}

// HTML renders the markdown report as a standalone HTML page
func (r *PairwiseReport) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: r.Title,
	})
	return markdown.ToHTML([]byte(r.Markdown()), p, renderer)
}

// WriteCSV writes one row per pair
func (r *PairwiseReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"A", "B", "test", "n_a", "n_b", "statistic", "p_raw", "p_corrected", "significant"}); err != nil {
		return err
	}
	for _, p := range r.Pairs {
		rec := []string{
			p.A, p.B, string(p.Test),
			strconv.Itoa(p.NA), strconv.Itoa(p.NB),
			formatP(p.Statistic), formatP(p.PValueRaw), formatP(p.PValueCorrected),
			strconv.FormatBool(p.Significant),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonPair replaces NaN with null, which encoding/json cannot emit
type jsonPair struct {
	stats.PairKey
	Test            stats.TestType `json:"test"`
	Statistic       *float64       `json:"statistic"`
	PValueRaw       *float64       `json:"p_raw"`
	PValueCorrected *float64       `json:"p_corrected"`
	Significant     bool           `json:"significant"`
	NA              int            `json:"n_a"`
	NB              int            `json:"n_b"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// JSONPairs converts results to a JSON-safe form
func JSONPairs(pairs []stats.PairResult) []jsonPair {
	out := make([]jsonPair, len(pairs))
	for i, p := range pairs {
		out[i] = jsonPair{
			PairKey:         p.PairKey,
			Test:            p.Test,
			Statistic:       finite(p.Statistic),
			PValueRaw:       finite(p.PValueRaw),
			PValueCorrected: finite(p.PValueCorrected),
			Significant:     p.Significant,
			NA:              p.NA,
			NB:              p.NB,
		}
	}
	return out
}

// ReportFormat returns the normalized report format for path
func ReportFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".md", ".markdown", ".txt":
		return "md", nil
	case ".html", ".htm":
		return "html", nil
	case ".csv":
		return "csv", nil
	case ".json":
		return "json", nil
	default:
		return "", appErrors.ConfigInvalid(fmt.Sprintf("unsupported report format %q", ext))
	}
}

// WriteFile writes the report; the format follows the extension (.md,
// .html, .csv, .json). Nothing is written when rendering fails.
func (r *PairwiseReport) WriteFile(path string) error {
	format, err := ReportFormat(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch format {
	case "md":
		buf.WriteString(r.Markdown())
	case "html":
		buf.Write(r.HTML())
	case "csv":
		err = r.WriteCSV(&buf)
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(JSONPairs(r.Pairs))
	}
	if err != nil {
		return appErrors.Wrapf(err, "render report %s", path)
	}

	if err := fsutil.AtomicWrite(path, buf.Bytes(), 0o644); err != nil {
		return appErrors.Wrapf(err, "write report %s", path)
	}
	return nil
}
