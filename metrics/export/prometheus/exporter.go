package prometheus

import (
	"bufio"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/taskAuth"
	"github.com/MrEthical07/taskAuth/metrics/export/internaldefs"
)

// Source supplies metric snapshots. *taskAuth.Engine implements it.
type Source interface {
	MetricsSnapshot() taskAuth.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders a Source on demand.
type Exporter struct {
	source Source
}

// New returns an Exporter reading from source.
func New(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves the current metrics.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_ = e.Write(w)
	})
}

// Render returns the current metrics as a string. It is empty when metrics are off.
func (e *Exporter) Render() string {
	var b strings.Builder
	_ = e.Write(&b)
	return b.String()
}

// Write renders the current metrics to w.
func (e *Exporter) Write(w io.Writer) error {
	if e == nil || e.source == nil {
		return nil
	}

	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return nil
	}

	bw := bufio.NewWriter(w)
	for _, def := range internaldefs.Counters {
		writeCounter(bw, def, snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.Histograms {
		if raw, ok := snapshot.Histograms[def.ID]; ok {
			writeHistogram(bw, def, internaldefs.Cumulative(raw))
		}
	}
	writeCounter(bw, internaldefs.AuditDropped, dropped)

	return bw.Flush()
}

func writeHeader(w *bufio.Writer, def internaldefs.Def, kind string) {
	w.WriteString("# HELP " + def.Name + " " + escapeHelp(def.Help) + "\n")
	w.WriteString("# TYPE " + def.Name + " " + kind + "\n")
}

func writeCounter(w *bufio.Writer, def internaldefs.Def, value uint64) {
	writeHeader(w, def, "counter")
	w.WriteString(def.Name + " " + strconv.FormatUint(value, 10) + "\n")
}

func writeHistogram(w *bufio.Writer, def internaldefs.Def, cumulative []uint64) {
	writeHeader(w, def, "histogram")
	for i, bound := range internaldefs.Bounds {
		w.WriteString(def.Name + `_bucket{le="` + bound.Label + `"} ` + strconv.FormatUint(cumulative[i], 10) + "\n")
	}
	w.WriteString(def.Name + "_count " + strconv.FormatUint(cumulative[len(cumulative)-1], 10) + "\n")
	// Engine histograms keep no running sum.
	w.WriteString(def.Name + "_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}
