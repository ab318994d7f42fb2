package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// viridis color ramp for the height dimension.
var chartColorRamp = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// mapChart renders a top-down scatter of object centers (world X against Z,
// colored by Y) so a map can be eyeballed without a frontend. Debug-only
// endpoint.
func (s *Server) mapChart(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "query parameter session is required")
		return
	}
	m, ok, err := s.cache.Get(r.Context(), id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("session lookup: %v", err))
		return
	}
	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown session %q", id))
		return
	}

	records := m.Records()
	data := make([]opts.ScatterData, 0, len(records))
	maxAbs := 0.0
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, rec := range records {
		c := rec.Center
		if math.Abs(c.X) > maxAbs {
			maxAbs = math.Abs(c.X)
		}
		if math.Abs(c.Z) > maxAbs {
			maxAbs = math.Abs(c.Z)
		}
		if c.Y < minY {
			minY = c.Y
		}
		if c.Y > maxY {
			maxY = c.Y
		}
		data = append(data, opts.ScatterData{
			Name:  rec.Key,
			Value: []interface{}{c.X, c.Z, c.Y},
		})
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if len(records) == 0 {
		minY, maxY = 0, 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Object Map", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Object Map (top-down)", Subtitle: fmt.Sprintf("session=%s objects=%d", id, len(records))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Z (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minY),
			Max:        float32(maxY),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: chartColorRamp},
		}),
	)

	scatter.AddSeries("objects", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
