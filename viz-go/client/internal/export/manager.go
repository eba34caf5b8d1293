package export

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/trainmetrics"
	"github.com/gorilla/mux"
	"github.com/montanaflynn/stats"
	chart "github.com/wcharczuk/go-chart"
)

// Manager serves exports of the accumulated training metrics: a JSON summary
// with descriptive statistics and a rendered loss/accuracy chart. It also
// serves pre-drawn sample digits for the prediction surface.
type Manager struct {
	metrics *trainmetrics.Accumulator
}

// NewManager returns a new export component over the given accumulator.
func NewManager(metrics *trainmetrics.Accumulator) *Manager {
	return &Manager{metrics: metrics}
}

// Name implements component.Core
func (m *Manager) Name() string {
	return "export"
}

// RegisterHandlers implements component.Handlers
func (m *Manager) RegisterHandlers(router *mux.Router) {
	router.HandleFunc("/clientapi/export/metrics.json", m.handleSummary).Methods("GET")
	router.HandleFunc("/clientapi/export/metrics.png", m.handleChart).Methods("GET")
	router.HandleFunc("/clientapi/sample/{digit}", m.handleSampleDigit).Methods("GET")
}

// SeriesSummary is the descriptive statistics of one metric series.
type SeriesSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P90    float64 `json:"p90"`
	Final  float64 `json:"final"`
}

// Summary aggregates the recorded series into per-metric statistics.
type Summary struct {
	Epochs   int                      `json:"epochs"`
	Batches  int                      `json:"batches"`
	Series   map[string]SeriesSummary `json:"series"`
	Boundary []int                    `json:"epochBoundaries"`
}

func summarize(values []float64) (SeriesSummary, bool) {
	if len(values) == 0 {
		return SeriesSummary{}, false
	}
	data := stats.Float64Data(values)
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	stddev, _ := stats.StandardDeviation(data)
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)
	p90, _ := stats.Percentile(data, 90)
	return SeriesSummary{
		Count:  len(values),
		Mean:   mean,
		Median: median,
		StdDev: stddev,
		Min:    min,
		Max:    max,
		P90:    p90,
		Final:  values[len(values)-1],
	}, true
}

// Summarize builds the JSON export payload.
func (m *Manager) Summarize() Summary {
	series := m.metrics.Series()
	summary := Summary{
		Epochs:   len(series.EpochBoundaries),
		Batches:  len(series.Losses),
		Series:   map[string]SeriesSummary{},
		Boundary: series.EpochBoundaries,
	}
	for name, values := range map[string][]float64{
		"loss":          series.Losses,
		"accuracy":      series.Accuracies,
		"gradient_norm": series.GradientNorms,
		"learning_rate": series.LearningRates,
		"val_loss":      series.ValLosses,
		"val_accuracy":  series.ValAccuracies,
	} {
		if s, ok := summarize(values); ok {
			summary.Series[name] = s
		}
	}
	return summary
}

func (m *Manager) handleSummary(w http.ResponseWriter, r *http.Request) {
	buf, err := json.Marshal(m.Summarize())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}

func (m *Manager) handleChart(w http.ResponseWriter, r *http.Request) {
	series := m.metrics.Series()
	if len(series.Losses) < 2 {
		http.Error(w, "not enough data to chart", http.StatusUnprocessableEntity)
		return
	}

	xs := make([]float64, len(series.Losses))
	for i := range xs {
		xs[i] = float64(i)
	}

	chartSeries := []chart.Series{
		chart.ContinuousSeries{
			Name:    "loss",
			XValues: xs,
			YValues: series.Losses,
			Style: chart.Style{
				Show:        true,
				StrokeColor: chart.ColorRed,
			},
		},
	}
	if len(series.Accuracies) == len(series.Losses) {
		chartSeries = append(chartSeries, chart.ContinuousSeries{
			Name:    "accuracy",
			XValues: xs,
			YValues: series.Accuracies,
			Style: chart.Style{
				Show:        true,
				StrokeColor: chart.ColorBlue,
			},
		})
	}
	if len(series.ValLosses) == len(series.Losses) {
		chartSeries = append(chartSeries, chart.ContinuousSeries{
			Name:    "val loss",
			XValues: xs,
			YValues: series.ValLosses,
			Style: chart.Style{
				Show:            true,
				StrokeColor:     chart.ColorRed,
				StrokeDashArray: []float64{5.0, 5.0},
			},
		})
	}

	graph := chart.Chart{
		Title:      "Training Metrics",
		TitleStyle: chart.StyleShow(),
		XAxis: chart.XAxis{
			Name:      "Batch",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		YAxis: chart.YAxis{
			Name:      "Value",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		Series: chartSeries,
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	w.Header().Set("Content-Type", "image/png")
	if err := graph.Render(chart.PNG, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (m *Manager) handleSampleDigit(w http.ResponseWriter, r *http.Request) {
	digit, err := strconv.Atoi(mux.Vars(r)["digit"])
	if err != nil {
		http.Error(w, "digit must be a number", http.StatusBadRequest)
		return
	}
	grid := SampleDigit(digit)
	if grid == nil {
		http.Error(w, "digit must be 0..9", http.StatusNotFound)
		return
	}
	buf, err := json.Marshal(map[string]interface{}{
		"digit":  digit,
		"pixels": grid,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}
