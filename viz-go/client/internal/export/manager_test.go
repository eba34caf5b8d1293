package export

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/trainmetrics"
	"github.com/RayAKaan/NN-Visualizer/viz-go/train"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ComponentInterfaces(t *testing.T) {
	m := NewManager(trainmetrics.NewAccumulator(trainmetrics.DefaultCap))
	component.TestImplements(t, m, component.Implements{
		Handlers: true,
	})
}

func setup(t *testing.T) (*trainmetrics.Accumulator, *httptest.Server) {
	metrics := trainmetrics.NewAccumulator(trainmetrics.DefaultCap)
	m := NewManager(metrics)

	router := mux.NewRouter()
	m.RegisterHandlers(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return metrics, server
}

func recordBatches(metrics *trainmetrics.Accumulator, losses ...float64) {
	for i, loss := range losses {
		metrics.RecordBatch(train.BatchUpdate{
			Loss:     loss,
			Accuracy: 1 - loss,
			Batch:    i,
		})
	}
}

func Test_Summary(t *testing.T) {
	metrics, _ := setup(t)
	recordBatches(metrics, 1.0, 0.8, 0.6, 0.4)
	metrics.RecordEpoch(train.EpochUpdate{Epoch: 1})

	m := NewManager(metrics)
	summary := m.Summarize()

	assert.Equal(t, 4, summary.Batches)
	assert.Equal(t, 1, summary.Epochs)
	assert.Equal(t, []int{4}, summary.Boundary)

	loss, ok := summary.Series["loss"]
	require.True(t, ok)
	assert.Equal(t, 4, loss.Count)
	assert.InDelta(t, 0.7, loss.Mean, 1e-9)
	assert.InDelta(t, 0.7, loss.Median, 1e-9)
	assert.Equal(t, 0.4, loss.Min)
	assert.Equal(t, 1.0, loss.Max)
	assert.Equal(t, 0.4, loss.Final)

	accuracy, ok := summary.Series["accuracy"]
	require.True(t, ok)
	assert.Equal(t, 0.6, accuracy.Final)
}

func Test_SummaryEmpty(t *testing.T) {
	metrics, _ := setup(t)
	m := NewManager(metrics)

	summary := m.Summarize()
	assert.Equal(t, 0, summary.Batches)
	assert.Empty(t, summary.Series)
}

func Test_SummaryEndpoint(t *testing.T) {
	metrics, server := setup(t)
	recordBatches(metrics, 0.9, 0.5)

	resp, err := http.Get(server.URL + "/clientapi/export/metrics.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 2, summary.Batches)
}

func Test_ChartEndpoint(t *testing.T) {
	metrics, server := setup(t)
	recordBatches(metrics, 1.0, 0.7, 0.5, 0.3, 0.2)

	resp, err := http.Get(server.URL + "/clientapi/export/metrics.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	// PNG magic bytes
	require.True(t, buf.Len() > 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, buf.Bytes()[:4])
}

func Test_ChartNeedsData(t *testing.T) {
	_, server := setup(t)

	resp, err := http.Get(server.URL + "/clientapi/export/metrics.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func Test_SampleDigit(t *testing.T) {
	grid := SampleDigit(0)
	require.Len(t, grid, 784)

	// the zero has a stroked top edge at y=6
	assert.Equal(t, 1.0, grid[6*28+8])
	assert.Equal(t, 1.0, grid[6*28+20])
	// and an empty interior
	assert.Equal(t, 0.0, grid[14*28+14])

	assert.Nil(t, SampleDigit(10))
	assert.Nil(t, SampleDigit(-1))
}

func Test_SampleDigitEndpoint(t *testing.T) {
	_, server := setup(t)

	resp, err := http.Get(server.URL + "/clientapi/sample/7")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Digit  int       `json:"digit"`
		Pixels []float64 `json:"pixels"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 7, body.Digit)
	assert.Len(t, body.Pixels, 784)

	resp2, err := http.Get(server.URL + "/clientapi/sample/12")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
