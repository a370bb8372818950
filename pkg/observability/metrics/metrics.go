package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

var (
	predictionsModel    atomic.Int64
	predictionsFallback atomic.Int64
	malformedInputs     atomic.Int64
	reloadsLoaded       atomic.Int64
	reloadsFallback     atomic.Int64
	trainingSucceeded   atomic.Int64
	trainingFailed      atomic.Int64
	modelBacked         atomic.Int64
)

// ObservePrediction counts one prediction by source ("model" or "fallback").
func ObservePrediction(source string) {
	if source == "model" {
		predictionsModel.Add(1)
		return
	}
	predictionsFallback.Add(1)
}

func ObserveMalformedInput() {
	malformedInputs.Add(1)
}

// ObserveReload records the outcome of a model load and the resulting mode.
func ObserveReload(loaded bool) {
	if loaded {
		reloadsLoaded.Add(1)
		modelBacked.Store(1)
		return
	}
	reloadsFallback.Add(1)
	modelBacked.Store(0)
}

func ObserveTraining(ok bool) {
	if ok {
		trainingSucceeded.Add(1)
		return
	}
	trainingFailed.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	Write(w)
}

// Write emits every metric in Prometheus text format.
func Write(w io.Writer) {
	fmt.Fprintf(w, "# HELP oralsmart_risk_predictions_total Risk predictions served, by source.\n")
	fmt.Fprintf(w, "# TYPE oralsmart_risk_predictions_total counter\n")
	fmt.Fprintf(w, "oralsmart_risk_predictions_total{source=\"model\"} %d\n", predictionsModel.Load())
	fmt.Fprintf(w, "oralsmart_risk_predictions_total{source=\"fallback\"} %d\n", predictionsFallback.Load())

	fmt.Fprintf(w, "# HELP oralsmart_risk_malformed_inputs_total Prediction requests rejected as malformed.\n")
	fmt.Fprintf(w, "# TYPE oralsmart_risk_malformed_inputs_total counter\n")
	fmt.Fprintf(w, "oralsmart_risk_malformed_inputs_total %d\n", malformedInputs.Load())

	fmt.Fprintf(w, "# HELP oralsmart_model_reloads_total Model artifact loads, by outcome.\n")
	fmt.Fprintf(w, "# TYPE oralsmart_model_reloads_total counter\n")
	fmt.Fprintf(w, "oralsmart_model_reloads_total{outcome=\"loaded\"} %d\n", reloadsLoaded.Load())
	fmt.Fprintf(w, "oralsmart_model_reloads_total{outcome=\"fallback\"} %d\n", reloadsFallback.Load())

	fmt.Fprintf(w, "# HELP oralsmart_model_backed Whether predictions are currently model-backed.\n")
	fmt.Fprintf(w, "# TYPE oralsmart_model_backed gauge\n")
	fmt.Fprintf(w, "oralsmart_model_backed %d\n", modelBacked.Load())

	fmt.Fprintf(w, "# HELP oralsmart_training_runs_total Training runs, by outcome.\n")
	fmt.Fprintf(w, "# TYPE oralsmart_training_runs_total counter\n")
	fmt.Fprintf(w, "oralsmart_training_runs_total{outcome=\"succeeded\"} %d\n", trainingSucceeded.Load())
	fmt.Fprintf(w, "oralsmart_training_runs_total{outcome=\"failed\"} %d\n", trainingFailed.Load())
}
