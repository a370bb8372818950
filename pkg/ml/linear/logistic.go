package linear

import (
	"context"
	"math"
)

type Options struct {
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
	L2           float64 `json:"l2"`
}

// Weights of a multinomial logistic regression, one row per class.
type Weights struct {
	Bias         []float64   `json:"bias"`
	Coefficients [][]float64 `json:"coefficients"`
}

type Metrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// Classes is the number of output classes.
func (w Weights) Classes() int {
	return len(w.Bias)
}

// Features is the expected input width.
func (w Weights) Features() int {
	if len(w.Coefficients) == 0 {
		return 0
	}
	return len(w.Coefficients[0])
}

func (o Options) withDefaults() Options {
	if o.Epochs <= 0 {
		o.Epochs = 300
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.1
	}
	if o.L2 < 0 {
		o.L2 = 0
	}
	return o
}

// TrainSoftmax fits a multinomial logistic regression with full-batch
// gradient descent. Weights start at zero so training is deterministic.
// Cancellation is checked once per epoch.
func TrainSoftmax(ctx context.Context, samples [][]float64, labels []int, classes int, opts Options) (Weights, Metrics, error) {
	opts = opts.withDefaults()
	n := len(samples)
	if n == 0 || classes <= 0 {
		return Weights{}, Metrics{}, nil
	}
	featureCount := len(samples[0])
	weights := Weights{
		Bias:         make([]float64, classes),
		Coefficients: make([][]float64, classes),
	}
	for k := range weights.Coefficients {
		weights.Coefficients[k] = make([]float64, featureCount)
	}

	grad := make([][]float64, classes)
	for k := range grad {
		grad[k] = make([]float64, featureCount)
	}
	biasGrad := make([]float64, classes)
	probs := make([]float64, classes)

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Weights{}, Metrics{}, err
		}
		for k := 0; k < classes; k++ {
			biasGrad[k] = 0
			for j := range grad[k] {
				grad[k][j] = 0
			}
		}
		for i, sample := range samples {
			weights.probabilities(sample, probs)
			for k := 0; k < classes; k++ {
				target := 0.0
				if labels[i] == k {
					target = 1
				}
				err := probs[k] - target
				for j := 0; j < featureCount; j++ {
					grad[k][j] += err * sample[j]
				}
				biasGrad[k] += err
			}
		}
		for k := 0; k < classes; k++ {
			for j := 0; j < featureCount; j++ {
				g := grad[k][j]/float64(n) + opts.L2*weights.Coefficients[k][j]
				weights.Coefficients[k][j] -= opts.LearningRate * g
			}
			weights.Bias[k] -= opts.LearningRate * biasGrad[k] / float64(n)
		}
	}

	return weights, Evaluate(weights, samples, labels), nil
}

// PredictProba returns the class probabilities for one sample.
func PredictProba(weights Weights, sample []float64) []float64 {
	out := make([]float64, weights.Classes())
	weights.probabilities(sample, out)
	return out
}

// Predict returns the most probable class index.
func Predict(weights Weights, sample []float64) int {
	return argmax(PredictProba(weights, sample))
}

// Importance is the mean absolute coefficient of each feature across classes.
// It is comparable between features only when inputs are standardized.
func Importance(weights Weights) []float64 {
	out := make([]float64, weights.Features())
	for _, row := range weights.Coefficients {
		for j, c := range row {
			out[j] += math.Abs(c)
		}
	}
	if k := weights.Classes(); k > 0 {
		for j := range out {
			out[j] /= float64(k)
		}
	}
	return out
}

func (w Weights) probabilities(sample []float64, out []float64) {
	maxLogit := math.Inf(-1)
	for k := range w.Bias {
		out[k] = w.Bias[k] + dot(w.Coefficients[k], sample)
		if out[k] > maxLogit {
			maxLogit = out[k]
		}
	}
	var sum float64
	for k := range out {
		out[k] = math.Exp(out[k] - maxLogit)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// Evaluate computes cross-entropy loss and accuracy.
func Evaluate(weights Weights, samples [][]float64, labels []int) Metrics {
	if len(samples) == 0 {
		return Metrics{}
	}
	var loss float64
	var correct int
	probs := make([]float64, weights.Classes())
	for i, sample := range samples {
		weights.probabilities(sample, probs)
		loss += -math.Log(probs[labels[i]] + 1e-9)
		if argmax(probs) == labels[i] {
			correct++
		}
	}
	return Metrics{
		Loss:     loss / float64(len(samples)),
		Accuracy: float64(correct) / float64(len(samples)),
	}
}
