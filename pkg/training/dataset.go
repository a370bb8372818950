package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/features"
	"github.com/CS-UWC/OralSmart-sub001/pkg/risk"
)

// LabelColumn holds the risk level in training CSV files.
const LabelColumn = "risk_level"

var ErrInvalidDataset = errors.New("invalid training dataset")

// Example is one labelled feature vector.
type Example struct {
	Vector features.Vector
	Label  risk.Level
}

type Dataset struct {
	Examples []Example
}

func (d *Dataset) Len() int {
	return len(d.Examples)
}

func (d *Dataset) Add(v features.Vector, label risk.Level) {
	d.Examples = append(d.Examples, Example{Vector: v, Label: label})
}

// Matrix returns the raw feature rows and label indices.
func (d *Dataset) Matrix() ([][]float64, []int) {
	samples := make([][]float64, len(d.Examples))
	labels := make([]int, len(d.Examples))
	for i, ex := range d.Examples {
		samples[i] = ex.Vector.Values
		labels[i] = ex.Label.Index()
	}
	return samples, labels
}

func (d *Dataset) Distribution() map[string]int {
	out := make(map[string]int, len(risk.Levels))
	for _, l := range risk.Levels {
		out[string(l)] = 0
	}
	for _, ex := range d.Examples {
		out[string(ex.Label)]++
	}
	return out
}

func LoadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads a header row naming every schema feature plus the label
// column. Blank cells read as 0; columns outside the schema are ignored.
func LoadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidDataset, err)
	}

	labelCol := -1
	columns := make([]int, features.Len())
	for i := range columns {
		columns[i] = -1
	}
	var ignored []string
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == LabelColumn {
			labelCol = i
			continue
		}
		idx, ok := features.Index(name)
		if !ok {
			ignored = append(ignored, name)
			continue
		}
		columns[idx] = i
	}
	if labelCol < 0 {
		return nil, fmt.Errorf("%w: missing %s column", ErrInvalidDataset, LabelColumn)
	}
	var missing []string
	names := features.Names()
	for idx, col := range columns {
		if col < 0 {
			missing = append(missing, names[idx])
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: missing feature columns %s", ErrInvalidDataset, strings.Join(missing, ", "))
	}
	if len(ignored) > 0 {
		logger.WithField("columns", ignored).Warn("Ignoring columns outside the feature schema")
	}

	ds := &Dataset{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidDataset, line, err)
		}
		label, err := risk.ParseLevel(record[labelCol])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidDataset, line, err)
		}
		v := features.NewVector()
		for idx, col := range columns {
			cell := strings.TrimSpace(record[col])
			if cell == "" {
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %v", ErrInvalidDataset, line, names[idx], err)
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, fmt.Errorf("%w: line %d column %s: non-finite value", ErrInvalidDataset, line, names[idx])
			}
			v.Values[idx] = value
		}
		ds.Add(v, label)
	}
	return ds, nil
}

// WriteCSV writes the dataset in the format LoadCSV reads.
func WriteCSV(w io.Writer, ds *Dataset) error {
	writer := csv.NewWriter(w)
	header := append(features.Names(), LabelColumn)
	if err := writer.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, ex := range ds.Examples {
		for i, v := range ex.Vector.Values {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row[len(row)-1] = string(ex.Label)
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
