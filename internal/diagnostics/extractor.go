package diagnostics

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/wildstyl3r/rfbucket/internal/bucket"
	"github.com/wildstyl3r/rfbucket/internal/config"
	"github.com/wildstyl3r/rfbucket/internal/utils"
)

type DataExtractor struct {
	bucket     *bucket.RFBucket
	parameters *config.BucketParameters
	grid       []float64 // [m]

	z  []float64 // [m]
	dp []float64
}

// NewDataExtractor samples the bucket on the finder grid and loads the
// particle file, if one is configured.
func NewDataExtractor(b *bucket.RFBucket, parameters *config.BucketParameters) (*DataExtractor, error) {
	left, right := b.Interval()
	de := DataExtractor{
		bucket:     b,
		parameters: parameters,
		grid:       floats.Span(make([]float64, b.Subintervals()+1), left, right),
	}

	if parameters.Particles != "" {
		particles, err := utils.ReadFloatPairs(parameters.Particles)
		if err != nil {
			return nil, fmt.Errorf("particles: %w", err)
		}
		de.z = make([]float64, len(particles))
		de.dp = make([]float64, len(particles))
		for i := range particles {
			de.z[i], de.dp[i] = particles[i][0], particles[i][1]
		}
	}

	if parameters.Verbose() {
		slog.Debug("bucket",
			"eta0", b.Eta0(),
			"Qs", b.Qs(),
			"beta_z", b.BetaZ(),
			"left", left,
			"right", right,
			"particles", len(de.z),
		)
	}
	return &de, nil
}

func (de *DataExtractor) accepted() ([]bool, error) {
	return de.bucket.AcceptedBatch(de.z, de.dp, de.parameters.Margin, de.parameters.Threads())
}

// Save writes every enabled profile of the model.
func (de *DataExtractor) Save(modelName string, df DataFlags) error {
	for _, name := range slices.Sorted(maps.Keys(df.sequentials)) {
		output := df.sequentials[name]
		if !*output.saveFlag && !*df.all {
			continue
		}
		xColumnValue, yColumnValues, err := output.values(de)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if len(xColumnValue) == 0 {
			slog.Info("nothing to save", "model", modelName, "output", name)
			continue
		}
		if err := de.write(modelName, df.outputPath, output, xColumnValue, yColumnValues); err != nil {
			return fmt.Errorf("unable to save %s: %w", name, err)
		}
		if de.parameters.Verbose() {
			slog.Debug("saved", "model", modelName, "output", name)
		}
	}
	return nil
}

func (de *DataExtractor) write(modelName, outputPath string, output SequentialDataItem, xs []float64, ys [][]float64) error {
	file, err := utils.OpenFile(de.parameters.MakeDir, outputPath, output.fileSuffix, modelName)
	if err != nil {
		return err
	}
	defer file.Close()

	units := de.parameters.OutputUnits()
	header := slices.Clone(output.columnNames)
	header[0] = withUnit(header[0], output.xUnit, units)
	for i := 1; i < len(header); i++ {
		header[i] = withUnit(header[i], output.yUnit, units)
	}
	rows := [][]string{header}
	for x := range xs {
		row := []string{formatFloat(config.SI(xs[x], output.xUnit, units, false))}
		for _, y := range ys[x] {
			row = append(row, formatFloat(config.SI(y, output.yUnit, units, false)))
		}
		rows = append(rows, row)
	}
	return csv.NewWriter(file).WriteAll(rows)
}

func withUnit(column string, classes []config.UnitElement, units []string) string {
	if len(classes) == 0 {
		return column
	}
	var parts []string
	for _, uc := range classes {
		name := config.UnitName(uc.Class, units)
		if uc.Power != 1 {
			name += "^" + strconv.Itoa(uc.Power)
		}
		parts = append(parts, name)
	}
	return column + " (" + strings.Join(parts, " ") + ")"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
