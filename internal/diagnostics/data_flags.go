package diagnostics

import (
	"flag"
	"math"

	"github.com/wildstyl3r/rfbucket/internal/config"
)

type DataItem struct {
	saveFlag   *bool
	fileSuffix string
}

// SequentialDataItem is a profile sampled along z (or per particle) and saved as CSV.
type SequentialDataItem struct {
	DataItem
	columnNames []string
	values      func(*DataExtractor) (args []float64, values [][]float64, err error)
	xUnit       []config.UnitElement
	yUnit       []config.UnitElement
}

type DataFlags struct {
	all         *bool
	sequentials map[string]SequentialDataItem
	outputPath  string
}

func NewDataFlags(fs *flag.FlagSet) DataFlags {
	return DataFlags{
		all: fs.Bool("all", false, "save every available profile"),
		sequentials: map[string]SequentialDataItem{
			"Force": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("f", false, "save net force per charge"),
					fileSuffix: "force",
				},
				columnNames: []string{"z", "F/q"},
				values: func(de *DataExtractor) (args []float64, values [][]float64, err error) {
					q := math.Abs(de.bucket.Charge())
					for _, z := range de.grid {
						args = append(args, z)
						values = append(values, []float64{de.bucket.AccForce(z) / q})
					}
					return args, values, nil
				},
				xUnit: []config.UnitElement{{Class: config.Length, Power: 1}},
				yUnit: []config.UnitElement{{Class: config.Voltage, Power: 1}, {Class: config.Length, Power: -1}},
			},
			"Potential": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("u", false, "save calibrated potential (convex)"),
					fileSuffix: "potential",
				},
				columnNames: []string{"z", "U/q"},
				values: func(de *DataExtractor) (args []float64, values [][]float64, err error) {
					q := math.Abs(de.bucket.Charge())
					for _, z := range de.grid {
						u, err := de.bucket.AccPotential(z, true)
						if err != nil {
							return nil, nil, err
						}
						args = append(args, z)
						values = append(values, []float64{u / q})
					}
					return args, values, nil
				},
				xUnit: []config.UnitElement{{Class: config.Length, Power: 1}},
				yUnit: []config.UnitElement{{Class: config.Voltage, Power: 1}},
			},
			"Separatrix": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("s", true, "save separatrix"),
					fileSuffix: "separatrix",
				},
				columnNames: []string{"z", "dp+", "dp-"},
				values: func(de *DataExtractor) (args []float64, values [][]float64, err error) {
					dp, err := de.bucket.Separatrices(nil, de.grid)
					if err != nil {
						return nil, nil, err
					}
					for i, z := range de.grid {
						args = append(args, z)
						values = append(values, []float64{dp[i], -dp[i]})
					}
					return args, values, nil
				},
				xUnit: []config.UnitElement{{Class: config.Length, Power: 1}},
				yUnit: []config.UnitElement{},
			},
			"Hamiltonian": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("hz", false, "save convex Hamiltonian on the dp = 0 axis"),
					fileSuffix: "hamiltonian",
				},
				columnNames: []string{"z", "H (m s^-1)"},
				values: func(de *DataExtractor) (args []float64, values [][]float64, err error) {
					h, err := de.bucket.Hamiltonians(nil, de.grid, make([]float64, len(de.grid)), true)
					if err != nil {
						return nil, nil, err
					}
					for i, z := range de.grid {
						args = append(args, z)
						values = append(values, []float64{h[i]})
					}
					return args, values, nil
				},
				xUnit: []config.UnitElement{{Class: config.Length, Power: 1}},
				yUnit: []config.UnitElement{},
			},
			"Acceptance": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("a", false, "save per particle acceptance"),
					fileSuffix: "acceptance",
				},
				columnNames: []string{"z", "dp", "accepted"},
				values: func(de *DataExtractor) (args []float64, values [][]float64, err error) {
					if len(de.z) == 0 {
						return nil, nil, nil
					}
					accepted, err := de.accepted()
					if err != nil {
						return nil, nil, err
					}
					for i := range de.z {
						args = append(args, de.z[i])
						in := 0.
						if accepted[i] {
							in = 1
						}
						values = append(values, []float64{de.dp[i], in})
					}
					return args, values, nil
				},
				xUnit: []config.UnitElement{{Class: config.Length, Power: 1}},
				yUnit: []config.UnitElement{},
			},
		},
	}
}

func (df *DataFlags) SetOutputPath(path string) {
	df.outputPath = path
}

func (df *DataFlags) GetOutputPath() string {
	return df.outputPath
}
