package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wildstyl3r/rfbucket/internal/bucket"
	"github.com/wildstyl3r/rfbucket/internal/constants"
	"github.com/wildstyl3r/rfbucket/internal/utils"
)

type Config struct {
	OutputDir string
	Models    map[string]BucketParameters
	BucketParameters
	Scan         string // file of (voltage, energy gain) pairs, one model per line
	isDefinedMap map[string]struct{}

	InputUnits  []string
	OutputUnits []string
}

func (c *Config) isDefined(path []string, meta *toml.MetaData) bool {
	if _, sureDefined := c.isDefinedMap[strings.Join(path, "#")]; sureDefined {
		return true
	} else {
		return meta.IsDefined(path...)
	}
}

// LoadConfig decodes <configFileName>.toml. Without a Models table and a Scan
// file the top level describes a single model named after the file.
func LoadConfig(configFileName string) (Config, toml.MetaData, error) {
	var config Config
	config.isDefinedMap = map[string]struct{}{}
	meta, err := toml.DecodeFile(configFileName+".toml", &config)
	if err != nil {
		return config, meta, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config, meta, fmt.Errorf("%w: unknown keys %v", bucket.ErrInvalidConfig, undecoded)
	}

	var unitsConflict []string
	config.InputUnits, unitsConflict = checkUnits(config.InputUnits)
	if len(unitsConflict) > 0 {
		return config, meta, fmt.Errorf("%w: input unit conflict %v", bucket.ErrInvalidConfig, unitsConflict)
	}
	if len(config.OutputUnits) == 0 {
		config.OutputUnits = config.InputUnits
	}
	config.OutputUnits, unitsConflict = checkUnits(config.OutputUnits)
	if len(unitsConflict) > 0 {
		return config, meta, fmt.Errorf("%w: output unit conflict %v", bucket.ErrInvalidConfig, unitsConflict)
	}

	switch {
	case len(config.Scan) > 0:
		if len(config.Models) > 0 {
			return config, meta, fmt.Errorf("%w: simultaneous scan file and direct model specification not supported", bucket.ErrInvalidConfig)
		}
		scan, err := utils.ReadFloatPairs(config.Scan)
		if err != nil {
			return config, meta, fmt.Errorf("scan file: %w", err)
		}
		filename := utils.GetFilename(config.Scan)
		config.Models = make(map[string]BucketParameters, len(scan))
		for line := range scan {
			modelName := filename + "_l" + strconv.Itoa(line+1)
			config.Models[modelName] = BucketParameters{
				Voltages:   []float64{scan[line][0]},
				EnergyGain: scan[line][1],
			}
			config.isDefinedMap[strings.Join([]string{"Models", modelName, "Voltages"}, "#")] = struct{}{}
			config.isDefinedMap[strings.Join([]string{"Models", modelName, "EnergyGain"}, "#")] = struct{}{}
		}
	case len(config.Models) == 0:
		config.Models = map[string]BucketParameters{utils.GetFilename(configFileName): {}}
	}

	return config, meta, nil
}

type BucketParameters struct {
	Circumference   float64   // [m]
	Species         string    // proton, antiproton, electron or positron
	Mass            float64   // [kg]
	Charge          float64   // [C]
	Gamma           float64
	TotalEnergy     float64   // [eV]
	Alpha           []float64 // momentum compaction
	GammaTransition float64
	PIncrement      float64   // [kg m s^-1] per turn
	EnergyGain      float64   // [eV] per turn
	Harmonics       []int
	Voltages        []float64 // [V]
	PhaseOffsets    []float64 // [rad]
	ZOffset         float64   // [m]
	Subintervals    int

	PotentialTable string // z [m] / potential energy [eV] pairs
	Particles      string // z [m] / dp pairs
	Margin         float64
	MakeDir        bool

	_zOffsetDefined bool
	_outputUnits    []string
	_verbose        bool
	_threads        int
}

func (p *BucketParameters) OutputUnits() []string {
	return p._outputUnits
}

func (p *BucketParameters) Verbose() bool {
	return p._verbose
}

func (p *BucketParameters) SetVerbosity(verbose bool) {
	p._verbose = verbose
}

func (p *BucketParameters) Threads() int {
	return p._threads
}

func (p *BucketParameters) SetThreads(threads int) {
	p._threads = threads
}

type particle struct {
	mass   float64 // [kg]
	charge float64 // [C]
}

var species = map[string]particle{
	"proton":     {constants.ProtonMass, constants.ElementaryCharge},
	"antiproton": {constants.ProtonMass, -constants.ElementaryCharge},
	"electron":   {constants.ElectronMass, -constants.ElementaryCharge},
	"positron":   {constants.ElectronMass, constants.ElementaryCharge},
}

var defaultValues = map[string]any{ // in SI, energies in eV
	"Species":      "proton",
	"EnergyGain":   0.,
	"Subintervals": bucket.DefaultSubintervals,
	"Margin":       0.,
	"MakeDir":      true,
}

var defaultUnits = []string{"m", "V", "eV"}

var fieldsXor = map[string][]string{
	"Gamma":           {"TotalEnergy"},
	"TotalEnergy":     {"Gamma"},
	"Alpha":           {"GammaTransition"},
	"GammaTransition": {"Alpha"},
	"PIncrement":      {"EnergyGain"},
	"EnergyGain":      {"PIncrement"},
	"Species":         {"Mass", "Charge"},
	"Mass":            {"Species"},
	"Charge":          {"Species"},
}

var fieldsAnd = map[string][]string{
	"Mass":         {"Charge"},
	"Charge":       {"Mass"},
	"Harmonics":    {"Voltages"},
	"Voltages":     {"Harmonics"},
	"PhaseOffsets": {"Harmonics"},
}

var requiredFields = []string{"Circumference", "Mass", "Charge", "Gamma", "Alpha", "PIncrement", "Harmonics", "Voltages"}

var valueUnits = map[string][]UnitElement{
	"Circumference": {
		{Class: Length, Power: 1},
	},
	"ZOffset": {
		{Class: Length, Power: 1},
	},
	"Voltages": {
		{Class: Voltage, Power: 1},
	},
	"TotalEnergy": {
		{Class: Energy, Power: 1},
	},
	"EnergyGain": {
		{Class: Energy, Power: 1},
	},
}

var calculableFields = map[string]func(
	*BucketParameters,
	[]string,
) []string{
	"Species": func(bp *BucketParameters, definedFields []string) []string {
		s, some := species[bp.Species]
		if !some {
			return nil
		}
		bp.Mass, bp.Charge = s.mass, s.charge
		return []string{"Mass", "Charge"}
	},
	"TotalEnergy": func(bp *BucketParameters, definedFields []string) []string {
		if !slices.Contains(definedFields, "Mass") {
			return nil
		}
		restEnergy := bp.Mass * constants.SpeedOfLight * constants.SpeedOfLight / constants.ElementaryCharge // [eV]
		bp.Gamma = bp.TotalEnergy / restEnergy
		return []string{"Gamma"}
	},
	"GammaTransition": func(bp *BucketParameters, definedFields []string) []string {
		bp.Alpha = []float64{1 / (bp.GammaTransition * bp.GammaTransition)}
		return []string{"Alpha"}
	},
	"EnergyGain": func(bp *BucketParameters, definedFields []string) []string {
		if !slices.Contains(definedFields, "Gamma") {
			return nil
		}
		beta := math.Sqrt(1 - 1/(bp.Gamma*bp.Gamma))
		bp.PIncrement = bp.EnergyGain * constants.ElementaryCharge / (beta * constants.SpeedOfLight)
		return []string{"PIncrement"}
	},
}

func (p *BucketParameters) toSI(parameterNames, units []string) {
	pReflect := reflect.ValueOf(p).Elem()
	for _, name := range parameterNames {
		classes, some := valueUnits[name]
		if !some {
			continue
		}
		field := pReflect.FieldByName(name)
		switch {
		case field.CanFloat():
			field.SetFloat(SI(field.Float(), classes, units, true))
		case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Float64:
			// fresh slice: the value may be shared with the global section
			converted := make([]float64, field.Len())
			for i := range converted {
				converted[i] = SI(field.Index(i).Float(), classes, units, true)
			}
			field.Set(reflect.ValueOf(converted))
		}
	}
}

func (p *BucketParameters) checkFieldProblems(path []string, meta *toml.MetaData, globalConfig *Config) (ambiguities [][]string, missingDeps []string) {
	pReflect := reflect.ValueOf(p).Elem()
	for field := range fieldsXor {
		if globalConfig.isDefined(append(path, field), meta) {
			if pReflect.FieldByName(field).Kind() == reflect.Bool && !pReflect.FieldByName(field).Bool() {
				continue
			}
			var foundAlternatives []string
			for _, alternative := range fieldsXor[field] {
				if globalConfig.isDefined(append(path, alternative), meta) {
					foundAlternatives = append(foundAlternatives, alternative)
				}
			}

			if len(foundAlternatives) > 0 {
				ambiguities = append(ambiguities, append([]string{field}, foundAlternatives...))
			}
		}
	}

	for field := range fieldsAnd {
		if globalConfig.isDefined(append(path, field), meta) {
			for _, requirement := range fieldsAnd[field] {
				if !globalConfig.isDefined(append(path, requirement), meta) {
					missingDeps = append(missingDeps, requirement)
				}
			}
		}
	}
	return
}

/*
field value priority:
1. model
2. model-calculable
3. global
4. global-calculable
5. default
*/

// CheckAndUnify fills the model parameters from the model table, the global
// section and the defaults, converts them to SI and derives the dependent
// fields. All problems found are returned joined.
func (p *BucketParameters) CheckAndUnify(modelName string, config *Config, meta *toml.MetaData) error {
	globalAmbiguities, globalMissingDeps := config.checkFieldProblems([]string{}, meta, config)
	localAmbiguities, localMissingDeps := p.checkFieldProblems([]string{"Models", modelName}, meta, config)
	if len(globalAmbiguities) > 0 {
		return fmt.Errorf("%w: global ambiguities %v", bucket.ErrInvalidConfig, globalAmbiguities)
	}
	if len(localAmbiguities) > 0 {
		return fmt.Errorf("%w: model %s ambiguities %v", bucket.ErrInvalidConfig, modelName, localAmbiguities)
	}
	var missingIntersection []string
	for i := range globalMissingDeps {
		if slices.Contains(localMissingDeps, globalMissingDeps[i]) {
			missingIntersection = append(missingIntersection, globalMissingDeps[i])
		}
	}
	if len(missingIntersection) > 0 {
		return fmt.Errorf("%w: required dependent fields not found %v", bucket.ErrInvalidConfig, missingIntersection)
	}

	var discoveredParameters []string
	excludeFromLoadingDefaultOrOuter := make(map[string]struct{})

	pReflect := reflect.ValueOf(p).Elem()
	pType := pReflect.Type()
	for i := range pReflect.NumField() {
		fieldName := pType.Field(i).Name
		if config.isDefined([]string{"Models", modelName, fieldName}, meta) {
			discoveredParameters = append(discoveredParameters, fieldName)
			for _, x := range fieldsXor[fieldName] {
				excludeFromLoadingDefaultOrOuter[x] = struct{}{}
			}
		}
	}

	globalReflect := reflect.ValueOf(&config.BucketParameters).Elem()
	for i := range globalReflect.NumField() {
		fieldName := pType.Field(i).Name
		if _, some := excludeFromLoadingDefaultOrOuter[fieldName]; !some && !config.isDefined([]string{"Models", modelName, fieldName}, meta) && meta.IsDefined(fieldName) {
			pReflect.Field(i).Set(globalReflect.Field(i))
			discoveredParameters = append(discoveredParameters, fieldName)
			excludeFromLoadingDefaultOrOuter[fieldName] = struct{}{}
			for _, xAlternative := range fieldsXor[fieldName] {
				excludeFromLoadingDefaultOrOuter[xAlternative] = struct{}{}
			}
		}
	}

	p.toSI(discoveredParameters, config.InputUnits)

	for fieldName := range defaultValues {
		if _, x := excludeFromLoadingDefaultOrOuter[fieldName]; !x && !slices.Contains(discoveredParameters, fieldName) {
			pReflect.FieldByName(fieldName).Set(reflect.ValueOf(defaultValues[fieldName]))
			discoveredParameters = append(discoveredParameters, fieldName)
		}
	}

	var enabledParameters []string
	for _, fieldName := range discoveredParameters {
		field := pReflect.FieldByName(fieldName)
		if field.Kind() != reflect.Bool || field.Bool() {
			enabledParameters = append(enabledParameters, fieldName)
		}
	}

	calculatedAnything := true
	for calculatedAnything {
		calculatedAnything = false
		for initialFieldName := range calculableFields {
			if slices.Contains(enabledParameters, initialFieldName) {
				calculated := calculableFields[initialFieldName](p, enabledParameters)
				if len(calculated) != 0 {
					calculatedAnything = true
					enabledParameters = append(enabledParameters, calculated...)
					enabledParameters = slices.DeleteFunc(enabledParameters, func(elem string) bool {
						return elem == initialFieldName
					})
				}
			}
		}
	}

	var problems []error
	for initialFieldName := range calculableFields {
		if slices.Contains(enabledParameters, initialFieldName) {
			problems = append(problems, fmt.Errorf("%w: unable to derive parameters from %s", bucket.ErrInvalidConfig, initialFieldName))
		}
	}

	for _, parameter := range enabledParameters {
		for _, requirement := range fieldsAnd[parameter] {
			if !slices.Contains(enabledParameters, requirement) {
				problems = append(problems, fmt.Errorf("%w: for parameter %s requirement %s not found", bucket.ErrInvalidConfig, parameter, requirement))
			}
		}
		for _, conflict := range fieldsXor[parameter] {
			if slices.Contains(enabledParameters, conflict) {
				problems = append(problems, fmt.Errorf("%w: for parameter %s found conflicting parameter %s", bucket.ErrInvalidConfig, parameter, conflict))
			}
		}
	}
	for _, required := range requiredFields {
		if !slices.Contains(enabledParameters, required) {
			problems = append(problems, fmt.Errorf("%w: required parameter %s not found", bucket.ErrInvalidConfig, required))
		}
	}

	p._zOffsetDefined = slices.Contains(enabledParameters, "ZOffset")
	p._outputUnits = config.OutputUnits

	return errors.Join(problems...)
}

// Parameters translates the unified model into bucket parameters.
func (p *BucketParameters) Parameters() (bucket.Parameters, error) {
	if len(p.Voltages) != len(p.Harmonics) {
		return bucket.Parameters{}, fmt.Errorf("%w: %d voltages for %d harmonics", bucket.ErrInvalidConfig, len(p.Voltages), len(p.Harmonics))
	}
	if len(p.PhaseOffsets) != 0 && len(p.PhaseOffsets) != len(p.Harmonics) {
		return bucket.Parameters{}, fmt.Errorf("%w: %d phase offsets for %d harmonics", bucket.ErrInvalidConfig, len(p.PhaseOffsets), len(p.Harmonics))
	}
	kicks := make([]bucket.Kick, len(p.Harmonics))
	for i := range kicks {
		kicks[i] = bucket.Kick{Harmonic: p.Harmonics[i], Voltage: p.Voltages[i]}
		if len(p.PhaseOffsets) > 0 {
			kicks[i].PhaseOffset = p.PhaseOffsets[i]
		}
	}
	bp := bucket.Parameters{
		Circumference: p.Circumference,
		Gamma:         p.Gamma,
		Mass:          p.Mass,
		Charge:        p.Charge,
		Alpha:         slices.Clone(p.Alpha),
		PIncrement:    p.PIncrement,
		Kicks:         kicks,
		Subintervals:  p.Subintervals,
	}
	if p._zOffsetDefined {
		zOffset := p.ZOffset
		bp.ZOffset = &zOffset
	}
	return bp, nil
}

// Perturbation loads PotentialTable; both fields are nil when no table is configured.
func (p *BucketParameters) Perturbation() (force, potential bucket.Field, err error) {
	if p.PotentialTable == "" {
		return nil, nil, nil
	}
	samples, err := utils.ReadFloatPairs(p.PotentialTable)
	if err != nil {
		return nil, nil, fmt.Errorf("potential table: %w", err)
	}
	for i := range samples {
		samples[i][1] *= constants.ElementaryCharge // [eV] -> [C V]
	}
	return bucket.TabulatedField(samples)
}

// Build creates the bucket with the tabulated perturbation, if any, registered.
func (p *BucketParameters) Build() (*bucket.RFBucket, error) {
	bp, err := p.Parameters()
	if err != nil {
		return nil, err
	}
	b, err := bucket.New(bp)
	if err != nil {
		return nil, err
	}
	force, potential, err := p.Perturbation()
	if err != nil {
		return nil, err
	}
	if force != nil {
		b.AddFields([]bucket.Field{force}, []bucket.Field{potential})
	}
	return b, nil
}
