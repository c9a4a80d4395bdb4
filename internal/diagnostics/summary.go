package diagnostics

import (
	"log/slog"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/wildstyl3r/rfbucket/internal/bucket"
	"github.com/wildstyl3r/rfbucket/internal/config"
	"github.com/wildstyl3r/rfbucket/internal/utils"
)

const thresholdPrecision = 1e-6

// Summary holds the scalar characteristics of one bucket.
type Summary struct {
	Eta0  float64
	Qs    float64
	BetaZ float64 // [m]

	ZSFP           float64 // [m]
	ZUFPSeparatrix float64 // [m]
	ZLeft          float64 // [m]
	ZRight         float64 // [m]
	Area           float64 // [eV s]
	HSFP           float64 // convex

	// fraction of the configured RF voltages below which the bucket vanishes
	ThresholdScale float64

	Particles        int
	BunchLength      float64 // rms [m]
	H0               float64 // convex, from BunchLength
	AcceptedFraction float64
}

func (de *DataExtractor) Summary() (Summary, error) {
	b := de.bucket
	s := Summary{Eta0: b.Eta0(), Qs: b.Qs(), BetaZ: b.BetaZ()}

	var err error
	if s.ZSFP, err = b.ZSFPExtr(); err != nil {
		return s, err
	}
	if s.ZUFPSeparatrix, err = b.ZUFPSeparatrix(); err != nil {
		return s, err
	}
	if s.ZLeft, s.ZRight, err = b.Boundaries(); err != nil {
		return s, err
	}
	if s.Area, err = b.BucketArea(); err != nil {
		return s, err
	}
	if s.HSFP, err = b.HSFP(true); err != nil {
		return s, err
	}
	if s.ThresholdScale, err = de.thresholdScale(); err != nil {
		return s, err
	}

	if len(de.z) > 0 {
		accepted, err := de.accepted()
		if err != nil {
			return s, err
		}
		var n int
		for _, in := range accepted {
			if in {
				n++
			}
		}
		s.Particles = len(de.z)
		s.AcceptedFraction = float64(n) / float64(len(de.z))
		_, s.BunchLength = stat.MeanStdDev(de.z, nil)
		s.H0 = b.H0FromSigma(s.BunchLength, true)
		if s.H0 > s.HSFP {
			slog.Warn("bunch does not fit the bucket", "H0", s.H0, "H_sfp", s.HSFP)
		}
	}
	return s, nil
}

// thresholdScale lowers all RF voltages together on a separate RF system until
// no stable fixed point is left.
func (de *DataExtractor) thresholdScale() (float64, error) {
	p, err := de.parameters.Parameters()
	if err != nil {
		return 0, err
	}
	system, err := bucket.NewRFSystem(p)
	if err != nil {
		return 0, err
	}
	scaled, err := system.Bucket(de.bucket.Gamma())
	if err != nil {
		return 0, err
	}
	force, potential, err := de.parameters.Perturbation()
	if err != nil {
		return 0, err
	}
	if force != nil {
		scaled.AddFields([]bucket.Field{force}, []bucket.Field{potential})
	}

	kicks := system.Kicks()
	hasBucket := func(scale float64) bool {
		for i := range kicks {
			if err := system.SetVoltage(i, scale*kicks[i].Voltage); err != nil {
				return false
			}
		}
		_, err := scaled.ZSFP()
		return err == nil
	}
	_, scale := utils.BinarySearch(hasBucket, 0, 1, thresholdPrecision)
	return scale, nil
}

// SummaryColumns is the CSV header matching Summary.Row.
func SummaryColumns(units []string) []string {
	length := withUnit("", []config.UnitElement{{Class: config.Length, Power: 1}}, units)
	return []string{
		"model", "eta0", "Qs", "beta_z" + length,
		"z_sfp" + length, "z_ufp_sep" + length, "z_left" + length, "z_right" + length,
		"area (eV s)", "H_sfp", "threshold_scale",
		"particles", "sigma_z" + length, "H0", "accepted",
	}
}

func (s Summary) Row(modelName string, units []string) []string {
	length := []config.UnitElement{{Class: config.Length, Power: 1}}
	toLength := func(v float64) string {
		return formatFloat(config.SI(v, length, units, false))
	}
	return []string{
		modelName, formatFloat(s.Eta0), formatFloat(s.Qs), toLength(s.BetaZ),
		toLength(s.ZSFP), toLength(s.ZUFPSeparatrix), toLength(s.ZLeft), toLength(s.ZRight),
		formatFloat(s.Area), formatFloat(s.HSFP), formatFloat(s.ThresholdScale),
		strconv.Itoa(s.Particles), toLength(s.BunchLength), formatFloat(s.H0), formatFloat(s.AcceptedFraction),
	}
}
