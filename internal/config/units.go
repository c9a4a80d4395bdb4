package config

import "github.com/wildstyl3r/rfbucket/internal/utils"

var unitToSI = map[string]float64{
	"m":   1,    // [m]
	"cm":  1e-2, // [m]
	"mm":  1e-3, // [m]
	"V":   1,    // [V]
	"kV":  1e3,  // [V]
	"MV":  1e6,  // [V]
	"eV":  1,    // [eV]
	"keV": 1e3,  // [eV]
	"MeV": 1e6,  // [eV]
	"GeV": 1e9,  // [eV]
}

type UnitClass int

const (
	Length UnitClass = iota
	Voltage
	Energy
)

var unitsInClass = map[UnitClass][]string{
	Length:  {"mm", "cm", "m"},
	Voltage: {"V", "kV", "MV"},
	Energy:  {"eV", "keV", "MeV", "GeV"},
}

var classesOfUnits = map[string]UnitClass{
	"m":   Length,
	"cm":  Length,
	"mm":  Length,
	"V":   Voltage,
	"kV":  Voltage,
	"MV":  Voltage,
	"eV":  Energy,
	"keV": Energy,
	"MeV": Energy,
	"GeV": Energy,
}

type UnitElement = struct {
	Class UnitClass
	Power int
}

// checkUnits completes units with the defaults of the missing classes.
// Unknown units and repeated classes are reported as conflicts.
func checkUnits(units []string) (extended, conflicts []string) {
	classes := map[UnitClass]struct{}{}
	for _, unit := range units {
		class, known := classesOfUnits[unit]
		if _, some := classes[class]; some || !known {
			conflicts = append(conflicts, unit)
		} else {
			classes[class] = struct{}{}
		}
	}
	extended = append([]string{}, units...)
	for _, unit := range defaultUnits {
		if _, some := classes[classesOfUnits[unit]]; !some {
			extended = append(extended, unit)
		}
	}
	return
}

// SI converts v expressed in units to SI (direct) or back.
// Energies are kept in eV.
func SI(v float64, classes []UnitElement, units []string, direct bool) float64 {
	for i := range classes {
		uc := classes[i]
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		absPower := utils.IntAbs(uc.Power)
		if direct == (uc.Power > 0) {
			for range absPower {
				v *= unitToSI[*unit]
			}
		} else {
			for range absPower {
				v /= unitToSI[*unit]
			}
		}
	}
	return v
}

// UnitName returns the unit chosen for class among units, or the SI one.
func UnitName(class UnitClass, units []string) string {
	if unit := utils.Intersect(unitsInClass[class], units); unit != nil {
		return *unit
	}
	return defaultUnits[class]
}
