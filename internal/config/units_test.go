package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckUnits(t *testing.T) {
	extended, conflicts := checkUnits([]string{"cm"})
	assert.Empty(t, conflicts)
	assert.Equal(t, []string{"cm", "V", "eV"}, extended)

	_, conflicts = checkUnits([]string{"cm", "mm", "parsec"})
	assert.Equal(t, []string{"mm", "parsec"}, conflicts)
}

func TestSI(t *testing.T) {
	units := []string{"cm", "MV", "GeV"}
	assert.InDelta(t, 0.25, SI(25, []UnitElement{{Class: Length, Power: 1}}, units, true), 1e-15)
	assert.InDelta(t, 25, SI(0.25, []UnitElement{{Class: Length, Power: 1}}, units, false), 1e-12)
	// field strength in MV/cm
	assert.InDelta(t, 4e8, SI(4, []UnitElement{{Class: Voltage, Power: 1}, {Class: Length, Power: -1}}, units, true), 1e-3)
	assert.InDelta(t, 26e9, SI(26, []UnitElement{{Class: Energy, Power: 1}}, units, true), 1e-3)
}

func TestUnitName(t *testing.T) {
	units := []string{"cm", "MV"}
	assert.Equal(t, "cm", UnitName(Length, units))
	assert.Equal(t, "MV", UnitName(Voltage, units))
	assert.Equal(t, "eV", UnitName(Energy, units))
}
