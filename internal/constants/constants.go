package constants

const SpeedOfLight float64 = 299792458.          // [m s^-1]
const ElementaryCharge float64 = 1.602176634e-19 // [C]
const ProtonMass float64 = 1.67262192369e-27     // [kg]
const ElectronMass float64 = 9.1093837139e-31    // [kg]
