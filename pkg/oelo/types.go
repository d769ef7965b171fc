package oelo

import "slices"

// ZoneState is the reported state of a single zone on an Oelo controller:
// the running pattern type, its color sequence, and device-level flags.
type ZoneState struct {
	Zone        int      `json:"zone"`
	PatternType string   `json:"patternType"`
	Colors      []string `json:"colors"` // hex RRGGBB values, in LED-run order
	Brightness  int      `json:"brightness"`
	Speed       int      `json:"speed"`
	On          int      `json:"power"` // 1 = on, 0 = off
}

// LightState is the atomic unit read from / written to a controller: the
// ordered per-zone states plus nothing else. A LightState is immutable once
// captured; callers that need to modify one must work on a Clone.
type LightState struct {
	Zones []ZoneState `json:"zones"`
}

// Clone returns a deep copy of the light state.
func (s LightState) Clone() LightState {
	zones := make([]ZoneState, len(s.Zones))
	for i, z := range s.Zones {
		z.Colors = slices.Clone(z.Colors)
		zones[i] = z
	}
	return LightState{Zones: zones}
}

// Equal reports whether two light states describe the same device state.
func (s LightState) Equal(other LightState) bool {
	if len(s.Zones) != len(other.Zones) {
		return false
	}
	for i, z := range s.Zones {
		o := other.Zones[i]
		if z.Zone != o.Zone || z.PatternType != o.PatternType ||
			z.Brightness != o.Brightness || z.Speed != o.Speed || z.On != o.On {
			return false
		}
		if !slices.Equal(z.Colors, o.Colors) {
			return false
		}
	}
	return true
}
