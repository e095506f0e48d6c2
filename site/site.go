// Package site loads and validates the static observatory configuration a
// Night and its targets are scheduled against: location, altitude limits,
// mount geometry, and per-instrument field of view.
package site

import (
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kestrelsky/visplot/visploterr"
)

// MountKind selects how declination/hour-angle limits are interpreted.
type MountKind string

const (
	MountEquatorial MountKind = "equatorial"
	MountAltAz      MountKind = "alt-az"
)

// DecLimitKind selects the declination-limit function shape.
type DecLimitKind string

const (
	DecLimitNone DecLimitKind = "none"
	DecLimitAlt  DecLimitKind = "alt"
	DecLimitHA   DecLimitKind = "ha"
)

// HALimitPoint is one piecewise-linear node of an hour-angle limit table.
type HALimitPoint struct {
	DecDeg float64 `yaml:"decDeg"`
	MinHA  float64 `yaml:"minHA"` // hours
	MaxHA  float64 `yaml:"maxHA"` // hours
}

// DecLimit describes the declination-dependent pointing limit, either as a
// minimum-altitude curve or an hour-angle window, both piecewise-linear in
// declination.
type DecLimit struct {
	Kind     DecLimitKind   `yaml:"kind"`
	OverAxis bool           `yaml:"overAxis"`
	AltTable []HALimitPoint `yaml:"altTable,omitempty"` // MinHA field reused as minAlt when Kind == alt
	HATable  []HALimitPoint `yaml:"haTable,omitempty"`
}

// MinMaxHAAt returns the piecewise-linear interpolated [minHA, maxHA] window,
// in hours, for the given declination in degrees.
func (d DecLimit) MinMaxHAAt(decDeg float64) (minHA, maxHA float64) {
	return interpolateHA(d.HATable, decDeg)
}

// MinAltAt returns the piecewise-linear interpolated minimum altitude, in
// degrees, for the given declination.
func (d DecLimit) MinAltAt(decDeg float64) float64 {
	if len(d.AltTable) == 0 {
		return -90.0
	}
	minAlt, _ := interpolateHA(d.AltTable, decDeg)
	return minAlt
}

func interpolateHA(table []HALimitPoint, decDeg float64) (lo, hi float64) {
	if len(table) == 0 {
		return -12.0, 12.0
	}
	if decDeg <= table[0].DecDeg {
		return table[0].MinHA, table[0].MaxHA
	}
	last := table[len(table)-1]
	if decDeg >= last.DecDeg {
		return last.MinHA, last.MaxHA
	}
	for i := 1; i < len(table); i++ {
		a, b := table[i-1], table[i]
		if decDeg <= b.DecDeg {
			frac := (decDeg - a.DecDeg) / (b.DecDeg - a.DecDeg)
			lo = a.MinHA + frac*(b.MinHA-a.MinHA)
			hi = a.MaxHA + frac*(b.MaxHA-a.MaxHA)
			return lo, hi
		}
	}
	return last.MinHA, last.MaxHA
}

// Instrument describes a named focal-plane configuration.
type Instrument struct {
	Name      string  `yaml:"name"`
	FovArcmin float64 `yaml:"fovArcmin"`
}

// Site is the static configuration of one observatory.
type Site struct {
	Name               string       `yaml:"name"`
	LatitudeDeg        float64      `yaml:"latitudeDeg"`
	LongitudeDeg       float64      `yaml:"longitudeDeg"`
	AltitudeM          float64      `yaml:"altitudeM"`
	TimezoneHours      float64      `yaml:"timezoneHours"`
	MinAltitudeDeg     float64      `yaml:"minAltitudeDeg"`
	MaxAltitudeDeg     float64      `yaml:"maxAltitudeDeg"`
	ZenithAvoidanceDeg float64      `yaml:"zenithAvoidanceDeg"`
	Mount              MountKind    `yaml:"mount"`
	DecLimit           DecLimit     `yaml:"decLimit"`
	Instruments        []Instrument `yaml:"instruments"`
}

// Load reads and validates a Site document from path.
func Load(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a Site document from raw YAML bytes.
func Parse(data []byte) (*Site, error) {
	var s Site
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.MaxAltitudeDeg == 0 {
		s.MaxAltitudeDeg = 90.0
	}
	if s.Mount == "" {
		s.Mount = MountAltAz
	}
	return &s, nil
}

// Validate checks that geometric fields are physically sensible.
func (s *Site) Validate() error {
	if math.Abs(s.LatitudeDeg) > 90.0 {
		return visploterr.NewEphemerisError("site latitude out of range")
	}
	if math.Abs(s.LongitudeDeg) > 180.0 {
		return visploterr.NewEphemerisError("site longitude out of range")
	}
	if s.MinAltitudeDeg < 0 || s.MinAltitudeDeg > 90 {
		return visploterr.NewEphemerisError("site minAltitudeDeg out of range")
	}
	return nil
}

// ZenithLimitDeg returns the maximum allowed altitude, applying zenith
// avoidance when the site declares it.
func (s *Site) ZenithLimitDeg() float64 {
	if s.ZenithAvoidanceDeg > 0 {
		return 90.0 - s.ZenithAvoidanceDeg
	}
	if s.MaxAltitudeDeg > 0 {
		return s.MaxAltitudeDeg
	}
	return 90.0
}
