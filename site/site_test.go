package site

import "testing"

const sampleYAML = `
name: "Roque de los Muchachos"
latitudeDeg: 28.76
longitudeDeg: -17.88
altitudeM: 2382
timezoneHours: 0
minAltitudeDeg: 20
maxAltitudeDeg: 90
zenithAvoidanceDeg: 0
mount: equatorial
decLimit:
  kind: ha
  overAxis: true
  haTable:
    - {decDeg: -30, minHA: -5.5, maxHA: 5.5}
    - {decDeg: 90,  minHA: -4.5, maxHA: 4.5}
instruments:
  - name: default
    fovArcmin: 10
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Roque de los Muchachos" {
		t.Errorf("Name = %q", s.Name)
	}
	if s.Mount != MountEquatorial {
		t.Errorf("Mount = %q, want equatorial", s.Mount)
	}
	if len(s.DecLimit.HATable) != 2 {
		t.Fatalf("HATable len = %d, want 2", len(s.DecLimit.HATable))
	}
}

func TestDecLimit_MinMaxHAAt_Interpolation(t *testing.T) {
	s, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	lo, hi := s.DecLimit.MinMaxHAAt(30.0)
	// Midpoint between -30 (5.5/5.5) and 90 (4.5/4.5): dec=30 is 50% along.
	if lo < -5.1 || lo > -4.9 {
		t.Errorf("minHA at dec=30 = %.3f, want ~-5.0", lo)
	}
	if hi < 4.9 || hi > 5.1 {
		t.Errorf("maxHA at dec=30 = %.3f, want ~5.0", hi)
	}
}

func TestValidate_BadLatitude(t *testing.T) {
	_, err := Parse([]byte("latitudeDeg: 120\n"))
	if err == nil {
		t.Error("expected an error for |latitude| > 90")
	}
}

func TestZenithLimitDeg(t *testing.T) {
	s := &Site{MaxAltitudeDeg: 85, ZenithAvoidanceDeg: 5}
	if got := s.ZenithLimitDeg(); got != 85.0 {
		t.Errorf("ZenithLimitDeg with avoidance = %.2f, want 85", got)
	}
	s2 := &Site{MaxAltitudeDeg: 90}
	if got := s2.ZenithLimitDeg(); got != 90.0 {
		t.Errorf("ZenithLimitDeg without avoidance = %.2f, want 90", got)
	}
}
