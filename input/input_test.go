package input

import (
	"strings"
	"testing"

	"github.com/kestrelsky/visplot/target"
)

func TestParse_SimpleAirmassLine(t *testing.T) {
	lines := []string{
		"# a comment",
		"",
		"M31 0 42 44.3 +41 16 9 2000 600 andromeda 2.0 photometry wfc/imaging/groupA/block1",
	}
	res := Parse(lines)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	r := res.Records[0]
	if r.Name != "M31" {
		t.Errorf("Name = %q", r.Name)
	}
	if r.Mode != target.ModeAirmass || r.MaxAirmass != 2.0 {
		t.Errorf("Mode/MaxAirmass = %v/%v, want ModeAirmass/2.0", r.Mode, r.MaxAirmass)
	}
	if r.Project != "andromeda" {
		t.Errorf("Project = %q", r.Project)
	}
	if r.Instrument != "wfc" || r.ObsMode != "imaging" || r.Group != "groupA" || r.Block != "block1" {
		t.Errorf("obinfo split wrong: %+v", r)
	}
}

func TestParse_ProperMotionSuffix(t *testing.T) {
	lines := []string{"Barnard 17 57 48.5/10.3 +4 41 36/-2.9 2000 300 pm 1.5 astrometry inst///"}
	res := Parse(lines)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	r := res.Records[0]
	if r.PMRAArcsecPerYearCosDelta != 10.3 || r.PMDecArcsecPerYear != -2.9 {
		t.Errorf("proper motion = %v/%v, want 10.3/-2.9", r.PMRAArcsecPerYearCosDelta, r.PMDecArcsecPerYear)
	}
}

func TestParse_UTWindowWithFillSlot(t *testing.T) {
	lines := []string{"Flat 12 0 0 +0 0 0 2000 * cal UT[20:00-20:30] flat none///"}
	res := Parse(lines)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	r := res.Records[0]
	if !r.FillSlot {
		t.Error("FillSlot = false, want true for exptime '*'")
	}
	if r.Mode != target.ModeUTWindow {
		t.Errorf("Mode = %v, want ModeUTWindow", r.Mode)
	}
	if r.UTMinHours != 20.0 || r.UTMaxHours != 20.5 {
		t.Errorf("UT window = %v-%v, want 20-20.5", r.UTMinHours, r.UTMaxHours)
	}
}

func TestParse_FillSlotWithoutWindowIsAnError(t *testing.T) {
	lines := []string{"Flat 12 0 0 +0 0 0 2000 * cal 2.0 flat none///"}
	res := Parse(lines)
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(res.Errors))
	}
}

func TestParse_OfflineLine(t *testing.T) {
	lines := []string{"Offline 02:00 04:30", "#BadWolf 05:00 05:15"}
	res := Parse(lines)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Offline) != 2 {
		t.Fatalf("got %d offline intervals, want 2", len(res.Offline))
	}
	if res.Offline[0].StartHours != 2.0 || res.Offline[0].EndHours != 4.5 {
		t.Errorf("offline[0] = %+v", res.Offline[0])
	}
}

func TestParse_WrongFieldCountIsCollectedNotFatal(t *testing.T) {
	lines := []string{
		"Bad Line With Too Few Fields",
		"M31 0 42 44.3 +41 16 9 2000 600 andromeda 2.0 photometry wfc/imaging/groupA/block1",
	}
	res := Parse(lines)
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1 good record despite the bad line", len(res.Records))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(res.Errors))
	}
}

func TestFormat_RoundTripsThroughParse(t *testing.T) {
	lines := []string{"Vega 18 36 56.3/1.7 +38 47 1.3/0.2 2000 120 stars 1.8 spectroscopy spec/echelle/g1/b1"}
	res := Parse(lines)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected parse errors: %v", res.Errors)
	}
	tg := NewTarget(res.Records[0])

	out := Format(tg)
	fields := strings.Fields(out)
	if len(fields) != 13 {
		t.Fatalf("Format produced %d fields, want 13: %q", len(fields), out)
	}

	res2 := Parse([]string{out})
	if len(res2.Errors) != 0 {
		t.Fatalf("re-parsing Format's output failed: %v", res2.Errors)
	}
	tg2 := NewTarget(res2.Records[0])

	if tg2.Project != tg.Project || tg2.ObservationType != tg.ObservationType {
		t.Errorf("round trip lost Project/ObservationType: %+v vs %+v", tg, tg2)
	}
	if tg2.MaxAirmass != tg.MaxAirmass {
		t.Errorf("round trip lost MaxAirmass: %v vs %v", tg.MaxAirmass, tg2.MaxAirmass)
	}
}
