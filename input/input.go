// Package input parses and reconstructs the plain-text target list format:
// one sidereal target or one offline interval per line, whitespace
// separated, comments and blank lines ignored. Malformed lines are
// collected, not fatal — a batch with a few bad lines still yields every
// good one.
package input

import (
	"strconv"
	"strings"

	"github.com/kestrelsky/visplot/target"
	"github.com/kestrelsky/visplot/units"
	"github.com/kestrelsky/visplot/visploterr"
)

// Record is one parsed target line, not yet a target.Target: building the
// Target itself needs the night's grid step (for SetExposure) which this
// package does not depend on.
type Record struct {
	Line int

	Name     string
	InputRA  string
	InputDec string
	RAHours  float64
	DecDeg   float64
	Epoch    float64

	PMRAArcsecPerYearCosDelta float64
	PMDecArcsecPerYear        float64

	ExposureSeconds float64
	FillSlot        bool

	Project         string
	ObservationType string
	Instrument      string
	ObsMode         string
	Group           string
	Block           string

	Mode             target.ConstraintMode
	MaxAirmass       float64
	UTMinHours       float64 // hours-of-night, Mode == ModeUTWindow
	UTMaxHours       float64
	LSTMinHours      float64 // Mode == ModeLSTWindow
	LSTMaxHours      float64
}

// Offline is one "site shut down" interval, given as hours-of-night; the
// caller resolves it against a specific Night's sunset date.
type Offline struct {
	Line       int
	StartHours float64
	EndHours   float64
}

// ParseResult is the outcome of parsing a batch of lines.
type ParseResult struct {
	Records []Record
	Offline []Offline
	Errors  []error
}

// Parse reads the canonical 13-field line format. It never aborts on the
// first bad line: each malformed line contributes one *visploterr.InputError
// to Errors and parsing continues (DESIGN.md Open Question #4).
func Parse(lines []string) ParseResult {
	var res ParseResult
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		bare := strings.TrimPrefix(line, "#")
		bare = strings.TrimSpace(bare)
		fields := strings.Fields(bare)
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "Offline" || fields[0] == "BadWolf" {
			off, err := parseOffline(lineNo, fields)
			if err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			res.Offline = append(res.Offline, off)
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := parseRecord(lineNo, fields)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func parseOffline(lineNo int, fields []string) (Offline, error) {
	if len(fields) != 3 {
		return Offline{}, visploterr.NewInputError(lineNo, "field-count",
			"Offline/BadWolf line needs exactly a start and end hh:mm")
	}
	start, err := parseClockHours(fields[1])
	if err != nil {
		return Offline{}, visploterr.NewInputError(lineNo, "bad-time", err.Error())
	}
	end, err := parseClockHours(fields[2])
	if err != nil {
		return Offline{}, visploterr.NewInputError(lineNo, "bad-time", err.Error())
	}
	return Offline{Line: lineNo, StartHours: start, EndHours: end}, nil
}

func parseRecord(lineNo int, fields []string) (Record, error) {
	if len(fields) != 13 {
		return Record{}, visploterr.NewInputError(lineNo, "field-count",
			"expected 13 fields, got "+strconv.Itoa(len(fields)))
	}

	rec := Record{Line: lineNo, Name: fields[0]}

	rah, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Record{}, visploterr.NewInputError(lineNo, "bad-ra", "RA hours: "+err.Error())
	}
	ram, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Record{}, visploterr.NewInputError(lineNo, "bad-ra", "RA minutes: "+err.Error())
	}

	rasField := fields[3]
	var pmra float64
	if idx := strings.IndexByte(rasField, '/'); idx >= 0 {
		pmra, err = strconv.ParseFloat(rasField[idx+1:], 64)
		if err != nil {
			return Record{}, visploterr.NewInputError(lineNo, "bad-pmra", err.Error())
		}
		rasField = rasField[:idx]
	}
	ras, err := strconv.ParseFloat(rasField, 64)
	if err != nil {
		return Record{}, visploterr.NewInputError(lineNo, "bad-ra", "RA seconds: "+err.Error())
	}
	rec.InputRA = fields[1] + ":" + fields[2] + ":" + fields[3]
	rec.RAHours = units.AngleFromHours(rah + ram/60.0 + ras/3600.0).Hours()
	rec.PMRAArcsecPerYearCosDelta = pmra

	decSignField := fields[4]
	sign := 1.0
	if strings.HasPrefix(decSignField, "-") {
		sign = -1.0
		decSignField = decSignField[1:]
	} else if strings.HasPrefix(decSignField, "+") {
		decSignField = decSignField[1:]
	}
	decd, err := strconv.ParseFloat(decSignField, 64)
	if err != nil {
		return Record{}, visploterr.NewInputError(lineNo, "bad-dec", "dec degrees: "+err.Error())
	}
	decm, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return Record{}, visploterr.NewInputError(lineNo, "bad-dec", "dec minutes: "+err.Error())
	}

	decsField := fields[6]
	var pmdec float64
	if idx := strings.IndexByte(decsField, '/'); idx >= 0 {
		pmdec, err = strconv.ParseFloat(decsField[idx+1:], 64)
		if err != nil {
			return Record{}, visploterr.NewInputError(lineNo, "bad-pmdec", err.Error())
		}
		decsField = decsField[:idx]
	}
	decs, err := strconv.ParseFloat(decsField, 64)
	if err != nil {
		return Record{}, visploterr.NewInputError(lineNo, "bad-dec", "dec seconds: "+err.Error())
	}
	rec.InputDec = fields[4] + ":" + fields[5] + ":" + fields[6]
	rec.DecDeg = sign * units.AngleFromDegrees(decd+decm/60.0+decs/3600.0).Degrees()
	rec.PMDecArcsecPerYear = pmdec

	epoch, err := strconv.ParseFloat(fields[7], 64)
	if err != nil {
		return Record{}, visploterr.NewInputError(lineNo, "bad-epoch", err.Error())
	}
	rec.Epoch = epoch

	constraintField := fields[10]
	if err := parseConstraint(lineNo, constraintField, &rec); err != nil {
		return Record{}, err
	}

	if fields[8] == "*" {
		if rec.Mode != target.ModeUTWindow && rec.Mode != target.ModeLSTWindow {
			return Record{}, visploterr.NewInputError(lineNo, "exptime-star",
				"exptime '*' (fill-slot) requires a UT[] or LST[] window constraint")
		}
		rec.FillSlot = true
	} else {
		exp, err := strconv.ParseFloat(fields[8], 64)
		if err != nil {
			return Record{}, visploterr.NewInputError(lineNo, "bad-exptime", err.Error())
		}
		rec.ExposureSeconds = exp
	}

	rec.Project = fields[9]
	rec.ObservationType = fields[11]

	obinfo := strings.Split(fields[12], "/")
	if len(obinfo) > 0 {
		rec.Instrument = obinfo[0]
	}
	if len(obinfo) > 1 {
		rec.ObsMode = obinfo[1]
	}
	if len(obinfo) > 2 {
		rec.Group = obinfo[2]
	}
	if len(obinfo) > 3 {
		rec.Block = obinfo[3]
	}

	return rec, nil
}

func parseConstraint(lineNo int, field string, rec *Record) error {
	switch {
	case strings.HasPrefix(field, "UT[") && strings.HasSuffix(field, "]"):
		lo, hi, err := parseWindowHours(field[3 : len(field)-1])
		if err != nil {
			return visploterr.NewInputError(lineNo, "bad-ut-window", err.Error())
		}
		rec.Mode = target.ModeUTWindow
		rec.UTMinHours, rec.UTMaxHours = lo, hi
		return nil
	case strings.HasPrefix(field, "LST[") && strings.HasSuffix(field, "]"):
		lo, hi, err := parseWindowHours(field[4 : len(field)-1])
		if err != nil {
			return visploterr.NewInputError(lineNo, "bad-lst-window", err.Error())
		}
		rec.Mode = target.ModeLSTWindow
		rec.LSTMinHours, rec.LSTMaxHours = lo, hi
		return nil
	default:
		airmass, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return visploterr.NewInputError(lineNo, "unknown-constraint",
				"expected a float, UT[hh:mm-hh:mm], or LST[hh:mm-hh:mm]: "+field)
		}
		rec.Mode = target.ModeAirmass
		rec.MaxAirmass = airmass
		return nil
	}
}

func parseWindowHours(body string) (lo, hi float64, err error) {
	parts := strings.SplitN(body, "-", 2)
	if len(parts) != 2 {
		return 0, 0, &strconvErr{"window must be hh:mm-hh:mm"}
	}
	lo, err = parseClockHours(parts[0])
	if err != nil {
		return 0, 0, err
	}
	hi, err = parseClockHours(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func parseClockHours(s string) (float64, error) {
	a, err := units.ParseSexagesimalHours(s)
	if err != nil {
		return 0, &strconvErr{"time must be hh:mm or hh:mm:ss"}
	}
	return a.Hours(), nil
}

type strconvErr struct{ msg string }

func (e *strconvErr) Error() string { return e.msg }

// NewTarget builds a BodySidereal target.Target from a Record and sets its
// exposure against the given grid step. Scheduling fields (Mode, MaxAirmass,
// LSTMinHours/MaxHours, FillSlot, Project, ObservationType, Extra) are
// populated directly; a UT[] window's hours are resolved into the
// RestrictionMinUT/MaxUT MJD fields by the caller once the Night (and its
// date) is known, via ResolveWindow.
func NewTarget(r Record) *target.Target {
	tg := target.NewSidereal(r.Name, r.InputRA, r.InputDec, r.RAHours, r.DecDeg, r.Epoch,
		r.PMRAArcsecPerYearCosDelta, r.PMDecArcsecPerYear, 0, 0)
	tg.ExposureSeconds = r.ExposureSeconds
	tg.FillSlot = r.FillSlot
	tg.Project = r.Project
	tg.ObservationType = r.ObservationType
	tg.Extra.Instrument = r.Instrument
	tg.Extra.Mode = r.ObsMode
	tg.Extra.Group = r.Group
	tg.Extra.Block = r.Block
	tg.Mode = r.Mode
	tg.MaxAirmass = r.MaxAirmass
	tg.LSTMinHours = r.LSTMinHours
	tg.LSTMaxHours = r.LSTMaxHours
	return tg
}

// ResolveWindow converts a UT[] window's hours-of-night into the
// RestrictionMinUT/MaxUT MJD fields ModeUTWindow targets carry, anchored to
// the given night's sunset date. No-op for other Modes.
func ResolveWindow(tg *target.Target, r Record, sunsetMJD float64) {
	if r.Mode != target.ModeUTWindow {
		return
	}
	sunsetDayFloor := float64(int(sunsetMJD))
	tg.RestrictionMinUT = sunsetDayFloor + r.UTMinHours/24.0
	tg.RestrictionMaxUT = sunsetDayFloor + r.UTMaxHours/24.0
	if tg.RestrictionMaxUT < tg.RestrictionMinUT {
		tg.RestrictionMaxUT += 1.0
	}
}

// ResolveOffline converts an Offline record's hours-of-night into an MJD
// [start, end) pair anchored to the given night's sunset date.
func ResolveOffline(o Offline, sunsetMJD float64) [2]float64 {
	sunsetDayFloor := float64(int(sunsetMJD))
	start := sunsetDayFloor + o.StartHours/24.0
	end := sunsetDayFloor + o.EndHours/24.0
	if end < start {
		end += 1.0
	}
	return [2]float64{start, end}
}

// Format reconstructs the canonical 13-field line for a BodySidereal
// target, re-deriving the RA/Dec sexagesimal fields from RARad/DecRad
// rather than trusting any cached display string — the stable
// serialization prepareScheduleForUpdate's diff depends on (§4.6). The
// window hours of a UT[] target are not kept on the Target, so its
// constraint field is written as UT[0:0-0:0] and the window does not
// round-trip through Parse; LST[] window hours are written to whole minutes.
func Format(tg *target.Target) string {
	pmra, pmdec := tg.ProperMotion()

	_, rah, ram, ras := units.NewAngle(tg.RARad).HMS()
	decSign, decd, decm, decs := units.NewAngle(tg.DecRad).DMS()

	rasField := strconv.FormatFloat(ras, 'f', 3, 64)
	if pmra != 0 {
		rasField += "/" + strconv.FormatFloat(pmra, 'g', -1, 64)
	}
	decsField := strconv.FormatFloat(decs, 'f', 3, 64)
	if pmdec != 0 {
		decsField += "/" + strconv.FormatFloat(pmdec, 'g', -1, 64)
	}

	decSignStr := "+"
	if decSign < 0 {
		decSignStr = "-"
	}

	var constraintField string
	switch tg.Mode {
	case target.ModeUTWindow:
		constraintField = "UT[" + formatClockHours(0) + "-" + formatClockHours(0) + "]"
	case target.ModeLSTWindow:
		constraintField = "LST[" + formatClockHours(tg.LSTMinHours) + "-" + formatClockHours(tg.LSTMaxHours) + "]"
	default:
		constraintField = strconv.FormatFloat(tg.MaxAirmass, 'g', -1, 64)
	}

	expField := strconv.FormatFloat(tg.ExposureSeconds, 'g', -1, 64)
	if tg.FillSlot {
		expField = "*"
	}

	fields := []string{
		tg.Name,
		strconv.Itoa(rah),
		strconv.Itoa(ram),
		rasField,
		decSignStr + strconv.Itoa(decd),
		strconv.Itoa(decm),
		decsField,
		strconv.FormatFloat(tg.Epoch, 'g', -1, 64),
		expField,
		tg.Project,
		constraintField,
		tg.ObservationType,
		strings.Join([]string{tg.Extra.Instrument, tg.Extra.Mode, tg.Extra.Group, tg.Extra.Block}, "/"),
	}
	return strings.Join(fields, " ")
}

func formatClockHours(hours float64) string {
	h := int(hours)
	m := int((hours - float64(h)) * 60.0)
	return strconv.Itoa(h) + ":" + strconv.Itoa(m)
}
