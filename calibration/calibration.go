package calibration

// Parse OziExplorer-style .map calibration files. The only lines that matter
// are the "MMPLL" corner lines, indexed 1-3, which carry the world
// coordinates of the top-left, top-right and bottom-right corners:
//
//	MMPLL, 1, 1, -10.0, 20.0
//	MMPLL, 2, 1, 30.0, 5.0
//	MMPLL, 3, 1, 5.0, 5.0
//
// Everything else in the file is ignored. The "other" field on the index 2
// and index 3 lines is discarded without being checked against the index 1
// values, which matches how these files are produced in the wild.

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Bounds is the world-space extent of a calibrated raster, in the units of
// the calibration file (longitude and latitude degrees for the files this
// package is used with).
type Bounds struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

// ParseError is returned when a calibration file can not be reduced to a
// complete set of bounds.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Invalid map calibration, %s", e.Reason)
}

// Parse derives a Bounds instance from the raw bytes of a .map calibration
// file. It is a pure function of its input.
func Parse(body []byte) (*Bounds, error) {

	if !utf8.Valid(body) {
		return nil, &ParseError{Reason: "body is not valid UTF-8"}
	}

	var minx, miny, maxx, maxy float64
	var has_minx, has_miny, has_maxx, has_maxy bool

	for _, ln := range strings.Split(string(body), "\n") {

		ln = strings.TrimRight(ln, "\r")

		var idx int

		switch {
		case strings.HasPrefix(ln, "MMPLL, 1"):
			idx = 1
		case strings.HasPrefix(ln, "MMPLL, 2"):
			idx = 2
		case strings.HasPrefix(ln, "MMPLL, 3"):
			idx = 3
		default:
			continue
		}

		first, second, err := cornerFields(ln)

		if err != nil {
			return nil, err
		}

		switch idx {
		case 1:
			minx = first
			maxy = second
			has_minx = true
			has_maxy = true
		case 2:
			maxx = first
			has_maxx = true
		case 3:
			miny = second
			has_miny = true
		}
	}

	if !has_minx || !has_miny || !has_maxx || !has_maxy {
		return nil, &ParseError{Reason: "one or more MMPLL corner lines are missing"}
	}

	b := &Bounds{
		MinX: minx,
		MinY: miny,
		MaxX: maxx,
		MaxY: maxy,
	}

	return b, nil
}

// cornerFields returns the two numeric coordinate fields of an MMPLL line,
// which follow the tag, the corner index and the point sub-index.
func cornerFields(ln string) (float64, float64, error) {

	fields := strings.Split(ln, ",")

	if len(fields) < 5 {
		return 0, 0, &ParseError{Reason: fmt.Sprintf("corner line has %d fields, expected at least 5", len(fields))}
	}

	first, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)

	if err != nil {
		return 0, 0, &ParseError{Reason: fmt.Sprintf("corner line field '%s' is not a number", strings.TrimSpace(fields[3]))}
	}

	second, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)

	if err != nil {
		return 0, 0, &ParseError{Reason: fmt.Sprintf("corner line field '%s' is not a number", strings.TrimSpace(fields[4]))}
	}

	return first, second, nil
}
