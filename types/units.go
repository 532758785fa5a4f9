package types

import "strings"

/*
UnitsCode is the length unit declared by an exchange file. The supported codes are
UnitsMM, UnitsCM and UnitsM, any other value is kept verbatim so it can be reported.
*/
type UnitsCode string

const (
	UnitsMM UnitsCode = "MM"
	UnitsCM UnitsCode = "CM"
	UnitsM  UnitsCode = "M"
)

var UnitsNameMap = map[string]UnitsCode{
	"MM":          UnitsMM,
	"MILLIMETER":  UnitsMM,
	"MILLIMETERS": UnitsMM,
	"CM":          UnitsCM,
	"CENTIMETER":  UnitsCM,
	"M":           UnitsM,
	"METER":       UnitsM,
	"METERS":      UnitsM,
}

// The IGES units flag, used when the units name is blank
var UnitsFlagMap = map[int]UnitsCode{
	1:  "IN",
	2:  UnitsMM,
	4:  "FT",
	5:  "MI",
	6:  UnitsM,
	7:  "KM",
	8:  "MIL",
	9:  "UM",
	10: UnitsCM,
	11: "UIN",
}

func NewUnitsCode(name string) UnitsCode {
	n := strings.ToUpper(strings.TrimSpace(name))
	if code, ok := UnitsNameMap[n]; ok {
		return code
	}
	return UnitsCode(n)
}

func (u UnitsCode) IsSupported() bool {
	switch u {
	case UnitsMM, UnitsCM, UnitsM:
		return true
	}
	return false
}

func (u UnitsCode) String() string { return string(u) }
