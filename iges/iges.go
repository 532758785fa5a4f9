/*
Package iges reads the parts of an IGES exchange file needed before the geometry reaches the
kernel: the declared length unit from the Global section and the entity listing from the
Directory Entry section.

Every IGES card is 80 columns wide. Columns 1-72 carry data, column 73 holds the section
letter and columns 74-80 a sequence number.
*/
package iges

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/notargets/airmesh/types"
)

var (
	ErrFormat          = errors.New("not an IGES exchange file")
	ErrMissingSection  = errors.New("no Global Section found")
	ErrMalformedRecord = errors.New("malformed Global Section record")
)

const (
	DataColumns = 72 // Columns 1-72 carry data
	TagColumn   = 72 // Zero based index of the section letter

	SectionStart     = 'S'
	SectionGlobal    = 'G'
	SectionDirectory = 'D'
	SectionParameter = 'P'
	SectionTerminate = 'T'

	minGlobalFields = 15
	unitsFlagField  = 11 // Zero based, counted after the two delimiter declarations
	unitsNameField  = 12
)

var hollerithPattern = regexp.MustCompile(`^(\d+)H(.*)$`)

/*
DecodeHollerith decodes a counted string of the form <n>H<text>, returning the n characters
following the H. Anything not in that form is returned unchanged.
*/
func DecodeHollerith(s string) string {
	m := hollerithPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return s
	}
	if n > len(m[2]) {
		n = len(m[2])
	}
	return m[2][:n]
}

// IsExchangeFile reports whether the file begins with an IGES Start section card
func IsExchangeFile(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return false
	}
	return isStartCard(scanner.Text())
}

/*
isStartCard accepts a first card whose trimmed text is the Start letter followed only by
digits, which is what a card with a blank data field looks like, or a full width card tagged
S in the section column.
*/
func isStartCard(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)
	if len(trimmed) > 1 && trimmed[0] == SectionStart && isDigits(strings.TrimSpace(trimmed[1:])) {
		return true
	}
	if len(line) > TagColumn && line[TagColumn] == SectionStart {
		return isDigits(strings.TrimSpace(line[TagColumn+1:]))
	}
	return false
}

func isDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ParseUnits returns the length unit declared in the Global section of an IGES file
func ParseUnits(path string) (units types.UnitsCode, err error) {
	var (
		file *os.File
	)
	if file, err = os.Open(path); err != nil {
		return
	}
	defer file.Close()
	if units, err = ParseUnitsReader(file); err != nil {
		err = fmt.Errorf("%s: %w", path, err)
	}
	return
}

func ParseUnitsReader(r io.Reader) (units types.UnitsCode, err error) {
	var (
		lines  []string
		record string
		fields []string
	)
	if lines, err = readCards(r); err != nil {
		return
	}
	if len(lines) == 0 || !isStartCard(lines[0]) {
		err = ErrFormat
		return
	}
	if record, err = GlobalRecord(lines); err != nil {
		return
	}
	if fields, err = GlobalFields(record); err != nil {
		return
	}
	name := DecodeHollerith(strings.TrimSpace(fields[unitsNameField]))
	if strings.TrimSpace(name) != "" {
		units = types.NewUnitsCode(name)
		return
	}
	flag, convErr := strconv.Atoi(strings.TrimSpace(fields[unitsFlagField]))
	if convErr != nil {
		err = fmt.Errorf("%w: blank units name and unreadable units flag %q",
			ErrMalformedRecord, fields[unitsFlagField])
		return
	}
	var ok bool
	if units, ok = types.UnitsFlagMap[flag]; !ok {
		units = types.UnitsCode(fmt.Sprintf("FLAG%d", flag))
	}
	return
}

func readCards(r io.Reader) (lines []string, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	err = scanner.Err()
	return
}

/*
GlobalRecord joins the data columns of every card tagged G, in file order. Cards shorter than
73 columns can not carry a section tag and are skipped.
*/
func GlobalRecord(lines []string) (record string, err error) {
	var sb strings.Builder
	for _, line := range lines {
		if len(line) > TagColumn && line[TagColumn] == SectionGlobal {
			sb.WriteString(line[:DataColumns])
		}
	}
	if record = sb.String(); record == "" {
		err = ErrMissingSection
	}
	return
}

/*
GlobalFields splits the Global record into its parameters, beginning with parameter 3. The
record opens with the parameter and record delimiter declarations, either as two raw
characters or in the Hollerith form 1H,,1H;, used by most writers. Counted strings are
consumed whole, so a delimiter inside a name does not start a new field.
*/
func GlobalFields(record string) (fields []string, err error) {
	pd, rd, rest, ok := readDelimiters(record)
	if !ok {
		err = fmt.Errorf("%w: record too short to declare delimiters", ErrMalformedRecord)
		return
	}
	fields = splitParameters(rest, pd)
	if n := len(fields); n > 0 {
		fields[n-1] = strings.TrimRight(strings.TrimSpace(fields[n-1]), string(rd))
	}
	if len(fields) < minGlobalFields {
		err = fmt.Errorf("%w: have %d fields, need at least %d",
			ErrMalformedRecord, len(fields), minGlobalFields)
	}
	return
}

func readDelimiters(record string) (pd, rd byte, rest string, ok bool) {
	if len(record) < 2 {
		return
	}
	if len(record) >= 4 && record[:2] == "1H" && record[3] == record[2] {
		pd, rest = record[2], record[4:]
		switch {
		case len(rest) >= 3 && rest[:2] == "1H":
			rd, rest = rest[2], rest[3:]
			if len(rest) > 0 && rest[0] == pd {
				rest = rest[1:]
			}
		case len(rest) > 0 && rest[0] == pd:
			rd, rest = ';', rest[1:]
		default:
			rd = ';'
		}
		return pd, rd, rest, true
	}
	return record[0], record[1], record[2:], true
}

func splitParameters(s string, pd byte) (fields []string) {
	var (
		start int
		i     int
	)
	for i < len(s) {
		if n, textStart, isH := hollerithAt(s, start, i); isH {
			i = textStart + n
			if i > len(s) {
				i = len(s)
			}
			continue
		}
		if s[i] == pd {
			fields = append(fields, s[start:i])
			start = i + 1
		}
		i++
	}
	fields = append(fields, s[start:])
	return
}

// hollerithAt detects a counted string starting at the beginning of the current field
func hollerithAt(s string, fieldStart, i int) (n, textStart int, ok bool) {
	if strings.TrimSpace(s[fieldStart:i]) != "" {
		return
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i || j >= len(s) || s[j] != 'H' {
		return
	}
	var err error
	if n, err = strconv.Atoi(s[i:j]); err != nil {
		return
	}
	return n, j + 1, true
}
