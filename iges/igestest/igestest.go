/*
Package igestest builds small IGES files for tests.
*/
package igestest

import (
	"fmt"
	"strings"

	"github.com/notargets/airmesh/iges"
)

// Card formats one 80 column card
func Card(data string, section byte, seq int) string {
	return fmt.Sprintf("%-72s%c%7d", data, section, seq)
}

// Cards splits data over as many cards of the given section as needed
func Cards(data string, section byte) (cards []string) {
	seq := 1
	for len(data) > iges.DataColumns {
		cards = append(cards, Card(data[:iges.DataColumns], section, seq))
		data = data[iges.DataColumns:]
		seq++
	}
	cards = append(cards, Card(data, section, seq))
	return
}

/*
GlobalData builds a Global section record declaring the given units flag and units name field.
The name is written as given, so callers pass either a counted string like 2HMM or plain text.
*/
func GlobalData(unitsFlag int, unitsName string) string {
	return strings.Join([]string{
		"1H,,1H;", "9Htest part", "13Htest_part.igs", "13Hairmesh tests", "4H1.00",
		"32", "38", "6", "308", "15", "9Htest part", "1.",
		fmt.Sprint(unitsFlag), unitsName,
		"1", "0.01", "15H20241017.120000", "1.0E-06", "500.", "6Htester", "7Hairmesh", "11", "0",
		"15H20241017.120000;",
	}, ",")
}

// NewTestFile returns the text of a minimal IGES file with the given Global record
func NewTestFile(globalData string, directory ...string) string {
	var cards []string
	cards = append(cards, Card("airmesh test file", iges.SectionStart, 1))
	cards = append(cards, Cards(globalData, iges.SectionGlobal)...)
	cards = append(cards, directory...)
	cards = append(cards, Card("S0000001G0000003D0000000P0000000", iges.SectionTerminate, 1))
	return strings.Join(cards, "\n") + "\n"
}

// DirectoryCards formats the two D cards for one entity
func DirectoryCards(seq, entityType, pdPointer, form int, label string, subscript int) []string {
	first := fmt.Sprintf("%8d%8d%8d%8d%8d%8d%8d%8d%8s", entityType, pdPointer, 0, 0, 0, 0, 0, 0, "00000000")
	second := fmt.Sprintf("%8d%8d%8d%8d%8d%8s%8s%8s%8d", entityType, 0, 0, 1, form, "", "", label, subscript)
	return []string{Card(first, iges.SectionDirectory, seq), Card(second, iges.SectionDirectory, seq+1)}
}
