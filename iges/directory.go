package iges

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EntityTypeNames covers the entity types that describe solids and their names
var EntityTypeNames = map[int]string{
	128: "Rational B-Spline Surface",
	143: "Bounded Surface",
	144: "Trimmed Surface",
	150: "Block",
	152: "Right Angular Wedge",
	154: "Right Circular Cylinder",
	156: "Right Circular Cone Frustum",
	158: "Sphere",
	160: "Torus",
	186: "Manifold Solid B-Rep Object",
	308: "Subfigure Definition",
	406: "Property",
	502: "Vertex List",
	504: "Edge List",
	508: "Loop",
	510: "Face",
	514: "Shell",
}

// DirectoryEntry is the pair of D cards describing one entity
type DirectoryEntry struct {
	Sequence         int // Sequence number of the first card
	Type             int
	ParameterPointer int
	ParameterLines   int
	Form             int
	Label            string
	Subscript        int
}

func (de DirectoryEntry) TypeName() string {
	if name, ok := EntityTypeNames[de.Type]; ok {
		return name
	}
	return "Entity " + strconv.Itoa(de.Type)
}

// IsSolid reports whether the entry is a manifold solid or a CSG primitive
func (de DirectoryEntry) IsSolid() bool {
	return de.Type == 186 || (de.Type >= 150 && de.Type <= 164)
}

func ReadDirectory(path string) (entries []DirectoryEntry, err error) {
	var (
		file  *os.File
		lines []string
	)
	if file, err = os.Open(path); err != nil {
		return
	}
	defer file.Close()
	if lines, err = readCards(file); err != nil {
		return
	}
	if len(lines) == 0 || !isStartCard(lines[0]) {
		err = fmt.Errorf("%s: %w", path, ErrFormat)
		return
	}
	return parseDirectory(lines)
}

func parseDirectory(lines []string) (entries []DirectoryEntry, err error) {
	var dCards []string
	for _, line := range lines {
		if len(line) > TagColumn && line[TagColumn] == SectionDirectory {
			dCards = append(dCards, line)
		}
	}
	if len(dCards)%2 != 0 {
		err = fmt.Errorf("directory section has an odd number of cards (%d)", len(dCards))
		return
	}
	for i := 0; i < len(dCards); i += 2 {
		first, second := dCards[i], dCards[i+1]
		de := DirectoryEntry{
			Sequence:         cardInt(first, 73, 80),
			Type:             cardInt(first, 0, 8),
			ParameterPointer: cardInt(first, 8, 16),
			ParameterLines:   cardInt(second, 24, 32),
			Form:             cardInt(second, 32, 40),
			Label:            strings.TrimSpace(cardField(second, 56, 64)),
			Subscript:        cardInt(second, 64, 72),
		}
		entries = append(entries, de)
	}
	return
}

// cardField returns columns [from, to) of a card, tolerating short cards
func cardField(card string, from, to int) string {
	if from >= len(card) {
		return ""
	}
	if to > len(card) {
		to = len(card)
	}
	return card[from:to]
}

func cardInt(card string, from, to int) int {
	v, _ := strconv.Atoi(strings.TrimSpace(cardField(card, from, to)))
	return v
}
