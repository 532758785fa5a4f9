package iges_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notargets/airmesh/iges"
	"github.com/notargets/airmesh/iges/igestest"
	"github.com/notargets/airmesh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "part.igs")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecodeHollerith(t *testing.T) {
	assert.Equal(t, "TEST", iges.DecodeHollerith("4HTEST"))
	assert.Equal(t, "AB", iges.DecodeHollerith("2HAB"))
	assert.Equal(t, "MM", iges.DecodeHollerith("2HMM"))
	// Declared length shorter than the text
	assert.Equal(t, "AB", iges.DecodeHollerith("2HABCD"))
	// Declared length longer than the text takes what is there
	assert.Equal(t, "AB", iges.DecodeHollerith("9HAB"))
	for _, plain := range []string{"MM", "INCH", "", "H2", "12", "1.0", "4hTEST"} {
		assert.Equal(t, plain, iges.DecodeHollerith(plain))
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name      string
		flag      int
		unitsName string
		want      types.UnitsCode
	}{
		{"hollerith mm", 2, "2HMM", types.UnitsMM},
		{"hollerith cm", 10, "2HCM", types.UnitsCM},
		{"hollerith m", 6, "1HM", types.UnitsM},
		{"plain mm", 2, "MM", types.UnitsMM},
		{"inches", 1, "4HINCH", types.UnitsCode("INCH")},
		{"blank name uses flag", 10, "", types.UnitsCM},
		{"blank name inch flag", 1, "", types.UnitsCode("IN")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestFile(t, igestest.NewTestFile(igestest.GlobalData(tt.flag, tt.unitsName)))
			units, err := iges.ParseUnits(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, units)
		})
	}
}

func TestParseUnitsRawDelimiters(t *testing.T) {
	// The two raw character form of the delimiter declarations
	data := strings.Replace(igestest.GlobalData(2, "2HMM"), "1H,,1H;,", ",;", 1)
	units, err := iges.ParseUnitsReader(strings.NewReader(igestest.NewTestFile(data)))
	require.NoError(t, err)
	assert.Equal(t, types.UnitsMM, units)
}

func TestParseUnitsDelimiterInsideName(t *testing.T) {
	data := strings.Replace(igestest.GlobalData(2, "2HMM"), "9Htest part", "9Htest,part", 1)
	units, err := iges.ParseUnitsReader(strings.NewReader(igestest.NewTestFile(data)))
	require.NoError(t, err)
	assert.Equal(t, types.UnitsMM, units)
}

func TestParseUnitsErrors(t *testing.T) {
	{ // Not an exchange file
		_, err := iges.ParseUnitsReader(strings.NewReader("solid cube\nfacet normal 0 0 1\n"))
		assert.ErrorIs(t, err, iges.ErrFormat)
	}
	{ // Empty input
		_, err := iges.ParseUnitsReader(strings.NewReader(""))
		assert.ErrorIs(t, err, iges.ErrFormat)
	}
	{ // No G cards
		content := igestest.Card("start", iges.SectionStart, 1) + "\n" + igestest.Card("S0000001", iges.SectionTerminate, 1) + "\n"
		_, err := iges.ParseUnitsReader(strings.NewReader(content))
		assert.ErrorIs(t, err, iges.ErrMissingSection)
	}
	{ // G letter present but the cards are too short to carry it in column 73
		content := igestest.Card("start", iges.SectionStart, 1) + "\n" + "1H,,1H;,2HMM" + strings.Repeat(" ", 10) + "G\n"
		_, err := iges.ParseUnitsReader(strings.NewReader(content))
		assert.ErrorIs(t, err, iges.ErrMissingSection)
	}
	{ // Too few fields
		_, err := iges.ParseUnitsReader(strings.NewReader(igestest.NewTestFile("1H,,1H;,4HPART,2HMM;")))
		assert.ErrorIs(t, err, iges.ErrMalformedRecord)
	}
	{ // Missing file
		_, err := iges.ParseUnits(filepath.Join(t.TempDir(), "missing.igs"))
		assert.Error(t, err)
	}
}

func TestGlobalRecordSpansCards(t *testing.T) {
	data := igestest.GlobalData(2, "2HMM")
	require.Greater(t, len(data), iges.DataColumns)
	lines := strings.Split(igestest.NewTestFile(data), "\n")
	record, err := iges.GlobalRecord(lines)
	require.NoError(t, err)
	assert.Equal(t, data, strings.TrimRight(record, " "))
}

func TestIsExchangeFile(t *testing.T) {
	assert.True(t, iges.IsExchangeFile(writeTestFile(t, igestest.NewTestFile(igestest.GlobalData(2, "2HMM")))))
	assert.True(t, iges.IsExchangeFile(writeTestFile(t, "S      1\n")))
	assert.False(t, iges.IsExchangeFile(writeTestFile(t, "ISO-10303-21;\nHEADER;\n")))
	assert.False(t, iges.IsExchangeFile(filepath.Join(t.TempDir(), "missing.igs")))
}

func TestIsExchangeFileStartCard(t *testing.T) {
	// Trimmed first card is the marker followed by digits
	assert.True(t, iges.IsExchangeFile(writeTestFile(t, "S0000001\n")))
	// Full width card carrying text, tagged S in column 73
	assert.True(t, iges.IsExchangeFile(writeTestFile(t, igestest.Card("exported by a CAD system", iges.SectionStart, 1)+"\n")))
	// Text starting with S is not a start card
	assert.False(t, iges.IsExchangeFile(writeTestFile(t, "Solid cube\n")))
	// S present but two columns past the tag column
	assert.False(t, iges.IsExchangeFile(writeTestFile(t, "text"+strings.Repeat(" ", 70)+"S      1\n")))
	// Full width card tagged S with a non numeric sequence
	assert.False(t, iges.IsExchangeFile(writeTestFile(t, strings.Repeat(" ", 72)+"Sabc\n")))
}

func TestReadDirectory(t *testing.T) {
	var dir []string
	dir = append(dir, igestest.DirectoryCards(1, 186, 1, 0, "MAGNET", 1)...)
	dir = append(dir, igestest.DirectoryCards(3, 514, 5, 1, "SHELL", 0)...)
	path := writeTestFile(t, igestest.NewTestFile(igestest.GlobalData(2, "2HMM"), dir...))

	entries, err := iges.ReadDirectory(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 186, entries[0].Type)
	assert.Equal(t, "MAGNET", entries[0].Label)
	assert.Equal(t, 1, entries[0].Subscript)
	assert.True(t, entries[0].IsSolid())
	assert.Equal(t, "Manifold Solid B-Rep Object", entries[0].TypeName())
	assert.Equal(t, 514, entries[1].Type)
	assert.Equal(t, 1, entries[1].Form)
	assert.Equal(t, 5, entries[1].ParameterPointer)
	assert.False(t, entries[1].IsSolid())
}
