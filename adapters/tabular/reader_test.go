package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanepanel/domain/core"
	"sanepanel/domain/panel"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panel.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func snisContract() Contract {
	return Contract{
		EntityCol: "COD_MUN",
		YearCol:   "ANO_REF",
		Columns:   []string{"AG001", "FN002"},
	}
}

func TestReadCSV(t *testing.T) {
	path := writeCSV(t, `COD_MUN,ANO_REF,AG001,FN002
3550308,2019,95.5,120.3
3550308,2020,96.1,125.8
3304557,2019,88.2,98.4
3304557,2020,89.0,101.2
`)

	frame, err := NewReader(path, snisContract()).Read()
	require.NoError(t, err)

	assert.Equal(t, 4, frame.Len())
	assert.Equal(t, 2, frame.NumEntities())
	assert.Equal(t, []int{2019, 2020}, frame.Years())

	rec := frame.Record(0)
	assert.Equal(t, panel.EntityID("3304557"), rec.Entity)
	assert.Equal(t, 2019, rec.Year)
	assert.Equal(t, 88.2, rec.Values["AG001"])
}

func TestReadBrazilianDecimals(t *testing.T) {
	path := writeCSV(t, `COD_MUN,ANO_REF,AG001,FN002
3550308,2019,"95,5","1.234.567,89"
3550308,2020,"96,1","125,8"
`)

	frame, err := NewReader(path, snisContract()).Read()
	require.NoError(t, err)
	require.Equal(t, 2, frame.Len())

	rec := frame.Record(0)
	assert.Equal(t, 95.5, rec.Values["AG001"])
	assert.Equal(t, 1234567.89, rec.Values["FN002"])
}

func TestMissingColumnFailsNamingIt(t *testing.T) {
	path := writeCSV(t, `COD_MUN,ANO_REF,AG001
3550308,2019,95.5
`)

	_, err := NewReader(path, snisContract()).Read()
	require.Error(t, err)
	assert.True(t, core.IsMalformedInput(err))
	assert.Contains(t, err.Error(), "FN002")
}

func TestDuplicateKeyFails(t *testing.T) {
	path := writeCSV(t, `COD_MUN,ANO_REF,AG001,FN002
3550308,2019,95.5,120.3
3550308,2019,96.1,125.8
`)

	_, err := NewReader(path, snisContract()).Read()
	require.Error(t, err)
	assert.True(t, core.IsMalformedInput(err))
}

func TestIncompleteRowsDropWhole(t *testing.T) {
	// Missing AG001 in one row, unparseable FN002 in another; both rows go.
	path := writeCSV(t, `COD_MUN,ANO_REF,AG001,FN002
3550308,2019,95.5,120.3
3550308,2020,,125.8
3304557,2019,88.2,n/d
3304557,2020,89.0,101.2
`)

	frame, err := NewReader(path, snisContract()).Read()
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())
}

func TestEntityWithNoValidRowsVanishes(t *testing.T) {
	// A municipality whose every row is incomplete must leave no trace: the
	// resulting frame is identical to one read from a file without it.
	withGaps := writeCSV(t, `COD_MUN,ANO_REF,AG001,FN002
3550308,2019,95.5,120.3
3550308,2020,96.1,125.8
3106200,2019,,77.1
3106200,2020,81.4,
`)
	without := writeCSV(t, `COD_MUN,ANO_REF,AG001,FN002
3550308,2019,95.5,120.3
3550308,2020,96.1,125.8
`)

	a, err := NewReader(withGaps, snisContract()).Read()
	require.NoError(t, err)
	b, err := NewReader(without, snisContract()).Read()
	require.NoError(t, err)

	assert.Equal(t, b.Entities(), a.Entities())
	assert.Equal(t, b.Len(), a.Len())
	for i := 0; i < b.Len(); i++ {
		assert.Equal(t, b.Record(i), a.Record(i))
	}
}

func TestAllRowsIncompleteFails(t *testing.T) {
	path := writeCSV(t, `COD_MUN,ANO_REF,AG001,FN002
3550308,2019,,120.3
`)

	_, err := NewReader(path, snisContract()).Read()
	require.Error(t, err)
	assert.True(t, core.IsMalformedInput(err))
}

func TestFileNotFound(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.csv"), snisContract()).Read()
	require.Error(t, err)
	assert.True(t, core.IsMalformedInput(err))
}
