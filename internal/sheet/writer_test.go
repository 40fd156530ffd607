package sheet

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spherical/catalog-extractor/internal/domain"
)

func cell(t *testing.T, f *excelize.File, name string) string {
	t.Helper()
	v, err := f.GetCellValue(SheetName, name)
	require.NoError(t, err)
	return v
}

func openWorkbook(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestColumns(t *testing.T) {
	records := []domain.Record{
		domain.NewRecord(
			domain.Field{Key: "Titolo", Value: "A"},
			domain.Field{Key: "Autore", Value: "B"},
		),
		domain.NewRecord(
			domain.Field{Key: "Editore", Value: "E"},
			domain.Field{Key: "Titolo", Value: "C"},
		),
		domain.NewRecord(domain.Field{Key: "Note", Value: nil}),
	}

	assert.Equal(t, []string{"Titolo", "Autore", "Editore", "Note"}, Columns(records))
	assert.Empty(t, Columns(nil))
}

func TestColumns_KeysMatchExactly(t *testing.T) {
	records := []domain.Record{
		domain.NewRecord(domain.Field{Key: "Citta\u0300", Value: "Roma"}),
		domain.NewRecord(domain.Field{Key: "Citt\u00e0", Value: "Milano"}),
		domain.NewRecord(domain.Field{Key: "titolo", Value: "a"}),
		domain.NewRecord(domain.Field{Key: "Titolo", Value: "b"}),
	}

	assert.Equal(t, []string{"Citta\u0300", "Citt\u00e0", "titolo", "Titolo"}, Columns(records))
}

func TestWrite_SingleRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.xlsx")
	records := []domain.Record{
		domain.NewRecord(
			domain.Field{Key: "Titolo", Value: "Moby Dick"},
			domain.Field{Key: "Autore", Value: "Melville"},
		),
	}

	columns, err := NewWriter(nil).Write(records, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Titolo", "Autore"}, columns)

	f := openWorkbook(t, path)
	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	assert.Equal(t, "Titolo", cell(t, f, "A1"))
	assert.Equal(t, "Autore", cell(t, f, "B1"))
	assert.Equal(t, "Moby Dick", cell(t, f, "A2"))
	assert.Equal(t, "Melville", cell(t, f, "B2"))
	assert.Empty(t, cell(t, f, "A3"))
	assert.Empty(t, cell(t, f, "C1"))
}

func TestWrite_MissingKeysAreEmptyCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.xlsx")
	records := []domain.Record{
		domain.NewRecord(
			domain.Field{Key: "Titolo", Value: "A"},
			domain.Field{Key: "Autore", Value: "X"},
			domain.Field{Key: "Editore", Value: "E"},
		),
		domain.NewRecord(
			domain.Field{Key: "Titolo", Value: "B"},
			domain.Field{Key: "Autore", Value: "Y"},
		),
	}

	columns, err := NewWriter(nil).Write(records, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Titolo", "Autore", "Editore"}, columns)

	f := openWorkbook(t, path)
	assert.Equal(t, "Editore", cell(t, f, "C1"))
	assert.Equal(t, "E", cell(t, f, "C2"))
	assert.Equal(t, "B", cell(t, f, "A3"))
	assert.Equal(t, "Y", cell(t, f, "B3"))
	assert.Empty(t, cell(t, f, "C3"))
}

func TestWrite_ValueTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.xlsx")
	records := []domain.Record{
		domain.NewRecord(
			domain.Field{Key: "Anno", Value: int64(1851)},
			domain.Field{Key: "Prezzo", Value: 12.5},
			domain.Field{Key: "Note", Value: nil},
			domain.Field{Key: "Titolo", Value: "Moby Dick"},
		),
	}

	_, err := NewWriter(nil).Write(records, path)
	require.NoError(t, err)

	f := openWorkbook(t, path)
	assert.Equal(t, "1851", cell(t, f, "A2"))
	assert.Equal(t, "12.5", cell(t, f, "B2"))
	assert.Empty(t, cell(t, f, "C2"))
	assert.Equal(t, "Moby Dick", cell(t, f, "D2"))
}

func TestWrite_NonFiniteNumbersAsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inf.xlsx")
	records := []domain.Record{
		domain.NewRecord(
			domain.Field{Key: "Pagine", Value: math.Inf(1)},
			domain.Field{Key: "Copie", Value: math.Inf(-1)},
			domain.Field{Key: "Prezzo", Value: math.NaN()},
		),
	}

	_, err := NewWriter(nil).Write(records, path)
	require.NoError(t, err)

	f := openWorkbook(t, path)
	assert.Equal(t, "+Inf", cell(t, f, "A2"))
	assert.Equal(t, "-Inf", cell(t, f, "B2"))
	assert.Equal(t, "NaN", cell(t, f, "C2"))
}

func TestWrite_OverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	_, err := NewWriter(nil).Write([]domain.Record{
		domain.NewRecord(domain.Field{Key: "Titolo", Value: "Nuovo"}),
	}, path)
	require.NoError(t, err)

	f := openWorkbook(t, path)
	assert.Equal(t, "Nuovo", cell(t, f, "A2"))
}

func TestWrite_NoTemporaryFilesLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalogo.xlsx")

	_, err := NewWriter(nil).Write([]domain.Record{
		domain.NewRecord(domain.Field{Key: "Titolo", Value: "A"}),
	}, path)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "catalogo.xlsx", entries[0].Name())
}

func TestCheckPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"xlsx", "out/catalogo.xlsx", false},
		{"upper case extension", "out/CATALOGO.XLSX", false},
		{"csv", "out/catalogo.csv", true},
		{"legacy xls", "out/catalogo.xls", true},
		{"no extension", "out/catalogo", true},
		{"xlsx in directory name only", "out.xlsx/catalogo", true},
		{"empty", "", true},
	}

	w := NewWriter(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.CheckPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsType(err, domain.ErrorTypePersistence))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWrite_Errors(t *testing.T) {
	records := []domain.Record{domain.NewRecord(domain.Field{Key: "Titolo", Value: "A"})}

	t.Run("bad extension creates no file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "catalogo.csv")

		_, err := NewWriter(nil).Write(records, path)
		require.Error(t, err)
		assert.True(t, domain.IsType(err, domain.ErrorTypePersistence))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("empty record list", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalogo.xlsx")

		_, err := NewWriter(nil).Write(nil, path)
		require.Error(t, err)
		assert.True(t, domain.IsType(err, domain.ErrorTypePersistence))
		assert.NoFileExists(t, path)
	})

	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "catalogo.xlsx")

		_, err := NewWriter(nil).Write(records, path)
		require.Error(t, err)
		assert.True(t, domain.IsType(err, domain.ErrorTypePersistence))
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.NoFileExists(t, path)
	})
}
