package importer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"era-vendors-api/internal/models"
	"era-vendors-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

// workbook builds an .xlsx file with one sheet per entry of sheets.
func workbook(t *testing.T, sheets map[string][][]string) *bytes.Reader {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sh, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, cells := range rows {
			row := sh.AddRow()
			for _, v := range cells {
				row.AddCell().SetString(v)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func TestImportVendors_CreatesWithDefaults(t *testing.T) {
	s := store.NewMemoryStore(nil)
	r := workbook(t, map[string][][]string{
		"Vendors": {
			{"Vendor Name", "Contact", "E-mail", "Phone", "Address"},
			{"Acme", "Wile E.", "wile@acme.test", "", "1 Desert Rd"},
			{"Globex", "", "", "", ""},
		},
	})

	sum, err := ImportVendors(context.Background(), s, r, ImportOptions{Actor: "Importer"})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Inserted)
	assert.Zero(t, sum.Errors)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	byName := map[string]models.Vendor{}
	for _, v := range list {
		byName[v.Name] = v
	}
	assert.Equal(t, models.VendorFields{
		Name: "Acme", ContactPerson: "Wile E.", Email: "wile@acme.test", Phone: "N/A", Address: "1 Desert Rd",
	}, byName["Acme"].VendorFields)
	assert.Equal(t, models.VendorFields{
		Name: "Globex", ContactPerson: "N/A", Email: "N/A", Phone: "N/A", Address: "",
	}, byName["Globex"].VendorFields)
	assert.Equal(t, "Importer", byName["Acme"].History[0].User)
}

func TestImportVendors_RowErrorsAndSkips(t *testing.T) {
	s := store.NewMemoryStore(nil)
	r := workbook(t, map[string][][]string{
		"Vendors": {
			{"Name", "Email"},
			{"", "orphan@example.test"},
			{"", ""},
			{"Initech", ""},
		},
	})

	sum, err := ImportVendors(context.Background(), s, r, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 1, sum.Errors)
	require.Len(t, sum.Sheets, 1)
	require.Len(t, sum.Sheets[0].Samples, 1)
	assert.Equal(t, RowError{Sheet: "Vendors", Row: 2, Message: "vendor name is required"}, sum.Sheets[0].Samples[0])
}

func TestImportVendors_DryRunWritesNothing(t *testing.T) {
	s := store.NewMemoryStore(nil)
	r := workbook(t, map[string][][]string{
		"Vendors": {{"Name"}, {"Acme"}, {"Globex"}},
	})

	sum, err := ImportVendors(context.Background(), s, r, ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, sum.DryRun)
	assert.Equal(t, 2, sum.Inserted)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportVendors_UpdatesExistingByName(t *testing.T) {
	s := store.NewMemoryStore(nil)
	f := models.NewVendorFields()
	f.Name = "Acme"
	f.Email = "old@acme.test"
	existing, err := s.Create(context.Background(), f, "Dana")
	require.NoError(t, err)

	r := workbook(t, map[string][][]string{
		"Vendors": {{"Name", "Phone"}, {" acme ", "555-0100"}},
	})
	sum, err := ImportVendors(context.Background(), s, r, ImportOptions{Actor: "Importer"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Updated)
	assert.Zero(t, sum.Inserted)

	v, err := s.Get(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", v.Phone)
	assert.Equal(t, "old@acme.test", v.Email)
	assert.Equal(t, "Updated name, phone", v.History[0].Action)
}

func TestImportVendors_MaxErrors(t *testing.T) {
	rows := [][]string{{"Name", "Email"}}
	for i := 0; i < 3; i++ {
		rows = append(rows, []string{"", "x@example.test"})
	}
	r := workbook(t, map[string][][]string{"Vendors": rows})

	sum, err := ImportVendors(context.Background(), store.NewMemoryStore(nil), r, ImportOptions{MaxErrors: 2})
	assert.ErrorIs(t, err, ErrTooManyErrors)
	assert.Equal(t, 3, sum.Errors)
}

func TestImportVendors_SheetFilterAndUnknownHeaders(t *testing.T) {
	s := store.NewMemoryStore(nil)
	r := workbook(t, map[string][][]string{
		"Vendors": {{"Name"}, {"Acme"}},
		"Notes":   {{"Name"}, {"Ignored"}},
		"Other":   {{"Colour"}, {"Blue"}},
	})
	m := DefaultMapping()
	m.Sheets = []string{"vendors", "other"}

	sum, err := ImportVendors(context.Background(), s, r, ImportOptions{Mapping: m})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 1, sum.Errors, "a sheet without vendor columns is reported")
	assert.Len(t, sum.Sheets, 2)
}

func TestImportVendors_InvalidWorkbook(t *testing.T) {
	_, err := ImportVendors(context.Background(), store.NewMemoryStore(nil),
		bytes.NewReader([]byte("not a workbook")), ImportOptions{})
	assert.Error(t, err)
}

func TestLoadMapping(t *testing.T) {
	m, err := LoadMapping(filepath.Join("..", "..", "configs", "mapping", "vendors.yaml"))
	require.NoError(t, err)
	assert.True(t, m.MatchExisting)
	assert.True(t, m.wantsSheet("suppliers"))
	field, ok := m.fieldFor("Account Manager")
	assert.True(t, ok)
	assert.Equal(t, models.FieldContactPerson, field)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  fax: [Fax]\n"), 0o600))
	_, err = LoadMapping(path)
	assert.ErrorContains(t, err, `unknown vendor field "fax"`)
}
