package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"era-vendors-api/internal/models"

	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"
)

const defaultMaxErrors = 50

// ErrTooManyErrors stops an import once more rows failed than ImportOptions.MaxErrors allows.
var ErrTooManyErrors = errors.New("too many row errors")

// VendorWriter is the part of the vendor store the importer needs.
type VendorWriter interface {
	List(ctx context.Context) ([]models.Vendor, error)
	Create(ctx context.Context, fields models.VendorFields, actor string) (models.Vendor, error)
	Update(ctx context.Context, v models.Vendor, actor string) (models.Vendor, error)
}

// ImportOptions defines the configuration for spreadsheet imports
type ImportOptions struct {
	Mapping   *Mapping // nil uses DefaultMapping
	Actor     string   // recorded in the history of every imported vendor
	DryRun    bool
	MaxErrors int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// Mapping tells the importer which sheets to read and which headers feed which vendor field.
type Mapping struct {
	Version int `yaml:"version"`
	// Sheets limits the import to the named sheets. Empty reads every sheet.
	Sheets []string `yaml:"sheets"`
	// Aliases maps a vendor field key to the header names that fill it. The key itself always matches.
	Aliases map[string][]string `yaml:"aliases"`
	// MatchExisting updates a vendor with the same name instead of creating a duplicate.
	MatchExisting bool `yaml:"match_existing"`
}

// DefaultMapping accepts the column titles of the vendor table.
func DefaultMapping() *Mapping {
	return &Mapping{
		Version: 1,
		Aliases: map[string][]string{
			models.FieldName:          {"Name", "Vendor", "Vendor Name", "Supplier"},
			models.FieldContactPerson: {"Contact Person", "Contact"},
			models.FieldEmail:         {"Email", "E-mail"},
			models.FieldPhone:         {"Phone", "Telephone"},
			models.FieldAddress:       {"Address"},
		},
		MatchExisting: true,
	}
}

// LoadMapping reads a YAML mapping file.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return ParseMapping(data)
}

// ParseMapping decodes a YAML mapping and rejects aliases for unknown fields.
func ParseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	for field := range m.Aliases {
		if _, ok := models.NewVendorFields().Get(field); !ok {
			return nil, fmt.Errorf("mapping: unknown vendor field %q", field)
		}
	}
	return &m, nil
}

func (m *Mapping) wantsSheet(name string) bool {
	if len(m.Sheets) == 0 {
		return true
	}
	for _, s := range m.Sheets {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// fieldFor resolves a header cell to a vendor field key.
func (m *Mapping) fieldFor(header string) (string, bool) {
	h := strings.TrimSpace(header)
	for _, field := range models.EditableFields {
		if strings.EqualFold(h, field) {
			return field, true
		}
		for _, alias := range m.Aliases[field] {
			if strings.EqualFold(h, alias) {
				return field, true
			}
		}
	}
	return "", false
}

// ImportVendors reads an .xlsx workbook and creates a vendor per data row. Rows without a
// name are reported as row errors; empty optional cells get the new vendor defaults.
func ImportVendors(ctx context.Context, w VendorWriter, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		DryRun: opts.DryRun,
		Sheets: []SheetSummary{},
	}
	if opts.Mapping == nil {
		opts.Mapping = DefaultMapping()
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = defaultMaxErrors
	}

	// xlsx.OpenBinary needs the whole workbook in memory
	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("read workbook: %w", err)
	}
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("open workbook: %w", err)
	}

	existing := map[string]models.Vendor{}
	if opts.Mapping.MatchExisting {
		vendors, err := w.List(ctx)
		if err != nil {
			return summary, fmt.Errorf("load vendors: %w", err)
		}
		for _, v := range vendors {
			existing[nameKey(v.Name)] = v
		}
	}

	imp := &sheetImporter{w: w, opts: opts, existing: existing}
	for _, sheet := range wb.Sheets {
		if !opts.Mapping.wantsSheet(sheet.Name) {
			continue
		}

		sheetSummary, err := imp.run(ctx, sheet)
		summary.Sheets = append(summary.Sheets, sheetSummary)
		summary.Inserted += sheetSummary.Inserted
		summary.Updated += sheetSummary.Updated
		summary.Skipped += sheetSummary.Skipped
		summary.Errors += sheetSummary.Errors
		if err != nil {
			return summary, err
		}
		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("%w (%d), stopping import", ErrTooManyErrors, summary.Errors)
		}
	}
	return summary, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type sheetImporter struct {
	w        VendorWriter
	opts     ImportOptions
	existing map[string]models.Vendor
}

func (imp *sheetImporter) run(ctx context.Context, sheet *xlsx.Sheet) (SheetSummary, error) {
	summary := SheetSummary{Name: sheet.Name}
	fail := func(row int, msg string) {
		summary.Errors++
		summary.Samples = append(summary.Samples, RowError{Sheet: sheet.Name, Row: row, Message: msg})
	}

	header, err := sheet.Row(0)
	if err != nil {
		fail(1, "read header row: "+err.Error())
		return summary, nil
	}
	columns := make(map[int]string)
	for col := 0; col < sheet.MaxCol; col++ {
		if field, ok := imp.opts.Mapping.fieldFor(header.GetCell(col).String()); ok {
			columns[col] = field
		}
	}
	if len(columns) == 0 {
		fail(1, "no recognised vendor columns in header row")
		return summary, nil
	}

	for rowIdx := 1; rowIdx < sheet.MaxRow; rowIdx++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		row, err := sheet.Row(rowIdx)
		if err != nil {
			break
		}

		cells := make(map[string]string, len(columns))
		for col, field := range columns {
			if v := strings.TrimSpace(row.GetCell(col).String()); v != "" {
				cells[field] = v
			}
		}
		if len(cells) == 0 {
			summary.Skipped++
			continue
		}
		if cells[models.FieldName] == "" {
			fail(rowIdx+1, "vendor name is required")
			continue
		}

		updated, err := imp.save(ctx, cells)
		if err != nil {
			fail(rowIdx+1, err.Error())
			continue
		}
		if updated {
			summary.Updated++
		} else {
			summary.Inserted++
		}
	}
	return summary, nil
}

// save writes one row. Existing vendors only take the cells present in the row.
func (imp *sheetImporter) save(ctx context.Context, cells map[string]string) (updated bool, err error) {
	key := nameKey(cells[models.FieldName])
	if current, ok := imp.existing[key]; ok {
		for field, value := range cells {
			current.Set(field, value)
		}
		if !imp.opts.DryRun {
			if current, err = imp.w.Update(ctx, current, imp.opts.Actor); err != nil {
				return true, err
			}
		}
		imp.existing[key] = current
		return true, nil
	}

	fields := models.NewVendorFields()
	for field, value := range cells {
		fields.Set(field, value)
	}
	v := models.Vendor{VendorFields: fields}
	if !imp.opts.DryRun {
		if v, err = imp.w.Create(ctx, fields, imp.opts.Actor); err != nil {
			return false, err
		}
	}
	if imp.opts.Mapping.MatchExisting {
		imp.existing[key] = v
	}
	return false, nil
}
