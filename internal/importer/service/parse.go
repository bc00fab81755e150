package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/importer/domain"
	"github.com/xuri/excelize/v2"
)

var headerAliases = map[string]domain.Field{
	"name":           domain.FieldName,
	"studentname":    domain.FieldName,
	"student":        domain.FieldName,
	"childname":      domain.FieldName,
	"fullname":       domain.FieldName,
	"class":          domain.FieldClassLabel,
	"classlabel":     domain.FieldClassLabel,
	"classname":      domain.FieldClassLabel,
	"grade":          domain.FieldClassLabel,
	"enrollmentyear": domain.FieldEnrollmentYear,
	"enrolmentyear":  domain.FieldEnrollmentYear,
	"yearenrolled":   domain.FieldEnrollmentYear,
	"year":           domain.FieldEnrollmentYear,
	"parentname":     domain.FieldParentName,
	"parent":         domain.FieldParentName,
	"guardian":       domain.FieldParentName,
	"guardianname":   domain.FieldParentName,
	"parentphone":    domain.FieldParentPhone,
	"phone":          domain.FieldParentPhone,
	"phonenumber":    domain.FieldParentPhone,
	"mobile":         domain.FieldParentPhone,
	"contact":        domain.FieldParentPhone,
	"contactnumber":  domain.FieldParentPhone,
	"parentemail":    domain.FieldParentEmail,
	"email":          domain.FieldParentEmail,
	"loginid":        domain.FieldLoginID,
	"username":       domain.FieldLoginID,
}

var requiredFields = []domain.Field{
	domain.FieldName,
	domain.FieldClassLabel,
	domain.FieldEnrollmentYear,
	domain.FieldParentPhone,
}

func detectFormat(req domain.Request) (domain.Format, error) {
	format := domain.Format(strings.ToLower(strings.TrimSpace(string(req.Format))))
	if format == "" {
		format = domain.Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(req.Filename)), "."))
	}
	switch format {
	case domain.FormatCSV, domain.FormatXLSX:
		return format, nil
	}
	return "", domain.ErrUnsupportedFormat
}

// readTable returns every line of the first sheet, header included.
func readTable(format domain.Format, r io.Reader) ([][]string, error) {
	if r == nil {
		return nil, domain.ErrEmptyFile
	}
	switch format {
	case domain.FormatCSV:
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		var records [][]string
		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("read csv: %w", err)
			}
			// The reader drops empty lines; pad so index+1 stays the file line.
			line, _ := reader.FieldPos(0)
			for len(records) < line-1 {
				records = append(records, nil)
			}
			records = append(records, record)
		}
		if len(records) > 0 && len(records[0]) > 0 {
			records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
		}
		return records, nil
	case domain.FormatXLSX:
		book, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer book.Close()

		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, domain.ErrEmptyFile
		}
		return book.GetRows(sheets[0])
	}
	return nil, domain.ErrUnsupportedFormat
}

func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolveColumns maps column indexes to fields. An explicit mapping to "" or
// "skip" drops the column.
func resolveColumns(header []string, mapping map[string]string) (map[int]domain.Field, error) {
	explicit := make(map[string]string, len(mapping))
	for column, field := range mapping {
		field = strings.ToLower(strings.TrimSpace(field))
		if field != "" && field != "skip" && !domain.Field(field).Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMapping, field)
		}
		explicit[normalizeHeader(column)] = field
	}

	columns := make(map[int]domain.Field, len(header))
	seen := make(map[domain.Field]bool, len(header))
	for i, raw := range header {
		key := normalizeHeader(raw)
		if key == "" {
			continue
		}
		var field domain.Field
		if target, ok := explicit[key]; ok {
			if target == "" || target == "skip" {
				continue
			}
			field = domain.Field(target)
		} else if alias, ok := headerAliases[key]; ok {
			field = alias
		} else {
			continue
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		columns[i] = field
	}

	var missing []string
	for _, field := range requiredFields {
		if !seen[field] {
			missing = append(missing, string(field))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingColumns, strings.Join(missing, ", "))
	}
	return columns, nil
}

func toRow(line int, record []string, columns map[int]domain.Field) (domain.Row, map[string]string) {
	row := domain.Row{Line: line}
	values := make(map[string]string, len(columns))
	for i, field := range columns {
		if i >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[i])
		if value == "" {
			continue
		}
		values[string(field)] = value
		switch field {
		case domain.FieldName:
			row.Name = value
		case domain.FieldClassLabel:
			row.ClassLabel = value
		case domain.FieldEnrollmentYear:
			row.EnrollmentYear = parseYear(value)
		case domain.FieldParentName:
			row.ParentName = value
		case domain.FieldParentPhone:
			row.ParentPhone = value
		case domain.FieldParentEmail:
			row.ParentEmail = value
		case domain.FieldLoginID:
			row.LoginID = value
		}
	}
	return row, values
}

// parseYear accepts "2025" and spreadsheet renderings such as "2025.0".
// Anything else yields zero, which fails validation.
func parseYear(value string) int {
	if year, err := strconv.Atoi(value); err == nil {
		return year
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != float64(int(f)) {
		return 0
	}
	return int(f)
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
