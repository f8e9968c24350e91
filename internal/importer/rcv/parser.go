// Package rcv reads the purchase registers exported by the Chilean tax service:
// the "Registro de Compras" detail and the received fee receipts listing.
package rcv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/MrJamesThe3rd/gastos/internal/encoding"
	"github.com/MrJamesThe3rd/gastos/internal/importer"
)

var dateLayouts = []string{"02/01/2006", "02-01-2006", "2006-01-02"}

// Parser auto-detects which register it was given by matching the header row
// against the known profiles.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]importer.Compra, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	raw, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read register: %w", err)
	}

	for _, comma := range []rune{';', ','} {
		rows, err := readRows(raw, comma)
		if err != nil {
			return nil, err
		}

		profile, cols, headerIdx := detectProfile(rows)
		if profile == nil {
			continue
		}

		return parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
	}

	return nil, fmt.Errorf("no matching register format found: expected the compras or honorarios columns")
}

func readRows(raw []byte, comma rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return rows, nil
}

type colIndex map[string]int

func (c colIndex) of(name string) int {
	if name == "" {
		return -1
	}

	idx, ok := c[strings.ToLower(name)]
	if !ok {
		return -1
	}

	return idx
}

func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			if _, seen := cols[name]; name != "" && !seen {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if cols.of(name) < 0 {
			return false
		}
	}

	return true
}

// parseRows skips rows without a valid date, which covers totals and footers.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]importer.Compra, error) {
	var out []importer.Compra

	for i, row := range rows {
		line := headerRowNum + i + 1

		fecha, ok := parseDate(cellValue(row, cols.of(p.DateCol)))
		if !ok {
			continue
		}

		if strings.Contains(strings.ToLower(cellValue(row, cols.of(p.StatusCol))), "anulad") {
			continue
		}

		rut := cellValue(row, cols.of(p.RUTCol))
		if rut == "" {
			return nil, fmt.Errorf("row %d: missing RUT", line)
		}

		monto, err := parsePesos(cellValue(row, cols.of(p.AmountCol)))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount: %w", line, err)
		}

		tipo, credito := p.FixedDoc, false
		if p.DocCol != "" {
			code := cellValue(row, cols.of(p.DocCol))

			tipo = documentos[code]
			if tipo == "" {
				tipo = code
			}

			credito = notasCredito[code]
		}

		out = append(out, importer.Compra{
			Line:          line,
			Fecha:         fecha,
			RUT:           rut,
			RazonSocial:   cellValue(row, cols.of(p.NameCol)),
			Emisor:        p.Emisor,
			TipoDocumento: tipo,
			Folio:         cellValue(row, cols.of(p.FolioCol)),
			Monto:         monto,
			NotaCredito:   credito,
		})
	}

	return out, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	// some exports append the time of day
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
