package rcv

import "github.com/MrJamesThe3rd/gastos/internal/catalog"

// Profile describes the column layout of one register export. Header names are
// compared case-insensitively.
type Profile struct {
	Name      string
	DocCol    string // document type code; empty when FixedDoc applies
	FixedDoc  string
	RUTCol    string
	NameCol   string
	FolioCol  string
	DateCol   string
	AmountCol string
	StatusCol string // optional, rows whose status reads "anulada" are skipped
	Emisor    catalog.CategoriaEmpresa
}

func (p Profile) requiredCols() []string {
	cols := []string{p.RUTCol, p.NameCol, p.FolioCol, p.DateCol, p.AmountCol}
	if p.DocCol != "" {
		cols = append(cols, p.DocCol)
	}

	return cols
}

var profiles = []Profile{
	{
		Name:      "compras",
		DocCol:    "Tipo Doc",
		RUTCol:    "RUT Proveedor",
		NameCol:   "Razon Social",
		FolioCol:  "Folio",
		DateCol:   "Fecha Docto",
		AmountCol: "Monto Total",
		Emisor:    catalog.CategoriaEmpresaEmpresa,
	},
	{
		Name:      "honorarios",
		FixedDoc:  "Boleta de Honorarios",
		RUTCol:    "Rut Emisor",
		NameCol:   "Nombre o Razón Social Emisor",
		FolioCol:  "N°",
		DateCol:   "Fecha",
		AmountCol: "Brutos",
		StatusCol: "Estado",
		Emisor:    catalog.CategoriaEmpresaPersonaNatural,
	},
}

// documentos maps SII document codes to the names used in the document type list.
var documentos = map[string]string{
	"29": "Factura de Inicio",
	"30": "Factura",
	"32": "Factura Exenta",
	"33": "Factura",
	"34": "Factura Exenta",
	"39": "Boleta",
	"41": "Boleta Exenta",
	"45": "Factura de Compra",
	"46": "Factura de Compra",
	"55": "Nota de Débito",
	"56": "Nota de Débito",
	"60": "Nota de Crédito",
	"61": "Nota de Crédito",
}

var notasCredito = map[string]bool{"60": true, "61": true}
