// Package importer turns purchase registers into expenses.
package importer

import (
	"io"
	"time"

	"github.com/MrJamesThe3rd/gastos/internal/catalog"
)

type Source string

const (
	SourceRCV Source = "rcv"
)

// Compra is one purchase document read from a register.
type Compra struct {
	Line          int
	Fecha         time.Time
	RUT           string
	RazonSocial   string
	Emisor        catalog.CategoriaEmpresa
	TipoDocumento string
	Folio         string
	Monto         int64
	NotaCredito   bool
}

type Parser interface {
	Parse(r io.Reader) ([]Compra, error)
}
