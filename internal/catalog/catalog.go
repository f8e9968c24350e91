// Package catalog holds the reference entities expenses point to.
package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategoriaEmpresa tells companies apart from individuals.
type CategoriaEmpresa string

const (
	CategoriaEmpresaEmpresa        CategoriaEmpresa = "Empresa"
	CategoriaEmpresaPersonaNatural CategoriaEmpresa = "Persona Natural"
)

// ParseCategoriaEmpresa accepts the two known values in any case. Anything else is empty.
func ParseCategoriaEmpresa(s string) CategoriaEmpresa {
	switch {
	case strings.EqualFold(strings.TrimSpace(s), string(CategoriaEmpresaEmpresa)):
		return CategoriaEmpresaEmpresa
	case strings.EqualFold(strings.TrimSpace(s), string(CategoriaEmpresaPersonaNatural)):
		return CategoriaEmpresaPersonaNatural
	default:
		return ""
	}
}

// Empresa is a supplier, either a company or an individual.
type Empresa struct {
	ID                string           `json:"id"`
	RazonSocial       string           `json:"razonSocial"`
	RUT               string           `json:"rut"`
	NumeroContacto    string           `json:"numeroContacto,omitempty"`
	CorreoElectronico string           `json:"correoElectronico,omitempty"`
	Categoria         CategoriaEmpresa `json:"categoria,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}

func (e Empresa) EntityID() string { return e.ID }

type EmpresaPatch struct {
	RazonSocial       *string           `json:"razonSocial,omitempty"`
	RUT               *string           `json:"rut,omitempty"`
	NumeroContacto    *string           `json:"numeroContacto,omitempty"`
	CorreoElectronico *string           `json:"correoElectronico,omitempty"`
	Categoria         *CategoriaEmpresa `json:"categoria,omitempty"`
}

type Proyecto struct {
	ID        string    `json:"id"`
	Nombre    string    `json:"nombre"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Proyecto) EntityID() string { return p.ID }

type ProyectoPatch struct {
	Nombre *string `json:"nombre,omitempty"`
}

// Colaborador is a member of the team who can submit expenses.
type Colaborador struct {
	ID        string    `json:"id"`
	Nombre    string    `json:"nombre"`
	Email     string    `json:"email,omitempty"`
	Telefono  string    `json:"telefono,omitempty"`
	Cargo     string    `json:"cargo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c Colaborador) EntityID() string { return c.ID }

type ColaboradorPatch struct {
	Nombre   *string `json:"nombre,omitempty"`
	Email    *string `json:"email,omitempty"`
	Telefono *string `json:"telefono,omitempty"`
	Cargo    *string `json:"cargo,omitempty"`
}

// Categoria groups expenses. Color is a palette token or a raw color value.
type Categoria struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
	Color  string `json:"color,omitempty"`
}

func (c Categoria) EntityID() string { return c.ID }

type CategoriaPatch struct {
	Nombre *string `json:"nombre,omitempty"`
	Color  *string `json:"color,omitempty"`
}

// TipoDocumento is the kind of supporting document of an expense. ValorImpuestos
// is a fraction, 0.19 for 19%.
type TipoDocumento struct {
	ID             string              `json:"id"`
	Nombre         string              `json:"nombre"`
	TieneImpuestos bool                `json:"tieneImpuestos"`
	ValorImpuestos decimal.NullDecimal `json:"valorImpuestos"`
}

func (t TipoDocumento) EntityID() string { return t.ID }

type TipoDocumentoPatch struct {
	Nombre         *string          `json:"nombre,omitempty"`
	TieneImpuestos *bool            `json:"tieneImpuestos,omitempty"`
	ValorImpuestos *decimal.Decimal `json:"valorImpuestos,omitempty"`
}

// Impuesto returns the tax included in a gross amount, rounded to whole pesos.
func (t TipoDocumento) Impuesto(bruto int64) int64 {
	if !t.TieneImpuestos || !t.ValorImpuestos.Valid || t.ValorImpuestos.Decimal.IsZero() {
		return 0
	}

	gross := decimal.NewFromInt(bruto)
	net := gross.Div(decimal.NewFromInt(1).Add(t.ValorImpuestos.Decimal))

	return gross.Sub(net).Round(0).IntPart()
}
