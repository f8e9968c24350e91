// Package store maps the catalog entities onto their SharePoint lists.
package store

import (
	"github.com/MrJamesThe3rd/gastos/internal/catalog"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
)

// Display names under which the business keys of each list may be found. The
// expense store resolves references through them.
var (
	EmpresaRUTFields        = []string{"RUT", "Rut"}
	EmpresaNombreFields     = []string{"Razón Social", "RazonSocial", "Title"}
	ProyectoNombreFields    = []string{"Nombre", "NombreProyecto", "Title"}
	ColaboradorEmailFields  = []string{"Email", "Correo", "Correo Electrónico", "CorreoElectronico"}
	CategoriaNombreFields   = []string{"Nombre", "Categoría", "Title"}
	TipoDocumentoNameFields = []string{"Nombre", "TipoDocumento", "Title"}
)

var titulo = sharepoint.FieldSpec{Name: "titulo", Candidates: []string{"Title"}}

type Empresas = sharepoint.Gateway[catalog.Empresa, catalog.EmpresaPatch]

func NewEmpresas(c *sharepoint.Client, list string) *Empresas {
	return sharepoint.NewGateway[catalog.Empresa, catalog.EmpresaPatch](c, empresaMapper{list: list})
}

type empresaMapper struct{ list string }

func (m empresaMapper) Spec() sharepoint.ListSpec {
	return sharepoint.ListSpec{
		Name: m.list,
		Fields: []sharepoint.FieldSpec{
			titulo,
			{Name: "razonSocial", Candidates: EmpresaNombreFields, Required: true},
			{Name: "rut", Candidates: EmpresaRUTFields, Required: true},
			{Name: "numeroContacto", Candidates: []string{"Número de Contacto", "NumeroContacto", "Teléfono"}},
			{Name: "correoElectronico", Candidates: []string{"Correo Electrónico", "CorreoElectronico", "Email"}},
			{Name: "categoria", Candidates: []string{"Categoría", "Categoria", "Tipo"}},
		},
	}
}

func (empresaMapper) Decode(r sharepoint.Record) (catalog.Empresa, error) {
	return catalog.Empresa{
		ID:                r.ID,
		RazonSocial:       r.String("razonSocial"),
		RUT:               r.String("rut"),
		NumeroContacto:    r.String("numeroContacto"),
		CorreoElectronico: r.String("correoElectronico"),
		Categoria:         catalog.ParseCategoriaEmpresa(r.String("categoria")),
		CreatedAt:         r.CreatedAt,
	}, nil
}

func (empresaMapper) Encode(e catalog.Empresa, f *sharepoint.Fields) {
	f.Set("titulo", e.RazonSocial)
	f.Set("razonSocial", e.RazonSocial)
	f.Set("rut", e.RUT)
	setOptional(f, "numeroContacto", e.NumeroContacto)
	setOptional(f, "correoElectronico", e.CorreoElectronico)
	setOptional(f, "categoria", string(e.Categoria))
}

func (empresaMapper) EncodePatch(p catalog.EmpresaPatch, f *sharepoint.Fields) {
	if p.RazonSocial != nil {
		f.Set("titulo", *p.RazonSocial)
		f.Set("razonSocial", *p.RazonSocial)
	}

	setPtr(f, "rut", p.RUT)
	setPtr(f, "numeroContacto", p.NumeroContacto)
	setPtr(f, "correoElectronico", p.CorreoElectronico)

	if p.Categoria != nil {
		f.Set("categoria", string(*p.Categoria))
	}
}

type Proyectos = sharepoint.Gateway[catalog.Proyecto, catalog.ProyectoPatch]

func NewProyectos(c *sharepoint.Client, list string) *Proyectos {
	return sharepoint.NewGateway[catalog.Proyecto, catalog.ProyectoPatch](c, proyectoMapper{list: list})
}

type proyectoMapper struct{ list string }

func (m proyectoMapper) Spec() sharepoint.ListSpec {
	return sharepoint.ListSpec{
		Name: m.list,
		Fields: []sharepoint.FieldSpec{
			titulo,
			{Name: "nombre", Candidates: ProyectoNombreFields, Required: true},
		},
	}
}

func (proyectoMapper) Decode(r sharepoint.Record) (catalog.Proyecto, error) {
	return catalog.Proyecto{ID: r.ID, Nombre: r.String("nombre"), CreatedAt: r.CreatedAt}, nil
}

func (proyectoMapper) Encode(p catalog.Proyecto, f *sharepoint.Fields) {
	f.Set("titulo", p.Nombre)
	f.Set("nombre", p.Nombre)
}

func (proyectoMapper) EncodePatch(p catalog.ProyectoPatch, f *sharepoint.Fields) {
	if p.Nombre != nil {
		f.Set("titulo", *p.Nombre)
		f.Set("nombre", *p.Nombre)
	}
}

type Colaboradores = sharepoint.Gateway[catalog.Colaborador, catalog.ColaboradorPatch]

func NewColaboradores(c *sharepoint.Client, list string) *Colaboradores {
	return sharepoint.NewGateway[catalog.Colaborador, catalog.ColaboradorPatch](c, colaboradorMapper{list: list})
}

type colaboradorMapper struct{ list string }

func (m colaboradorMapper) Spec() sharepoint.ListSpec {
	return sharepoint.ListSpec{
		Name: m.list,
		Fields: []sharepoint.FieldSpec{
			titulo,
			{Name: "nombre", Candidates: []string{"Nombre", "NombreCompleto", "Title"}, Required: true},
			{Name: "email", Candidates: ColaboradorEmailFields},
			{Name: "telefono", Candidates: []string{"Teléfono", "Telefono"}},
			{Name: "cargo", Candidates: []string{"Cargo"}},
		},
	}
}

func (colaboradorMapper) Decode(r sharepoint.Record) (catalog.Colaborador, error) {
	return catalog.Colaborador{
		ID:        r.ID,
		Nombre:    r.String("nombre"),
		Email:     r.String("email"),
		Telefono:  r.String("telefono"),
		Cargo:     r.String("cargo"),
		CreatedAt: r.CreatedAt,
	}, nil
}

func (colaboradorMapper) Encode(c catalog.Colaborador, f *sharepoint.Fields) {
	f.Set("titulo", c.Nombre)
	f.Set("nombre", c.Nombre)
	setOptional(f, "email", c.Email)
	setOptional(f, "telefono", c.Telefono)
	setOptional(f, "cargo", c.Cargo)
}

func (colaboradorMapper) EncodePatch(p catalog.ColaboradorPatch, f *sharepoint.Fields) {
	if p.Nombre != nil {
		f.Set("titulo", *p.Nombre)
		f.Set("nombre", *p.Nombre)
	}

	setPtr(f, "email", p.Email)
	setPtr(f, "telefono", p.Telefono)
	setPtr(f, "cargo", p.Cargo)
}

type Categorias = sharepoint.Gateway[catalog.Categoria, catalog.CategoriaPatch]

func NewCategorias(c *sharepoint.Client, list string) *Categorias {
	return sharepoint.NewGateway[catalog.Categoria, catalog.CategoriaPatch](c, categoriaMapper{list: list})
}

type categoriaMapper struct{ list string }

func (m categoriaMapper) Spec() sharepoint.ListSpec {
	return sharepoint.ListSpec{
		Name: m.list,
		Fields: []sharepoint.FieldSpec{
			titulo,
			{Name: "nombre", Candidates: CategoriaNombreFields, Required: true},
			{Name: "color", Candidates: []string{"Color"}},
		},
	}
}

func (categoriaMapper) Decode(r sharepoint.Record) (catalog.Categoria, error) {
	return catalog.Categoria{ID: r.ID, Nombre: r.String("nombre"), Color: r.String("color")}, nil
}

func (categoriaMapper) Encode(c catalog.Categoria, f *sharepoint.Fields) {
	f.Set("titulo", c.Nombre)
	f.Set("nombre", c.Nombre)
	setOptional(f, "color", c.Color)
}

func (categoriaMapper) EncodePatch(p catalog.CategoriaPatch, f *sharepoint.Fields) {
	if p.Nombre != nil {
		f.Set("titulo", *p.Nombre)
		f.Set("nombre", *p.Nombre)
	}

	setPtr(f, "color", p.Color)
}

type TiposDocumento = sharepoint.Gateway[catalog.TipoDocumento, catalog.TipoDocumentoPatch]

// NewTiposDocumento returns the gateway of the document type list. The list may
// not be provisioned yet, in which case it reads as empty.
func NewTiposDocumento(c *sharepoint.Client, list string) *TiposDocumento {
	return sharepoint.NewGateway[catalog.TipoDocumento, catalog.TipoDocumentoPatch](c, tipoDocumentoMapper{list: list})
}

type tipoDocumentoMapper struct{ list string }

func (m tipoDocumentoMapper) Spec() sharepoint.ListSpec {
	return sharepoint.ListSpec{
		Name:     m.list,
		Optional: true,
		Fields: []sharepoint.FieldSpec{
			titulo,
			{Name: "nombre", Candidates: TipoDocumentoNameFields, Required: true},
			{Name: "tieneImpuestos", Candidates: []string{"Tiene Impuestos", "TieneImpuestos", "Afecto"}},
			{Name: "valorImpuestos", Candidates: []string{"Valor Impuestos", "ValorImpuestos", "Impuesto"}},
		},
	}
}

func (tipoDocumentoMapper) Decode(r sharepoint.Record) (catalog.TipoDocumento, error) {
	return catalog.TipoDocumento{
		ID:             r.ID,
		Nombre:         r.String("nombre"),
		TieneImpuestos: r.Bool("tieneImpuestos"),
		ValorImpuestos: r.Decimal("valorImpuestos"),
	}, nil
}

func (tipoDocumentoMapper) Encode(t catalog.TipoDocumento, f *sharepoint.Fields) {
	f.Set("titulo", t.Nombre)
	f.Set("nombre", t.Nombre)
	f.Set("tieneImpuestos", t.TieneImpuestos)

	if t.ValorImpuestos.Valid {
		f.Set("valorImpuestos", t.ValorImpuestos)
	}
}

func (tipoDocumentoMapper) EncodePatch(p catalog.TipoDocumentoPatch, f *sharepoint.Fields) {
	if p.Nombre != nil {
		f.Set("titulo", *p.Nombre)
		f.Set("nombre", *p.Nombre)
	}

	if p.TieneImpuestos != nil {
		f.Set("tieneImpuestos", *p.TieneImpuestos)
	}

	if p.ValorImpuestos != nil {
		f.Set("valorImpuestos", *p.ValorImpuestos)
	}
}

// setOptional leaves empty optional values out of creates.
func setOptional(f *sharepoint.Fields, field, v string) {
	if v != "" {
		f.Set(field, v)
	}
}

func setPtr(f *sharepoint.Fields, field string, v *string) {
	if v != nil {
		f.Set(field, *v)
	}
}
