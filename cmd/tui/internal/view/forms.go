package view

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/gastos/internal/catalog"
	"github.com/MrJamesThe3rd/gastos/internal/gasto"
)

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s es obligatorio", field)
		}

		return nil
	}
}

type empresaForm struct {
	form        *huh.Form
	razonSocial string
	rut         string
	correo      string
	telefono    string
	categoria   string
}

func NewEmpresaForm() EntityForm[catalog.Empresa] {
	f := &empresaForm{categoria: string(catalog.CategoriaEmpresaEmpresa)}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("razonSocial").
				Title("Razón social").
				Value(&f.razonSocial).
				Validate(required("razón social")),
			huh.NewInput().
				Key("rut").
				Title("RUT").
				Placeholder("76.123.456-7").
				Value(&f.rut).
				Validate(required("RUT")),
			huh.NewInput().
				Key("correo").
				Title("Correo electrónico").
				Value(&f.correo),
			huh.NewInput().
				Key("telefono").
				Title("Número de contacto").
				Value(&f.telefono),
			huh.NewSelect[string]().
				Key("categoria").
				Title("Categoría").
				Options(
					huh.NewOption(string(catalog.CategoriaEmpresaEmpresa), string(catalog.CategoriaEmpresaEmpresa)),
					huh.NewOption(string(catalog.CategoriaEmpresaPersonaNatural), string(catalog.CategoriaEmpresaPersonaNatural)),
				).
				Value(&f.categoria),
		),
	).WithWidth(45).WithShowHelp(false)

	return f
}

func (f *empresaForm) Form() *huh.Form { return f.form }

func (f *empresaForm) Build() (catalog.Empresa, error) {
	return catalog.Empresa{
		RazonSocial:       strings.TrimSpace(f.razonSocial),
		RUT:               strings.TrimSpace(f.rut),
		CorreoElectronico: strings.TrimSpace(f.correo),
		NumeroContacto:    strings.TrimSpace(f.telefono),
		Categoria:         catalog.ParseCategoriaEmpresa(f.categoria),
	}, nil
}

type colaboradorForm struct {
	form     *huh.Form
	nombre   string
	email    string
	telefono string
	cargo    string
}

func NewColaboradorForm() EntityForm[catalog.Colaborador] {
	f := &colaboradorForm{}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("nombre").
				Title("Nombre").
				Value(&f.nombre).
				Validate(required("nombre")),
			huh.NewInput().
				Key("email").
				Title("Email").
				Value(&f.email),
			huh.NewInput().
				Key("telefono").
				Title("Teléfono").
				Value(&f.telefono),
			huh.NewInput().
				Key("cargo").
				Title("Cargo").
				Value(&f.cargo),
		),
	).WithWidth(45).WithShowHelp(false)

	return f
}

func (f *colaboradorForm) Form() *huh.Form { return f.form }

func (f *colaboradorForm) Build() (catalog.Colaborador, error) {
	return catalog.Colaborador{
		Nombre:   strings.TrimSpace(f.nombre),
		Email:    strings.TrimSpace(f.email),
		Telefono: strings.TrimSpace(f.telefono),
		Cargo:    strings.TrimSpace(f.cargo),
	}, nil
}

type proyectoForm struct {
	form   *huh.Form
	nombre string
}

func NewProyectoForm() EntityForm[catalog.Proyecto] {
	f := &proyectoForm{}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("nombre").
				Title("Nombre").
				Value(&f.nombre).
				Validate(required("nombre")),
		),
	).WithWidth(45).WithShowHelp(false)

	return f
}

func (f *proyectoForm) Form() *huh.Form { return f.form }

func (f *proyectoForm) Build() (catalog.Proyecto, error) {
	return catalog.Proyecto{Nombre: strings.TrimSpace(f.nombre)}, nil
}

type categoriaForm struct {
	form   *huh.Form
	nombre string
	color  string
}

var palette = []string{"", "blue", "green", "orange", "purple", "red", "teal", "yellow"}

func NewCategoriaForm() EntityForm[catalog.Categoria] {
	f := &categoriaForm{}

	colors := make([]huh.Option[string], len(palette))
	for i, c := range palette {
		label := c
		if c == "" {
			label = "(sin color)"
		}

		colors[i] = huh.NewOption(label, c)
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("nombre").
				Title("Nombre").
				Value(&f.nombre).
				Validate(required("nombre")),
			huh.NewSelect[string]().
				Key("color").
				Title("Color").
				Options(colors...).
				Value(&f.color),
		),
	).WithWidth(45).WithShowHelp(false)

	return f
}

func (f *categoriaForm) Form() *huh.Form { return f.form }

func (f *categoriaForm) Build() (catalog.Categoria, error) {
	return catalog.Categoria{Nombre: strings.TrimSpace(f.nombre), Color: f.color}, nil
}

// GastoOptions are the choices offered by the expense form, taken from the
// reference lists already loaded.
type GastoOptions struct {
	Empresas       []catalog.Empresa
	Categorias     []catalog.Categoria
	TiposDocumento []catalog.TipoDocumento
	Proyectos      []catalog.Proyecto
}

type gastoForm struct {
	form  *huh.Form
	tipos []catalog.TipoDocumento

	fecha      string
	empresa    string
	categoria  string
	tipo       string
	numero     string
	monto      string
	detalle    string
	proyecto   string
	comentario string
	archivos   string
}

func NewGastoForm(opts GastoOptions) EntityForm[gasto.Gasto] {
	f := &gastoForm{tipos: opts.TiposDocumento, fecha: time.Now().Format("2006-01-02")}

	empresas := make([]huh.Option[string], len(opts.Empresas))
	for i, e := range opts.Empresas {
		empresas[i] = huh.NewOption(fmt.Sprintf("%s (%s)", e.RazonSocial, e.RUT), e.ID)
	}

	categorias := make([]huh.Option[string], len(opts.Categorias))
	for i, c := range opts.Categorias {
		categorias[i] = huh.NewOption(c.Nombre, c.ID)
	}

	proyectos := []huh.Option[string]{huh.NewOption("(ninguno)", "")}
	for _, p := range opts.Proyectos {
		proyectos = append(proyectos, huh.NewOption(p.Nombre, p.ID))
	}

	var tipo huh.Field = huh.NewInput().
		Key("tipo").
		Title("Tipo de documento").
		Value(&f.tipo).
		Validate(required("tipo de documento"))

	if len(opts.TiposDocumento) > 0 {
		tipos := make([]huh.Option[string], len(opts.TiposDocumento))
		for i, t := range opts.TiposDocumento {
			tipos[i] = huh.NewOption(t.Nombre, t.ID)
		}

		tipo = huh.NewSelect[string]().Key("tipo").Title("Tipo de documento").Options(tipos...).Value(&f.tipo)
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("fecha").
				Title("Fecha").
				Placeholder("AAAA-MM-DD").
				Value(&f.fecha).
				Validate(func(s string) error {
					_, err := parseFecha(s)
					return err
				}),
			huh.NewSelect[string]().Key("empresa").Title("Empresa").Options(empresas...).Value(&f.empresa),
			huh.NewSelect[string]().Key("categoria").Title("Categoría").Options(categorias...).Value(&f.categoria),
			tipo,
		),
		huh.NewGroup(
			huh.NewInput().Key("numero").Title("Número de documento").Value(&f.numero),
			huh.NewInput().
				Key("monto").
				Title("Monto").
				Placeholder("119.000").
				Value(&f.monto).
				Validate(func(s string) error {
					_, err := parseMonto(s)
					return err
				}),
			huh.NewText().Key("detalle").Title("Detalle").Value(&f.detalle),
			huh.NewSelect[string]().Key("proyecto").Title("Proyecto").Options(proyectos...).Value(&f.proyecto),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("comentario").
				Title("Comentario tipo de documento").
				Description("Obligatorio cuando el tipo es Otros").
				Value(&f.comentario),
			huh.NewInput().
				Key("archivos").
				Title("Archivos adjuntos").
				Description("Rutas separadas por coma").
				Value(&f.archivos),
		),
	).WithWidth(50).WithShowHelp(false)

	return f
}

func (f *gastoForm) Form() *huh.Form { return f.form }

func (f *gastoForm) Build() (gasto.Gasto, error) {
	fecha, err := parseFecha(f.fecha)
	if err != nil {
		return gasto.Gasto{}, err
	}

	monto, err := parseMonto(f.monto)
	if err != nil {
		return gasto.Gasto{}, err
	}

	g := gasto.Gasto{
		Fecha:                   fecha,
		EmpresaID:               f.empresa,
		Categoria:               f.categoria,
		TipoDocumento:           strings.TrimSpace(f.tipo),
		NumeroDocumento:         strings.TrimSpace(f.numero),
		Monto:                   monto,
		Detalle:                 strings.TrimSpace(f.detalle),
		ProyectoID:              f.proyecto,
		ComentarioTipoDocumento: strings.TrimSpace(f.comentario),
	}

	if err := gasto.Validate(g, f.tipoNombre()); err != nil {
		return gasto.Gasto{}, err
	}

	g.ArchivosAdjuntos, err = readAdjuntos(f.archivos)
	if err != nil {
		return gasto.Gasto{}, err
	}

	return g, nil
}

func (f *gastoForm) tipoNombre() string {
	for _, t := range f.tipos {
		if t.ID == f.tipo {
			return t.Nombre
		}
	}

	return f.tipo
}

func parseFecha(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.New("fecha inválida (AAAA-MM-DD)")
	}

	return t, nil
}

// parseMonto reads whole pesos written with or without dot grouping.
func parseMonto(s string) (int64, error) {
	s = strings.NewReplacer("$", "", ".", "", " ", "").Replace(strings.TrimSpace(s))

	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil || !d.IsPositive() {
		return 0, errors.New("monto inválido")
	}

	return d.Round(0).IntPart(), nil
}

// readAdjuntos loads the listed files into memory so nothing stays open while
// the upload is pending.
func readAdjuntos(paths string) ([]gasto.Adjunto, error) {
	var out []gasto.Adjunto

	for _, p := range strings.Split(paths, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}

		out = append(out, gasto.Adjunto{Nombre: filepath.Base(p), Contenido: bytes.NewReader(data)})
	}

	return out, nil
}
