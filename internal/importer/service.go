package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/MrJamesThe3rd/gastos/internal/catalog"
	"github.com/MrJamesThe3rd/gastos/internal/gasto"
)

type Empresas interface {
	GetAll(ctx context.Context) ([]catalog.Empresa, error)
	Create(ctx context.Context, e catalog.Empresa) (catalog.Empresa, error)
}

// Gastos hands out a service with the document types loaded once, so a whole
// register is checked against one read of the type list.
type Gastos interface {
	Preload(ctx context.Context) (*gasto.Service, error)
}

// Options fills the expense fields a register does not carry.
type Options struct {
	Categoria  string
	ProyectoID string
}

type Skipped struct {
	Line   int    `json:"line"`
	Folio  string `json:"folio"`
	Reason string `json:"reason"`
}

type Result struct {
	Created         []gasto.Gasto `json:"created"`
	Skipped         []Skipped     `json:"skipped"`
	EmpresasCreated int           `json:"empresasCreated"`
}

// ErrInvalidRegister wraps every failure to read the uploaded register.
var ErrInvalidRegister = errors.New("invalid register")

type Service struct {
	parsers  map[Source]Parser
	empresas Empresas
	gastos   Gastos
	log      *slog.Logger
}

func NewService(parsers map[Source]Parser, empresas Empresas, gastos Gastos, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{parsers: parsers, empresas: empresas, gastos: gastos, log: log}
}

func (s *Service) Parse(source Source, r io.Reader) ([]Compra, error) {
	p, ok := s.parsers[source]
	if !ok {
		return nil, fmt.Errorf("unknown source: %s", source)
	}

	return p.Parse(r)
}

// Import creates an expense for every document of the register that is not
// stored yet. Issuers missing from the company list are created first. On error
// the result holds what was created before it.
func (s *Service) Import(ctx context.Context, source Source, r io.Reader, opts Options) (Result, error) {
	compras, err := s.Parse(source, r)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRegister, err)
	}

	empresas, err := s.empresaIndex(ctx)
	if err != nil {
		return Result{}, err
	}

	gastos, err := s.gastos.Preload(ctx)
	if err != nil {
		return Result{}, err
	}

	seen, err := s.existing(ctx, gastos)
	if err != nil {
		return Result{}, err
	}

	var res Result

	for _, c := range compras {
		if c.NotaCredito {
			res.Skipped = append(res.Skipped, Skipped{Line: c.Line, Folio: c.Folio, Reason: "nota de crédito"})
			continue
		}

		rut := NormalizeRUT(c.RUT)

		empresa, ok := empresas[rut]
		if !ok {
			empresa, err = s.empresas.Create(ctx, catalog.Empresa{
				RazonSocial: c.RazonSocial,
				RUT:         c.RUT,
				Categoria:   c.Emisor,
			})
			if err != nil {
				return res, fmt.Errorf("row %d: creating empresa %s: %w", c.Line, c.RUT, err)
			}

			empresas[rut] = empresa
			res.EmpresasCreated++
		}

		key := documentKey(empresa.ID, c.TipoDocumento, c.Folio)
		if seen[key] {
			res.Skipped = append(res.Skipped, Skipped{Line: c.Line, Folio: c.Folio, Reason: "already imported"})
			continue
		}

		created, err := gastos.Create(ctx, gasto.Gasto{
			Fecha:           c.Fecha,
			EmpresaID:       empresa.ID,
			Categoria:       opts.Categoria,
			TipoDocumento:   c.TipoDocumento,
			NumeroDocumento: c.Folio,
			Monto:           c.Monto,
			Detalle:         c.RazonSocial,
			ProyectoID:      opts.ProyectoID,
		})
		if err != nil {
			return res, fmt.Errorf("row %d: creating gasto: %w", c.Line, err)
		}

		seen[key] = true
		res.Created = append(res.Created, created)
	}

	s.log.Info("register imported",
		"source", source, "documents", len(compras), "created", len(res.Created),
		"skipped", len(res.Skipped), "empresas_created", res.EmpresasCreated)

	return res, nil
}

func (s *Service) empresaIndex(ctx context.Context) (map[string]catalog.Empresa, error) {
	all, err := s.empresas.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading empresas: %w", err)
	}

	idx := make(map[string]catalog.Empresa, len(all))

	for _, e := range all {
		rut := NormalizeRUT(e.RUT)
		if _, dup := idx[rut]; rut != "" && !dup {
			idx[rut] = e
		}
	}

	return idx, nil
}

func (s *Service) existing(ctx context.Context, gastos *gasto.Service) (map[string]bool, error) {
	all, err := gastos.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading gastos: %w", err)
	}

	seen := make(map[string]bool, len(all))
	names := make(map[string]string)

	for _, g := range all {
		if g.NumeroDocumento == "" {
			continue
		}

		tipo, ok := names[g.TipoDocumento]
		if !ok {
			nombre, known, err := gastos.TipoNombre(ctx, g.TipoDocumento)
			if err != nil {
				return nil, err
			}

			tipo = g.TipoDocumento
			if known {
				tipo = nombre
			}

			names[g.TipoDocumento] = tipo
		}

		seen[documentKey(g.EmpresaID, tipo, g.NumeroDocumento)] = true
	}

	return seen, nil
}

func documentKey(empresaID, tipo, folio string) string {
	return empresaID + "\x00" + strings.ToLower(strings.TrimSpace(tipo)) + "\x00" + strings.TrimLeft(strings.TrimSpace(folio), "0")
}

// NormalizeRUT drops dots and spaces and upper-cases the check digit, so
// "76.123.456-k" and "76123456-K" compare equal.
func NormalizeRUT(rut string) string {
	return strings.ToUpper(strings.NewReplacer(".", "", " ", "").Replace(strings.TrimSpace(rut)))
}
