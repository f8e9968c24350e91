// Package gasto holds the expense entity and the rules applied around its storage.
package gasto

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/gastos/internal/catalog"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=gasto
type Repository interface {
	GetAll(ctx context.Context) ([]Gasto, error)
	Create(ctx context.Context, g Gasto) (Gasto, error)
	Update(ctx context.Context, id string, p Patch) (Gasto, error)
	Delete(ctx context.Context, id string) error
}

type DocumentTypes interface {
	GetAll(ctx context.Context) ([]catalog.TipoDocumento, error)
}

type Service struct {
	repo  Repository
	tipos DocumentTypes
}

func NewService(repo Repository, tipos DocumentTypes) *Service {
	return &Service{repo: repo, tipos: tipos}
}

func (s *Service) GetAll(ctx context.Context) ([]Gasto, error) {
	return s.repo.GetAll(ctx)
}

// Create stores an expense. The document type comment is dropped unless the
// document type is one of the "other" types.
func (s *Service) Create(ctx context.Context, g Gasto) (Gasto, error) {
	keep, err := s.keepsComentario(ctx, g.TipoDocumento)
	if err != nil {
		return Gasto{}, err
	}

	if !keep {
		g.ComentarioTipoDocumento = ""
	}

	return s.repo.Create(ctx, g)
}

// Update applies p. A comment sent without a document type is checked against
// the type the row already has.
func (s *Service) Update(ctx context.Context, id string, p Patch) (Gasto, error) {
	tipo, ok, err := s.patchTipo(ctx, id, p)
	if err != nil {
		return Gasto{}, err
	}

	if ok {
		keep, err := s.keepsComentario(ctx, tipo)
		if err != nil {
			return Gasto{}, err
		}

		if !keep {
			empty := ""
			p.ComentarioTipoDocumento = &empty
		}
	}

	return s.repo.Update(ctx, id, p)
}

// patchTipo returns the document type the row will have after p. ok is false
// when p touches neither the type nor the comment, or the row does not exist.
func (s *Service) patchTipo(ctx context.Context, id string, p Patch) (tipo string, ok bool, err error) {
	if p.TipoDocumento != nil {
		return *p.TipoDocumento, true, nil
	}

	if p.ComentarioTipoDocumento == nil || *p.ComentarioTipoDocumento == "" {
		return "", false, nil
	}

	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return "", false, fmt.Errorf("loading gasto %s: %w", id, err)
	}

	for _, g := range all {
		if g.ID == id {
			return g.TipoDocumento, true, nil
		}
	}

	return "", false, nil
}

// keepsComentario reports whether a comment may be stored next to ref. A type
// missing from the list is judged by ref itself, which then holds the name.
func (s *Service) keepsComentario(ctx context.Context, ref string) (bool, error) {
	nombre, known, err := s.TipoNombre(ctx, ref)
	if err != nil {
		return false, err
	}

	if !known {
		nombre = ref
	}

	return RequiresComentario(nombre), nil
}

// Preload returns a service that reads the document type list once, now, and
// reuses it for every later call. Meant for batches such as an import.
func (s *Service) Preload(ctx context.Context) (*Service, error) {
	if s.tipos == nil {
		return s, nil
	}

	tipos, err := s.tipos.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading document types: %w", err)
	}

	return &Service{repo: s.repo, tipos: loadedTipos(tipos)}, nil
}

type loadedTipos []catalog.TipoDocumento

func (l loadedTipos) GetAll(context.Context) ([]catalog.TipoDocumento, error) { return l, nil }

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// TipoNombre returns the name of the document type ref points to, by row id or
// by name. known is false when the type is not in the list.
func (s *Service) TipoNombre(ctx context.Context, ref string) (nombre string, known bool, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || s.tipos == nil {
		return "", false, nil
	}

	tipos, err := s.tipos.GetAll(ctx)
	if err != nil {
		return "", false, fmt.Errorf("loading document types: %w", err)
	}

	for _, t := range tipos {
		if t.ID == ref || strings.EqualFold(strings.TrimSpace(t.Nombre), ref) {
			return t.Nombre, true, nil
		}
	}

	return "", false, nil
}

// RequiresComentario reports whether a document type needs a free-text description.
func RequiresComentario(tipoNombre string) bool {
	switch strings.ToLower(strings.TrimSpace(tipoNombre)) {
	case "otros", "otro", "other":
		return true
	default:
		return false
	}
}

// ValidationError lists what is wrong with an expense before it is submitted.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid gasto: " + strings.Join(e.Problems, "; ")
}

// Validate applies the form rules. The store does not enforce them, so callers
// that skip Validate may persist an empty comment for an "other" document type.
func Validate(g Gasto, tipoNombre string) error {
	var problems []string

	if g.Fecha.IsZero() {
		problems = append(problems, "fecha is required")
	}

	if strings.TrimSpace(g.EmpresaID) == "" {
		problems = append(problems, "empresaId is required")
	}

	if strings.TrimSpace(g.Categoria) == "" {
		problems = append(problems, "categoria is required")
	}

	if strings.TrimSpace(g.TipoDocumento) == "" {
		problems = append(problems, "tipoDocumento is required")
	}

	if g.Monto <= 0 {
		problems = append(problems, "monto must be positive")
	}

	if RequiresComentario(tipoNombre) && strings.TrimSpace(g.ComentarioTipoDocumento) == "" {
		problems = append(problems, "comentarioTipoDocumento is required for "+tipoNombre)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}
