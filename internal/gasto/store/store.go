// Package store keeps expenses in their SharePoint list and their files in the
// attachments document library.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/MrJamesThe3rd/gastos/internal/attachment"
	catalogstore "github.com/MrJamesThe3rd/gastos/internal/catalog/store"
	"github.com/MrJamesThe3rd/gastos/internal/encoding"
	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
)

// Lists names the lists the expense store reads and writes.
type Lists struct {
	Gastos         string
	Adjuntos       string
	Empresas       string
	Proyectos      string
	Colaboradores  string
	Categorias     string
	TiposDocumento string
}

type Store struct {
	gw      *sharepoint.Gateway[gasto.Gasto, gasto.Patch]
	client  *sharepoint.Client
	lists   Lists
	tracker *attachment.Tracker
	log     *slog.Logger
}

func New(client *sharepoint.Client, lists Lists, tracker *attachment.Tracker, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	if tracker == nil {
		tracker = attachment.NewTracker(nil, log)
	}

	return &Store{
		gw:      sharepoint.NewGateway[gasto.Gasto, gasto.Patch](client, mapper{list: lists.Gastos}),
		client:  client,
		lists:   lists,
		tracker: tracker,
		log:     log,
	}
}

func (s *Store) ValidateSchema(ctx context.Context) error {
	return s.gw.ValidateSchema(ctx)
}

func (s *Store) GetAll(ctx context.Context) ([]gasto.Gasto, error) {
	return s.gw.GetAll(ctx)
}

// Create stores the expense row and then uploads its pending files. When some
// uploads fail the created expense is returned together with a
// *sharepoint.PartialAttachmentError; the row is kept.
func (s *Store) Create(ctx context.Context, g gasto.Gasto) (gasto.Gasto, error) {
	acc, err := s.client.Account()
	if err != nil {
		return gasto.Gasto{}, err
	}

	if err := s.resolve(ctx, &g); err != nil {
		return gasto.Gasto{}, err
	}

	if g.SolicitanteID == "" && acc.Email != "" {
		g.SolicitanteID = s.optionalRef(ctx, s.lists.Colaboradores, catalogstore.ColaboradorEmailFields, acc.Email)
	}

	pending, stored := splitPending(g.ArchivosAdjuntos)
	g.ArchivosAdjuntos = stored

	created, err := s.gw.Create(ctx, g)
	if err != nil {
		return gasto.Gasto{}, err
	}

	if len(pending) == 0 {
		return created, nil
	}

	return s.attach(ctx, created, pending)
}

// Update writes the fields present in p. Pending files in p.ArchivosAdjuntos are
// uploaded after the fields are written, as on create.
func (s *Store) Update(ctx context.Context, id string, p gasto.Patch) (gasto.Gasto, error) {
	if err := s.resolvePatch(ctx, &p); err != nil {
		return gasto.Gasto{}, err
	}

	var pending []gasto.Adjunto

	if p.ArchivosAdjuntos != nil {
		var stored []gasto.Adjunto

		pending, stored = splitPending(*p.ArchivosAdjuntos)
		p.ArchivosAdjuntos = &stored
	}

	updated, err := s.gw.Update(ctx, id, p)
	if err != nil {
		return gasto.Gasto{}, err
	}

	if len(pending) == 0 {
		return updated, nil
	}

	return s.attach(ctx, updated, pending)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.gw.Delete(ctx, id)
}

// Pending reports the signed-in account's attachment uploads that did not complete.
func (s *Store) Pending(ctx context.Context) ([]attachment.Saga, error) {
	acc, err := s.client.Account()
	if err != nil {
		return nil, err
	}

	return s.tracker.Journal().Pending(ctx, acc.ID)
}

func (s *Store) attach(ctx context.Context, g gasto.Gasto, pending []gasto.Adjunto) (gasto.Gasto, error) {
	names := make([]string, len(pending))
	for i, a := range pending {
		names[i] = a.Nombre
	}

	acc, err := s.client.Account()
	if err != nil {
		return g, err
	}

	saga := s.tracker.Begin(ctx, acc.ID, s.lists.Gastos, g.ID, names)
	if err := s.tracker.Uploading(ctx, saga); err != nil {
		return g, fmt.Errorf("starting attachment upload: %w", err)
	}

	var (
		errs     []error
		uploaded []gasto.Adjunto
	)

	for _, a := range pending {
		contentType, body := a.Tipo, a.Contenido
		if contentType == "" {
			contentType, body = encoding.DetectContentType(a.Nombre, a.Contenido)
		}

		item, err := s.client.Upload(ctx, s.lists.Adjuntos, attachmentPath(g.ID, a.Nombre), body, contentType)
		if err != nil {
			s.tracker.Failed(saga, a.Nombre, err)
			errs = append(errs, fmt.Errorf("%s: %w", a.Nombre, err))

			continue
		}

		uploaded = append(uploaded, gasto.Adjunto{Nombre: a.Nombre, URL: item.WebURL, Tipo: contentType})
	}

	if len(uploaded) > 0 {
		all := append(slices.Clone(g.ArchivosAdjuntos), uploaded...)

		linked, err := s.gw.Update(ctx, g.ID, gasto.Patch{ArchivosAdjuntos: &all})
		if err != nil {
			for _, a := range uploaded {
				s.tracker.Failed(saga, a.Nombre, err)
			}

			errs = append(errs, fmt.Errorf("linking attachments: %w", err))
		} else {
			for _, a := range uploaded {
				s.tracker.Uploaded(saga, a.Nombre)
			}

			g = linked
		}
	}

	if err := s.tracker.Finish(ctx, saga); err != nil {
		s.log.Error("failed to finish attachment saga", "saga", saga.ID, "error", err)
	}

	if len(errs) > 0 {
		return g, &sharepoint.PartialAttachmentError{
			ItemID: g.ID,
			Failed: slices.Clone(saga.Failed),
			Err:    errors.Join(errs...),
		}
	}

	return g, nil
}

// resolve turns business keys in reference fields into row ids. The company is
// mandatory; the project is optional and dropped when it cannot be found.
func (s *Store) resolve(ctx context.Context, g *gasto.Gasto) error {
	var err error

	if g.EmpresaID, err = s.empresa(ctx, g.EmpresaID); err != nil {
		return err
	}

	if g.Categoria, err = s.requiredRef(ctx, s.lists.Categorias, catalogstore.CategoriaNombreFields, g.Categoria); err != nil {
		return err
	}

	if g.TipoDocumento, err = s.tipoDocumento(ctx, g.TipoDocumento); err != nil {
		return err
	}

	g.ProyectoID = s.optionalRef(ctx, s.lists.Proyectos, catalogstore.ProyectoNombreFields, g.ProyectoID)

	return nil
}

func (s *Store) resolvePatch(ctx context.Context, p *gasto.Patch) error {
	if p.EmpresaID != nil {
		id, err := s.empresa(ctx, *p.EmpresaID)
		if err != nil {
			return err
		}

		p.EmpresaID = &id
	}

	if p.Categoria != nil {
		id, err := s.requiredRef(ctx, s.lists.Categorias, catalogstore.CategoriaNombreFields, *p.Categoria)
		if err != nil {
			return err
		}

		p.Categoria = &id
	}

	if p.TipoDocumento != nil {
		id, err := s.tipoDocumento(ctx, *p.TipoDocumento)
		if err != nil {
			return err
		}

		p.TipoDocumento = &id
	}

	if p.ProyectoID != nil {
		id := s.optionalRef(ctx, s.lists.Proyectos, catalogstore.ProyectoNombreFields, *p.ProyectoID)
		p.ProyectoID = &id
	}

	return nil
}

// empresa accepts a row id, a RUT or a company name.
func (s *Store) empresa(ctx context.Context, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", sharepoint.WithMessage(sharepoint.ErrLookupUnresolved, "empresa is required")
	}

	id, err := s.client.ResolveReference(ctx, s.lists.Empresas, catalogstore.EmpresaRUTFields, ref)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, sharepoint.ErrLookupUnresolved) {
		return "", err
	}

	id, err = s.client.ResolveRowID(ctx, s.lists.Empresas, catalogstore.EmpresaNombreFields, ref)
	if err != nil {
		return "", fmt.Errorf("resolving empresa: %w", err)
	}

	return id, nil
}

func (s *Store) requiredRef(ctx context.Context, list string, fields []string, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", nil
	}

	id, err := s.client.ResolveReference(ctx, list, fields, ref)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", list, err)
	}

	return id, nil
}

// tipoDocumento keeps the value as given while the document type list does not exist.
func (s *Store) tipoDocumento(ctx context.Context, ref string) (string, error) {
	id, err := s.requiredRef(ctx, s.lists.TiposDocumento, catalogstore.TipoDocumentoNameFields, ref)
	if errors.Is(err, sharepoint.ErrListNotFound) {
		s.log.Warn("document type list not provisioned, storing the value as given",
			"list", s.lists.TiposDocumento, "value", ref)

		return ref, nil
	}

	return id, err
}

func (s *Store) optionalRef(ctx context.Context, list string, fields []string, ref string) string {
	if strings.TrimSpace(ref) == "" {
		return ""
	}

	id, err := s.client.ResolveReference(ctx, list, fields, ref)
	if err != nil {
		s.log.Warn("optional reference not resolved, leaving it empty", "list", list, "value", ref, "error", err)
		return ""
	}

	return id
}

func splitPending(as []gasto.Adjunto) (pending, stored []gasto.Adjunto) {
	for _, a := range as {
		if a.Pending() {
			pending = append(pending, a)
		} else if a.URL != "" {
			stored = append(stored, a)
		}
	}

	return pending, stored
}

func attachmentPath(itemID, name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(strings.TrimSpace(name))
	if name == "" {
		name = "adjunto"
	}

	return path.Join("gastos", itemID, name)
}
