// Package workspace wires the gateways, services and collections of one signed-in
// session on top of a shared remote client and metadata cache.
package workspace

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrJamesThe3rd/gastos/internal/attachment"
	"github.com/MrJamesThe3rd/gastos/internal/catalog"
	catalogstore "github.com/MrJamesThe3rd/gastos/internal/catalog/store"
	"github.com/MrJamesThe3rd/gastos/internal/config"
	"github.com/MrJamesThe3rd/gastos/internal/export"
	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	gastostore "github.com/MrJamesThe3rd/gastos/internal/gasto/store"
	"github.com/MrJamesThe3rd/gastos/internal/importer"
	"github.com/MrJamesThe3rd/gastos/internal/importer/rcv"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
	"github.com/MrJamesThe3rd/gastos/internal/synced"
)

type Settings struct {
	Site  sharepoint.SiteRef
	Lists gastostore.Lists
}

func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	host, path, err := cfg.SiteHost()
	if err != nil {
		return Settings{}, err
	}

	l := cfg.SharePoint.Lists

	return Settings{
		Site: sharepoint.SiteRef{Host: host, Path: path},
		Lists: gastostore.Lists{
			Gastos:         l.Gastos,
			Adjuntos:       l.Adjuntos,
			Empresas:       l.Empresas,
			Proyectos:      l.Proyectos,
			Colaboradores:  l.Colaboradores,
			Categorias:     l.Categorias,
			TiposDocumento: l.TiposDocumento,
		},
	}, nil
}

type Workspace struct {
	Client         *sharepoint.Client
	Empresas       *catalogstore.Empresas
	Proyectos      *catalogstore.Proyectos
	Colaboradores  *catalogstore.Colaboradores
	Categorias     *catalogstore.Categorias
	TiposDocumento *catalogstore.TiposDocumento
	GastoStore     *gastostore.Store
	Gastos         *gasto.Service
	Import         *importer.Service
	// Export is nil when the remote cannot download library files.
	Export *export.Service
}

// New builds a workspace. The cache is owned by the caller and lives as long as
// the session it belongs to.
func New(remote sharepoint.Remote, cache *sharepoint.Cache, accounts sharepoint.Accounts, s Settings, tracker *attachment.Tracker, log *slog.Logger) *Workspace {
	if log == nil {
		log = slog.Default()
	}

	client := sharepoint.NewClient(remote, cache, s.Site, accounts, log)

	w := &Workspace{
		Client:         client,
		Empresas:       catalogstore.NewEmpresas(client, s.Lists.Empresas),
		Proyectos:      catalogstore.NewProyectos(client, s.Lists.Proyectos),
		Colaboradores:  catalogstore.NewColaboradores(client, s.Lists.Colaboradores),
		Categorias:     catalogstore.NewCategorias(client, s.Lists.Categorias),
		TiposDocumento: catalogstore.NewTiposDocumento(client, s.Lists.TiposDocumento),
		GastoStore:     gastostore.New(client, s.Lists, tracker, log),
	}

	w.Gastos = gasto.NewService(w.GastoStore, w.TiposDocumento)
	w.Import = importer.NewService(
		map[importer.Source]importer.Parser{importer.SourceRCV: rcv.NewParser()},
		w.Empresas, w.Gastos, log,
	)

	if d, ok := remote.(export.Downloader); ok {
		w.Export = export.NewService(w.Gastos, d)
	}

	return w
}

// ValidateSchemas checks every list against its mapping and reports all
// problems at once. A missing optional list is not a problem.
func (w *Workspace) ValidateSchemas(ctx context.Context) error {
	checks := []interface {
		ValidateSchema(ctx context.Context) error
	}{w.Empresas, w.Proyectos, w.Colaboradores, w.Categorias, w.TiposDocumento, w.GastoStore}

	var errs []error

	for _, c := range checks {
		if err := c.ValidateSchema(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Collections are the locally synchronised copies of each list.
type Collections struct {
	Empresas       *synced.Collection[catalog.Empresa, catalog.EmpresaPatch]
	Proyectos      *synced.Collection[catalog.Proyecto, catalog.ProyectoPatch]
	Colaboradores  *synced.Collection[catalog.Colaborador, catalog.ColaboradorPatch]
	Categorias     *synced.Collection[catalog.Categoria, catalog.CategoriaPatch]
	TiposDocumento *synced.Collection[catalog.TipoDocumento, catalog.TipoDocumentoPatch]
	Gastos         *synced.Collection[gasto.Gasto, gasto.Patch]
}

func (w *Workspace) Collections(log *slog.Logger) Collections {
	return Collections{
		Empresas:       synced.New[catalog.Empresa, catalog.EmpresaPatch](w.Empresas, w.Client, log),
		Proyectos:      synced.New[catalog.Proyecto, catalog.ProyectoPatch](w.Proyectos, w.Client, log),
		Colaboradores:  synced.New[catalog.Colaborador, catalog.ColaboradorPatch](w.Colaboradores, w.Client, log),
		Categorias:     synced.New[catalog.Categoria, catalog.CategoriaPatch](w.Categorias, w.Client, log),
		TiposDocumento: synced.New[catalog.TipoDocumento, catalog.TipoDocumentoPatch](w.TiposDocumento, w.Client, log),
		Gastos:         synced.New[gasto.Gasto, gasto.Patch](w.Gastos, w.Client, log),
	}
}

// MountAll mounts every collection and returns the errors of those that failed.
func (c Collections) MountAll(ctx context.Context) error {
	return errors.Join(
		c.Empresas.Mount(ctx),
		c.Proyectos.Mount(ctx),
		c.Colaboradores.Mount(ctx),
		c.Categorias.Mount(ctx),
		c.TiposDocumento.Mount(ctx),
		c.Gastos.Mount(ctx),
	)
}
