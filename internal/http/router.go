package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/gastos/internal/catalog"
	"github.com/MrJamesThe3rd/gastos/internal/http/entity"
	"github.com/MrJamesThe3rd/gastos/internal/http/export"
	"github.com/MrJamesThe3rd/gastos/internal/http/gasto"
	"github.com/MrJamesThe3rd/gastos/internal/http/importcsv"
	"github.com/MrJamesThe3rd/gastos/internal/http/session"
	"github.com/MrJamesThe3rd/gastos/internal/workspace"
)

type Options struct {
	Sessions       *session.Registry
	Build          session.Builder
	StrictSchema   bool
	AllowedOrigins []string
}

func New(opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", session.HeaderSharePointToken},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(session.Middleware(opts.Sessions, opts.Build, opts.StrictSchema))

		r.Delete("/session", session.SignOut(opts.Sessions))

		r.Route("/empresas", entity.NewHandler(func(w *workspace.Workspace) entity.Store[catalog.Empresa, catalog.EmpresaPatch] {
			return w.Empresas
		}).Routes)
		r.Route("/proyectos", entity.NewHandler(func(w *workspace.Workspace) entity.Store[catalog.Proyecto, catalog.ProyectoPatch] {
			return w.Proyectos
		}).Routes)
		r.Route("/colaboradores", entity.NewHandler(func(w *workspace.Workspace) entity.Store[catalog.Colaborador, catalog.ColaboradorPatch] {
			return w.Colaboradores
		}).Routes)
		r.Route("/categorias", entity.NewHandler(func(w *workspace.Workspace) entity.Store[catalog.Categoria, catalog.CategoriaPatch] {
			return w.Categorias
		}).Routes)
		r.Route("/tipos-documento", entity.NewHandler(func(w *workspace.Workspace) entity.Store[catalog.TipoDocumento, catalog.TipoDocumentoPatch] {
			return w.TiposDocumento
		}).Routes)

		r.Route("/gastos", gasto.NewHandler().Routes)
		r.Route("/import", importcsv.NewHandler().Routes)

		r.Route("/export", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			export.NewHandler().Routes(r)
		})
	})

	return router
}
