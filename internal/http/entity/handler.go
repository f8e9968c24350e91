// Package entity serves the CRUD endpoints of the reference lists.
package entity

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/gastos/internal/http/respond"
	"github.com/MrJamesThe3rd/gastos/internal/http/session"
	"github.com/MrJamesThe3rd/gastos/internal/workspace"
)

type Store[E, P any] interface {
	GetAll(ctx context.Context) ([]E, error)
	Create(ctx context.Context, e E) (E, error)
	Update(ctx context.Context, id string, p P) (E, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves one list. pick selects the list's store from the request workspace.
type Handler[E, P any] struct {
	pick func(w *workspace.Workspace) Store[E, P]
}

func NewHandler[E, P any](pick func(w *workspace.Workspace) Store[E, P]) *Handler[E, P] {
	return &Handler[E, P]{pick: pick}
}

func (h *Handler[E, P]) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler[E, P]) store(r *http.Request) Store[E, P] {
	return h.pick(session.Workspace(r.Context()))
}

func (h *Handler[E, P]) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.store(r).GetAll(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	if items == nil {
		items = []E{}
	}

	respond.JSON(w, http.StatusOK, items)
}

func (h *Handler[E, P]) create(w http.ResponseWriter, r *http.Request) {
	var e E
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	created, err := h.store(r).Create(r.Context(), e)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, created)
}

func (h *Handler[E, P]) update(w http.ResponseWriter, r *http.Request) {
	var p P
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	updated, err := h.store(r).Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, updated)
}

func (h *Handler[E, P]) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store(r).Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
