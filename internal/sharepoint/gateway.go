package sharepoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/gastos/internal/graph"
)

// Mapper translates one entity kind between its local shape E, its sparse update
// shape P and the store's rows.
type Mapper[E, P any] interface {
	Spec() ListSpec
	Decode(r Record) (E, error)
	Encode(e E, f *Fields)
	EncodePatch(p P, f *Fields)
}

// Gateway performs create/read/update/delete for one entity kind against its list.
// It never retries; every failure is returned typed.
type Gateway[E, P any] struct {
	client *Client
	mapper Mapper[E, P]
}

func NewGateway[E, P any](client *Client, mapper Mapper[E, P]) *Gateway[E, P] {
	return &Gateway[E, P]{client: client, mapper: mapper}
}

func (g *Gateway[E, P]) Client() *Client { return g.client }

func (g *Gateway[E, P]) ListName() string { return g.mapper.Spec().Name }

// GetAll returns every row in store order. A missing optional list reads as empty.
func (g *Gateway[E, P]) GetAll(ctx context.Context) ([]E, error) {
	spec := g.mapper.Spec()

	site, schema, err := g.prepare(ctx, spec)
	if err != nil {
		if spec.Optional && errors.Is(err, ErrListNotFound) {
			g.client.log.Info("optional list not provisioned, returning no rows", "list", spec.Name)
			return []E{}, nil
		}

		return nil, err
	}

	items, err := g.client.remote.Items(ctx, site, schema.ListID)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", spec.Name, classify(err))
	}

	out := make([]E, 0, len(items))

	for _, item := range items {
		e, err := g.mapper.Decode(newRecord(item.ID, item.CreatedDateTime, item.Fields, schema))
		if err != nil {
			return nil, fmt.Errorf("decoding %s row %s: %w", spec.Name, item.ID, err)
		}

		out = append(out, e)
	}

	return out, nil
}

// Create writes a new row and returns the entity as the store saved it.
func (g *Gateway[E, P]) Create(ctx context.Context, e E) (E, error) {
	var zero E

	spec := g.mapper.Spec()

	site, schema, err := g.prepare(ctx, spec)
	if err != nil {
		return zero, err
	}

	f := newFields(schema)
	g.mapper.Encode(e, f)

	item, err := g.client.remote.CreateItem(ctx, site, schema.ListID, f.Map())
	if err != nil {
		return zero, fmt.Errorf("creating %s row: %w", spec.Name, g.writeFailed(schema.ListID, err))
	}

	g.client.cache.invalidateIndexes(schema.ListID)

	created, err := g.mapper.Decode(newRecord(item.ID, item.CreatedDateTime, item.Fields, schema))
	if err != nil {
		return zero, fmt.Errorf("decoding created %s row: %w", spec.Name, err)
	}

	return created, nil
}

// Update writes only the fields present in p and returns the whole row after the write.
func (g *Gateway[E, P]) Update(ctx context.Context, id string, p P) (E, error) {
	var zero E

	spec := g.mapper.Spec()

	site, schema, err := g.prepare(ctx, spec)
	if err != nil {
		return zero, err
	}

	f := newFields(schema)
	g.mapper.EncodePatch(p, f)

	fields, err := g.client.remote.UpdateItem(ctx, site, schema.ListID, id, f.Map())
	if err != nil {
		return zero, fmt.Errorf("updating %s row %s: %w", spec.Name, id, g.writeFailed(schema.ListID, err))
	}

	g.client.cache.invalidateIndexes(schema.ListID)

	updated, err := g.mapper.Decode(newRecord(id, createdAt(fields), fields, schema))
	if err != nil {
		return zero, fmt.Errorf("decoding updated %s row: %w", spec.Name, err)
	}

	return updated, nil
}

// Delete removes the row. Rows of other lists referencing it are left as they are.
func (g *Gateway[E, P]) Delete(ctx context.Context, id string) error {
	spec := g.mapper.Spec()

	if err := g.client.requireAuth(); err != nil {
		return err
	}

	site, err := g.client.ResolveSiteID(ctx)
	if err != nil {
		return err
	}

	listID, err := g.client.ResolveListID(ctx, spec.Name)
	if err != nil {
		return err
	}

	if err := g.client.remote.DeleteItem(ctx, site, listID, id); err != nil {
		return fmt.Errorf("deleting %s row %s: %w", spec.Name, id, classify(err))
	}

	g.client.cache.invalidateIndexes(listID)

	return nil
}

// ValidateSchema checks the list against the entity's mapping table.
func (g *Gateway[E, P]) ValidateSchema(ctx context.Context) error {
	spec := g.mapper.Spec()

	err := g.client.ValidateSchema(ctx, spec)
	if spec.Optional && errors.Is(err, ErrListNotFound) {
		return nil
	}

	return err
}

func (g *Gateway[E, P]) prepare(ctx context.Context, spec ListSpec) (string, Schema, error) {
	if err := g.client.requireAuth(); err != nil {
		return "", Schema{}, err
	}

	site, err := g.client.ResolveSiteID(ctx)
	if err != nil {
		return "", Schema{}, err
	}

	schema, err := g.client.ResolveSchema(ctx, spec)
	if err != nil {
		return "", Schema{}, err
	}

	return site, schema, nil
}

// writeFailed drops the cached columns of a list whose schema the store rejected.
func (g *Gateway[E, P]) writeFailed(listID string, err error) error {
	if isSchemaRejection(err) {
		g.client.log.Warn("store rejected the write, dropping cached columns", "list_id", listID, "error", err)
		g.client.cache.forgetColumns(listID)
	}

	return classify(err)
}

func createdAt(fields map[string]any) time.Time {
	s, _ := fields["Created"].(string)

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}

	return t
}

var _ Remote = (*graph.Client)(nil)
