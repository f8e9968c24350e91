package sharepoint

import (
	"context"
	"strings"

	"github.com/MrJamesThe3rd/gastos/internal/graph"
)

// ColumnKind is the declared type of a list column.
type ColumnKind string

const (
	KindText      ColumnKind = "text"
	KindNote      ColumnKind = "note"
	KindNumber    ColumnKind = "number"
	KindCurrency  ColumnKind = "currency"
	KindChoice    ColumnKind = "choice"
	KindLookup    ColumnKind = "lookup"
	KindBoolean   ColumnKind = "boolean"
	KindDateTime  ColumnKind = "dateTime"
	KindPerson    ColumnKind = "person"
	KindHyperlink ColumnKind = "hyperlink"
	KindUnknown   ColumnKind = "unknown"
)

// Column is the outcome of resolving a display name against a list's schema.
// When Found is false Internal holds the requested name as a best-effort guess.
type Column struct {
	Internal string
	Display  string
	Kind     ColumnKind
	Found    bool
}

// IsReference reports whether values of the column are row ids of another list.
func (c Column) IsReference() bool {
	return c.Kind == KindLookup || c.Kind == KindPerson
}

// Key is the field key used to read and write the column's value. Reference
// columns are addressed through their companion id field.
func (c Column) Key() string {
	if c.IsReference() {
		return c.Internal + "LookupId"
	}

	return c.Internal
}

func kindOf(col graph.Column) ColumnKind {
	switch {
	case col.Text != nil:
		if multi, _ := col.Text["allowMultipleLines"].(bool); multi {
			return KindNote
		}

		return KindText
	case col.Number != nil:
		return KindNumber
	case col.Currency != nil:
		return KindCurrency
	case col.Choice != nil:
		return KindChoice
	case col.Lookup != nil:
		return KindLookup
	case col.Boolean != nil:
		return KindBoolean
	case col.DateTime != nil:
		return KindDateTime
	case col.PersonOrGroup != nil:
		return KindPerson
	case col.HyperlinkOrPicture != nil:
		return KindHyperlink
	default:
		return KindUnknown
	}
}

// ResolveColumn maps a display name to the column's internal name. The match is
// case-insensitive against display names first and internal names second. With no
// match the display name is returned unchanged with Found set to false and a
// warning is logged; a later write using it may be rejected by the store.
func (c *Client) ResolveColumn(ctx context.Context, listID, displayName string) (Column, error) {
	if err := c.requireAuth(); err != nil {
		return Column{}, err
	}

	return c.resolveField(ctx, listID, []string{displayName})
}

// resolveField tries each candidate in order and returns the first match. Only
// successful resolutions are cached so a fixed schema is picked up on the next call.
func (c *Client) resolveField(ctx context.Context, listID string, candidates []string) (Column, error) {
	if len(candidates) == 0 {
		return Column{}, WithMessage(ErrColumnNotFound, "no column candidates given")
	}

	key := cacheKey(listID, strings.Join(candidates, "|"))
	if col, ok := c.cache.resolvedColumn(key); ok {
		return col, nil
	}

	cols, err := c.columns(ctx, listID)
	if err != nil {
		return Column{}, err
	}

	for _, candidate := range candidates {
		if gc, ok := matchColumn(cols, candidate); ok {
			col := Column{Internal: gc.Name, Display: gc.DisplayName, Kind: kindOf(gc), Found: true}
			c.cache.setResolvedColumn(key, col)

			return col, nil
		}
	}

	c.log.Warn("column not found, using display name as is",
		"list_id", listID, "candidates", candidates)

	return Column{Internal: candidates[0], Display: candidates[0], Kind: KindUnknown}, nil
}

func (c *Client) columns(ctx context.Context, listID string) ([]graph.Column, error) {
	if cols, ok := c.cache.listColumns(listID); ok {
		return cols, nil
	}

	siteID, err := c.ResolveSiteID(ctx)
	if err != nil {
		return nil, err
	}

	v, err := c.cache.share(ctx, cacheKey("columns", listID), func(ctx context.Context) (any, error) {
		cols, err := c.remote.Columns(ctx, siteID, listID)
		if err != nil {
			return nil, classify(err)
		}

		c.cache.setListColumns(listID, cols)

		return cols, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]graph.Column), nil
}

func matchColumn(cols []graph.Column, name string) (graph.Column, bool) {
	name = strings.TrimSpace(name)

	for _, col := range cols {
		if strings.EqualFold(col.DisplayName, name) {
			return col, true
		}
	}

	for _, col := range cols {
		if strings.EqualFold(col.Name, name) {
			return col, true
		}
	}

	return graph.Column{}, false
}
