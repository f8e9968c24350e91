package sharepoint

import (
	"context"
	"fmt"
)

// FieldSpec maps one local field to the display names it may carry in the store,
// in order of preference.
type FieldSpec struct {
	Name       string
	Candidates []string
	Required   bool
}

// ListSpec is the mapping table of one entity kind. An Optional list that does
// not exist reads as empty instead of failing.
type ListSpec struct {
	Name     string
	Optional bool
	Fields   []FieldSpec
}

// Schema holds the resolved column of every field of a ListSpec.
type Schema struct {
	ListID  string
	Columns map[string]Column
	Missing []string
}

func (s Schema) Column(field string) (Column, bool) {
	col, ok := s.Columns[field]
	return col, ok
}

// ResolveSchema resolves every field of spec against the live columns of the list.
// Fields that cannot be resolved keep a best-effort column; required ones are
// also reported in Missing.
func (c *Client) ResolveSchema(ctx context.Context, spec ListSpec) (Schema, error) {
	listID, err := c.ResolveListID(ctx, spec.Name)
	if err != nil {
		return Schema{}, err
	}

	return c.resolveSchema(ctx, listID, spec)
}

func (c *Client) resolveSchema(ctx context.Context, listID string, spec ListSpec) (Schema, error) {
	s := Schema{ListID: listID, Columns: make(map[string]Column, len(spec.Fields))}

	for _, f := range spec.Fields {
		col, err := c.resolveField(ctx, listID, f.Candidates)
		if err != nil {
			return Schema{}, fmt.Errorf("resolving %s.%s: %w", spec.Name, f.Name, err)
		}

		if !col.Found && f.Required {
			s.Missing = append(s.Missing, f.Name)
		}

		s.Columns[f.Name] = col
	}

	return s, nil
}

// ValidateSchema checks that every required field of spec resolves to a column.
// It returns a *SchemaError naming all missing fields at once.
func (c *Client) ValidateSchema(ctx context.Context, spec ListSpec) error {
	if err := c.requireAuth(); err != nil {
		return err
	}

	s, err := c.ResolveSchema(ctx, spec)
	if err != nil {
		return err
	}

	if len(s.Missing) > 0 {
		return &SchemaError{List: spec.Name, Missing: s.Missing}
	}

	return nil
}
