package sharepoint

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// lookupIndex maps normalised business keys of one list to row ids.
type lookupIndex struct {
	byKey map[string]string
	ids   map[string]struct{}
}

func normalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// ResolveRowID finds the row of listName whose first present candidate field
// equals value, ignoring case and surrounding whitespace. The index behind it is
// rebuilt once on a miss, since the list may have changed since it was built.
func (c *Client) ResolveRowID(ctx context.Context, listName string, candidates []string, value string) (string, error) {
	if err := c.requireAuth(); err != nil {
		return "", err
	}

	want := normalizeKey(value)
	if want == "" {
		return "", WithMessage(ErrLookupUnresolved, "empty value for %s", listName)
	}

	idx, err := c.lookupIndex(ctx, listName, candidates, false)
	if err != nil {
		return "", err
	}

	if id, ok := idx.byKey[want]; ok {
		return id, nil
	}

	idx, err = c.lookupIndex(ctx, listName, candidates, true)
	if err != nil {
		return "", err
	}

	if id, ok := idx.byKey[want]; ok {
		return id, nil
	}

	return "", WithMessage(ErrLookupUnresolved, "no row in %s where %s is %q",
		listName, strings.Join(candidates, "/"), strings.TrimSpace(value))
}

// ResolveReference accepts either a row id of listName or a business key. A
// positive integer naming an existing row is returned as is; anything else is
// looked up through the candidate fields.
func (c *Client) ResolveReference(ctx context.Context, listName string, candidates []string, value string) (string, error) {
	if err := c.requireAuth(); err != nil {
		return "", err
	}

	value = strings.TrimSpace(value)

	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		idx, err := c.lookupIndex(ctx, listName, candidates, false)
		if err != nil {
			return "", err
		}

		if _, ok := idx.ids[value]; ok {
			return value, nil
		}
	}

	return c.ResolveRowID(ctx, listName, candidates, value)
}

func (c *Client) lookupIndex(ctx context.Context, listName string, candidates []string, rebuild bool) (*lookupIndex, error) {
	listID, err := c.ResolveListID(ctx, listName)
	if err != nil {
		return nil, err
	}

	key := cacheKey(listID, strings.Join(candidates, "|"))
	if !rebuild {
		if idx, ok := c.cache.index(key); ok {
			return idx, nil
		}
	}

	v, err := c.cache.share(ctx, cacheKey("index", key), func(ctx context.Context) (any, error) {
		idx, err := c.buildIndex(ctx, listName, listID, candidates)
		if err != nil {
			return nil, err
		}

		c.cache.setIndex(key, idx)

		return idx, nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", listName, err)
	}

	return v.(*lookupIndex), nil
}

func (c *Client) buildIndex(ctx context.Context, listName, listID string, candidates []string) (*lookupIndex, error) {
	siteID, err := c.ResolveSiteID(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := c.candidateKeys(ctx, listID, candidates)
	if err != nil {
		return nil, err
	}

	items, err := c.remote.Items(ctx, siteID, listID)
	if err != nil {
		return nil, classify(err)
	}

	idx := &lookupIndex{
		byKey: make(map[string]string, len(items)),
		ids:   make(map[string]struct{}, len(items)),
	}

	for _, item := range items {
		idx.ids[item.ID] = struct{}{}

		k := normalizeKey(firstPresent(item.Fields, keys))
		if k == "" {
			continue
		}

		if prev, dup := idx.byKey[k]; dup {
			c.log.Warn("duplicate lookup key, keeping the first row",
				"list", listName, "key", k, "kept", prev, "ignored", item.ID)

			continue
		}

		idx.byKey[k] = item.ID
	}

	c.log.Debug("built lookup index", "list", listName, "rows", len(items), "keys", len(idx.byKey))

	return idx, nil
}

// candidateKeys expands each candidate with the internal name its column resolves to.
func (c *Client) candidateKeys(ctx context.Context, listID string, candidates []string) ([]string, error) {
	cols, err := c.columns(ctx, listID)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(candidates)*2)
	for _, candidate := range candidates {
		keys = append(keys, candidate)

		if gc, ok := matchColumn(cols, candidate); ok && gc.Name != candidate {
			keys = append(keys, gc.Name)
		}
	}

	return keys, nil
}

func firstPresent(fields map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}

		if s := stringValue(v); s != "" {
			return s
		}
	}

	return ""
}
