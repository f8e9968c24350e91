// Package sharepoint maps the application's typed entities onto SharePoint lists.
//
// It resolves and caches the site id, list ids and column internal names, turns
// business keys into row ids for lookup fields, and exposes a uniform
// create/read/update/delete gateway per entity kind.
package sharepoint

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/MrJamesThe3rd/gastos/internal/auth"
	"github.com/MrJamesThe3rd/gastos/internal/graph"
)

// Remote is the subset of the REST API the synchronization layer needs.
type Remote interface {
	SiteByPath(ctx context.Context, host, path string) (graph.Site, error)
	ListsByName(ctx context.Context, siteID, name string) ([]graph.List, error)
	Columns(ctx context.Context, siteID, listID string) ([]graph.Column, error)
	Items(ctx context.Context, siteID, listID string) ([]graph.Item, error)
	CreateItem(ctx context.Context, siteID, listID string, fields map[string]any) (graph.Item, error)
	UpdateItem(ctx context.Context, siteID, listID, itemID string, fields map[string]any) (map[string]any, error)
	DeleteItem(ctx context.Context, siteID, listID, itemID string) error
	ListDrive(ctx context.Context, siteID, listID string) (graph.Drive, error)
	Upload(ctx context.Context, driveID, path string, content io.Reader, contentType string) (graph.DriveItem, error)
}

// Accounts reports the signed-in account.
type Accounts interface {
	ActiveAccount() (auth.Account, bool)
}

// SiteRef locates the site by hostname and server-relative path.
type SiteRef struct {
	Host string
	Path string
}

// Client is the entry point for metadata resolution. It is cheap to build; the
// session-scoped state lives in the Cache it is given.
type Client struct {
	remote   Remote
	cache    *Cache
	site     SiteRef
	accounts Accounts
	log      *slog.Logger
}

func NewClient(remote Remote, cache *Cache, site SiteRef, accounts Accounts, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		remote:   remote,
		cache:    cache,
		site:     site,
		accounts: accounts,
		log:      log,
	}
}

// Account returns the signed-in account or ErrAuthRequired.
func (c *Client) Account() (auth.Account, error) {
	if c.accounts == nil {
		return auth.Account{}, ErrAuthRequired
	}

	acc, ok := c.accounts.ActiveAccount()
	if !ok {
		return auth.Account{}, ErrAuthRequired
	}

	return acc, nil
}

func (c *Client) requireAuth() error {
	_, err := c.Account()
	return err
}

// ResolveSiteID returns the site id, asking the store only on the first call of the session.
func (c *Client) ResolveSiteID(ctx context.Context) (string, error) {
	if id, ok := c.cache.site(); ok {
		return id, nil
	}

	v, err := c.cache.share(ctx, "site", func(ctx context.Context) (any, error) {
		if id, ok := c.cache.site(); ok {
			return id, nil
		}

		site, err := c.remote.SiteByPath(ctx, c.site.Host, c.site.Path)
		if err != nil {
			return "", classify(err)
		}

		c.cache.setSite(site.ID)
		c.log.Debug("resolved site", "host", c.site.Host, "path", c.site.Path, "site_id", site.ID)

		return site.ID, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// ResolveListID returns the id of the list whose display name is name. When the
// store returns several lists with that name the first one is used.
func (c *Client) ResolveListID(ctx context.Context, name string) (string, error) {
	if id, ok := c.cache.list(name); ok {
		return id, nil
	}

	siteID, err := c.ResolveSiteID(ctx)
	if err != nil {
		return "", err
	}

	v, err := c.cache.share(ctx, cacheKey("list", name), func(ctx context.Context) (any, error) {
		if id, ok := c.cache.list(name); ok {
			return id, nil
		}

		lists, err := c.remote.ListsByName(ctx, siteID, name)
		if err != nil {
			return "", classify(err)
		}

		if len(lists) == 0 {
			return "", WithMessage(ErrListNotFound, "list %q not found", name)
		}

		if len(lists) > 1 {
			c.log.Warn("several lists share a display name, using the first",
				"list", name, "matches", len(lists), "list_id", lists[0].ID)
		}

		c.cache.setList(name, lists[0].ID)

		return lists[0].ID, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// resolveDrive returns the drive id behind a document library.
func (c *Client) resolveDrive(ctx context.Context, siteID, listID string) (string, error) {
	if id, ok := c.cache.drive(listID); ok {
		return id, nil
	}

	d, err := c.remote.ListDrive(ctx, siteID, listID)
	if err != nil {
		return "", classify(err)
	}

	c.cache.setDrive(listID, d.ID)

	return d.ID, nil
}

// Upload stores a file in the named document library and returns the uploaded item.
func (c *Client) Upload(ctx context.Context, library, path string, content io.Reader, contentType string) (graph.DriveItem, error) {
	if err := c.requireAuth(); err != nil {
		return graph.DriveItem{}, err
	}

	siteID, err := c.ResolveSiteID(ctx)
	if err != nil {
		return graph.DriveItem{}, err
	}

	listID, err := c.ResolveListID(ctx, library)
	if err != nil {
		return graph.DriveItem{}, err
	}

	driveID, err := c.resolveDrive(ctx, siteID, listID)
	if err != nil {
		return graph.DriveItem{}, err
	}

	item, err := c.remote.Upload(ctx, driveID, path, content, contentType)
	if err != nil {
		return graph.DriveItem{}, fmt.Errorf("uploading to %s: %w", library, classify(err))
	}

	return item, nil
}
