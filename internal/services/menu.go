package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-pos-client/internal/cache"
	"github.com/tbourn/go-pos-client/internal/domain"
)

// MenuAPI is the slice of the API client the menu needs.
type MenuAPI interface {
	MenuItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

// MenuFilter narrows the menu to one category; the zero value is the whole
// menu.
type MenuFilter struct {
	CategoryID string `json:"categoryId,omitempty"`
}

// MenuService serves the point-of-sale menu.
type MenuService struct {
	*resource[MenuFilter, domain.Menu]
}

// NewMenuService wires the menu domain.
func NewMenuService(api MenuAPI, c *cache.Cache, maxAge time.Duration) *MenuService {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	spec := resourceSpec[MenuFilter, domain.Menu]{
		name: "menu",
		keys: []string{cache.MenuItems, cache.MenuCategories},
		read: func(ctx context.Context, f MenuFilter) cached[domain.Menu] {
			var out cached[domain.Menu]
			if e := cache.Get[[]domain.MenuItem](ctx, c, cache.Key(cache.MenuItems, f), maxAge); e != nil {
				out.value.Items = e.Data
				out.hit, out.stale = true, e.IsStale
			}
			if e := cache.Get[[]domain.Category](ctx, c, cache.MenuCategories, maxAge); e != nil {
				out.value.Categories = e.Data
				out.hit, out.stale = true, out.stale || e.IsStale
			}
			return out
		},
		fetch: func(ctx context.Context, f MenuFilter) (domain.Menu, error) {
			var m domain.Menu
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				m.Items, err = api.MenuItems(gctx, f.CategoryID)
				return err
			})
			g.Go(func() (err error) {
				m.Categories, err = api.Categories(gctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return domain.Menu{}, err
			}
			return m, nil
		},
		write: func(ctx context.Context, f MenuFilter, m domain.Menu) {
			c.Set(ctx, cache.Key(cache.MenuItems, f), m.Items)
			c.Set(ctx, cache.MenuCategories, m.Categories)
		},
	}
	return &MenuService{resource: newResource(spec)}
}
