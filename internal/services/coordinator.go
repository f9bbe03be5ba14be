package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-pos-client/internal/cache"
)

// Domain is a read model the Coordinator can refresh.
type Domain interface {
	Name() string
	CacheKeys() []string
	Refresh(ctx context.Context) bool
}

// Mutation kinds accepted by Apply.
const (
	MutationSale     = "sale"
	MutationStock    = "stock"
	MutationProduct  = "product"
	MutationExpense  = "expense"
	MutationCategory = "category"
)

var mutationGroups = map[string]cache.Group{
	MutationSale:     cache.GroupSales,
	MutationStock:    cache.GroupStock,
	MutationProduct:  cache.GroupProducts,
	MutationExpense:  cache.GroupExpenses,
	MutationCategory: cache.GroupCategories,
}

// Coordinator turns mutations into cache invalidation plus a forced reload
// of every affected domain. A domain is affected when one of its cache keys
// matches a pattern of the mutation's group, so the topology table stays the
// only place that knows what depends on what.
type Coordinator struct {
	cache   *cache.Cache
	domains []Domain
	log     zerolog.Logger
}

// NewCoordinator returns a Coordinator over domains.
func NewCoordinator(c *cache.Cache, domains ...Domain) *Coordinator {
	return &Coordinator{
		cache:   c,
		domains: domains,
		log:     log.With().Str("component", "coordinator").Logger(),
	}
}

// OnSaleCreated refreshes after a sale: stock and revenue both moved.
func (c *Coordinator) OnSaleCreated(ctx context.Context) { c.mutate(ctx, cache.GroupSales) }

// OnStockUpdated refreshes after a stock adjustment.
func (c *Coordinator) OnStockUpdated(ctx context.Context) { c.mutate(ctx, cache.GroupStock) }

// OnProductUpdated refreshes after a product edit.
func (c *Coordinator) OnProductUpdated(ctx context.Context) { c.mutate(ctx, cache.GroupProducts) }

// OnExpenseUpdated refreshes after an expense change.
func (c *Coordinator) OnExpenseUpdated(ctx context.Context) { c.mutate(ctx, cache.GroupExpenses) }

// OnCategoryUpdated refreshes after a category change.
func (c *Coordinator) OnCategoryUpdated(ctx context.Context) { c.mutate(ctx, cache.GroupCategories) }

// OnOrganizationChanged drops the whole cache and reloads every domain that
// was loaded before.
func (c *Coordinator) OnOrganizationChanged(ctx context.Context) {
	c.cache.ClearAll(ctx)
	n := c.reload(ctx, c.domains)
	c.log.Info().Int("reloaded", n).Msg("organization changed; cache cleared")
}

// Apply dispatches a mutation by kind (see the Mutation constants).
func (c *Coordinator) Apply(ctx context.Context, kind string) error {
	g, ok := mutationGroups[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMutation, kind)
	}
	c.mutate(ctx, g)
	return nil
}

// Affected returns the domains whose cache keys group g invalidates.
func (c *Coordinator) Affected(g cache.Group) []Domain {
	patterns := cache.Patterns(g)
	var out []Domain
	for _, d := range c.domains {
		if keysMatch(d.CacheKeys(), patterns) {
			out = append(out, d)
		}
	}
	return out
}

func (c *Coordinator) mutate(ctx context.Context, g cache.Group) {
	removed := c.cache.InvalidateGroup(ctx, g)
	n := c.reload(ctx, c.Affected(g))
	c.log.Debug().
		Str("group", string(g)).
		Int("invalidated", removed).
		Int("reloaded", n).
		Msg("mutation applied")
}

// reload force-refreshes domains in parallel and returns how many had been
// loaded before.
func (c *Coordinator) reload(ctx context.Context, domains []Domain) int {
	ran := make([]bool, len(domains))
	var g errgroup.Group
	for i, d := range domains {
		g.Go(func() error {
			ran[i] = d.Refresh(ctx)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, r := range ran {
		if r {
			n++
		}
	}
	return n
}

func keysMatch(keys, patterns []string) bool {
	for _, k := range keys {
		for _, p := range patterns {
			if strings.Contains(k, p) {
				return true
			}
		}
	}
	return false
}
