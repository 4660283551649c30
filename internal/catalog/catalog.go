// Package catalog loads the menu for the dashboard and food pages and
// groups it by category.
package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type TokenSource interface {
	Token() string
}

// Index is an optional search backend kept in sync with every load.
type Index interface {
	Sync(ctx context.Context, foods []models.FoodItem) error
	Search(ctx context.Context, query string, size int) ([]models.FoodItem, error)
}

type Group struct {
	Category string            `json:"category"`
	Items    []models.FoodItem `json:"items"`
}

// GroupByCategory partitions items by category in order of first
// appearance. Items without a category land in "Uncategorized".
func GroupByCategory(items []models.FoodItem) []Group {
	var groups []Group
	pos := map[string]int{}
	for _, it := range items {
		cat := it.CategoryOrDefault()
		i, ok := pos[cat]
		if !ok {
			i = len(groups)
			pos[cat] = i
			groups = append(groups, Group{Category: cat})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

type Catalog struct {
	client   *apiclient.Client
	tokens   TokenSource
	audience apiclient.Audience
	index    Index

	mu     sync.RWMutex
	items  []models.FoodItem
	groups []Group
	byID   map[int]models.FoodItem
}

type Option func(*Catalog)

func WithIndex(ix Index) Option {
	return func(c *Catalog) { c.index = ix }
}

func New(client *apiclient.Client, tokens TokenSource, aud apiclient.Audience, opts ...Option) *Catalog {
	c := &Catalog{client: client, tokens: tokens, audience: aud, byID: map[int]models.FoodItem{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List loads the whole menu. The index, when configured, is refreshed in
// the same call; its failures are logged only.
func (c *Catalog) List(ctx context.Context) ([]models.FoodItem, error) {
	l := logging.FromContext(ctx).With("component", "catalog")

	items, err := c.client.ListFoods(ctx, c.tokens.Token(), c.audience)
	if err != nil {
		l.Error("catalog_list_error", "status", apiclient.StatusCode(err), "error", err)
		return nil, err
	}
	c.set(items, true)

	if c.index != nil {
		if err := c.index.Sync(ctx, items); err != nil {
			l.Warn("catalog_index_sync_error", "error", err)
		}
	}
	return items, nil
}

// Search filters the menu by keyword. An empty keyword is the same as List.
func (c *Catalog) Search(ctx context.Context, keyword string) ([]models.FoodItem, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return c.List(ctx)
	}
	l := logging.FromContext(ctx).With("component", "catalog")

	if c.index != nil {
		hits, err := c.index.Search(ctx, keyword, 0)
		if err == nil {
			items := c.resolve(hits)
			c.set(items, false)
			return items, nil
		}
		l.Warn("catalog_index_search_error", "error", err)
	}

	items, err := c.client.SearchFoods(ctx, c.tokens.Token(), c.audience, keyword)
	if err != nil {
		l.Error("catalog_search_error", "status", apiclient.StatusCode(err), "error", err)
		return nil, err
	}
	c.set(items, false)
	return items, nil
}

func (c *Catalog) Food(ctx context.Context, id int) (*models.FoodItem, error) {
	f, err := c.client.GetFood(ctx, c.tokens.Token(), c.audience, id)
	if err != nil {
		logging.FromContext(ctx).Warn("catalog_food_error", "id", id, "status", apiclient.StatusCode(err), "error", err)
		return nil, err
	}
	return f, nil
}

// resolve swaps index hits for the full items of the last List, which
// carry image data.
func (c *Catalog) resolve(hits []models.FoodItem) []models.FoodItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.FoodItem, len(hits))
	for i, h := range hits {
		if full, ok := c.byID[h.ID]; ok {
			out[i] = full
		} else {
			out[i] = h
		}
	}
	return out
}

func (c *Catalog) set(items []models.FoodItem, full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.groups = GroupByCategory(items)
	if full {
		c.byID = make(map[int]models.FoodItem, len(items))
		for _, it := range items {
			c.byID[it.ID] = it
		}
	}
}

func (c *Catalog) Items() []models.FoodItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.FoodItem(nil), c.items...)
}

func (c *Catalog) Groups() []Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Group(nil), c.groups...)
}

// Cached returns an item from the last full List.
func (c *Catalog) Cached(id int) (models.FoodItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.byID[id]
	return f, ok
}
