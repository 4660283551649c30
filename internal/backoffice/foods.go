// Package backoffice implements the admin screens for the menu and the
// customer list.
package backoffice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrValidation    = errors.New("backoffice: invalid input")
	ErrImageRequired = fmt.Errorf("%w: an image is required", ErrValidation)
	ErrNoSession     = errors.New("backoffice: admin not signed in")
	ErrDeclined      = errors.New("backoffice: action declined")
)

const DeleteFoodPrompt = "Delete this food item?"

type Session interface {
	Token() string
	CheckUnauthorized(ctx context.Context, err error) bool
}

// IndexWriter mirrors menu writes into the search index.
type IndexWriter interface {
	Put(ctx context.Context, f models.FoodItem) error
	Remove(ctx context.Context, id int) error
}

type Foods struct {
	client  *apiclient.Client
	sess    Session
	catalog *catalog.Catalog
	index   IndexWriter
}

// NewFoods reads the menu through cat, which should use the admin audience.
// index may be nil.
func NewFoods(client *apiclient.Client, sess Session, cat *catalog.Catalog, index IndexWriter) *Foods {
	return &Foods{client: client, sess: sess, catalog: cat, index: index}
}

func ValidateFood(f models.FoodItem) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if f.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}

func (fs *Foods) token() (string, error) {
	tok := fs.sess.Token()
	if tok == "" {
		return "", ErrNoSession
	}
	return tok, nil
}

func (fs *Foods) List(ctx context.Context) ([]models.FoodItem, error) {
	return fs.catalog.List(ctx)
}

func (fs *Foods) Search(ctx context.Context, keyword string) ([]models.FoodItem, error) {
	return fs.catalog.Search(ctx, keyword)
}

func (fs *Foods) Groups() []catalog.Group {
	return fs.catalog.Groups()
}

func (fs *Foods) Create(ctx context.Context, f models.FoodItem, image *apiclient.Image) (*models.FoodItem, error) {
	l := logging.FromContext(ctx).With("component", "backoffice_foods")
	if err := ValidateFood(f); err != nil {
		return nil, err
	}
	if image == nil || len(image.Data) == 0 {
		return nil, ErrImageRequired
	}
	tok, err := fs.token()
	if err != nil {
		return nil, err
	}

	created, err := fs.client.CreateFood(ctx, tok, f, image)
	if err != nil {
		fs.sess.CheckUnauthorized(ctx, err)
		l.Error("food_create_error", "status", apiclient.StatusCode(err), "error", err)
		return nil, err
	}
	l.Info("food_created", "food_id", created.ID)
	fs.indexPut(ctx, *created)
	fs.refresh(ctx)
	return created, nil
}

// Update replaces food id. Without a new image the item's current picture
// is uploaded again, since the backend always expects one.
func (fs *Foods) Update(ctx context.Context, id int, f models.FoodItem, image *apiclient.Image) (*models.FoodItem, error) {
	l := logging.FromContext(ctx).With("component", "backoffice_foods", "food_id", id)
	if err := ValidateFood(f); err != nil {
		return nil, err
	}
	tok, err := fs.token()
	if err != nil {
		return nil, err
	}
	if image == nil || len(image.Data) == 0 {
		image = fs.currentImage(ctx, id)
	}
	if image == nil {
		return nil, ErrImageRequired
	}

	updated, err := fs.client.UpdateFood(ctx, tok, id, f, image)
	if err != nil {
		fs.sess.CheckUnauthorized(ctx, err)
		l.Error("food_update_error", "status", apiclient.StatusCode(err), "error", err)
		return nil, err
	}
	l.Info("food_updated")
	fs.indexPut(ctx, *updated)
	fs.refresh(ctx)
	return updated, nil
}

// Delete asks confirm first; a nil confirm declines.
func (fs *Foods) Delete(ctx context.Context, id int, confirm cart.Confirmer) error {
	l := logging.FromContext(ctx).With("component", "backoffice_foods", "food_id", id)
	tok, err := fs.token()
	if err != nil {
		return err
	}
	if confirm == nil || !confirm.Confirm(ctx, DeleteFoodPrompt) {
		return ErrDeclined
	}
	if err := fs.client.DeleteFood(ctx, tok, id); err != nil {
		fs.sess.CheckUnauthorized(ctx, err)
		l.Error("food_delete_error", "status", apiclient.StatusCode(err), "error", err)
		return err
	}
	l.Info("food_deleted")
	if fs.index != nil {
		if err := fs.index.Remove(ctx, id); err != nil {
			l.Warn("search_index_error", "error", err)
		}
	}
	fs.refresh(ctx)
	return nil
}

func (fs *Foods) currentImage(ctx context.Context, id int) *apiclient.Image {
	it, ok := fs.catalog.Cached(id)
	if !ok {
		f, err := fs.catalog.Food(ctx, id)
		if err != nil {
			return nil
		}
		it = *f
	}
	if len(it.ImageData) == 0 {
		return nil
	}
	return &apiclient.Image{Name: it.ImageName, ContentType: it.ImageType, Data: it.ImageData}
}

func (fs *Foods) indexPut(ctx context.Context, f models.FoodItem) {
	if fs.index == nil {
		return
	}
	if err := fs.index.Put(ctx, f); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "food_id", f.ID, "error", err)
	}
}

func (fs *Foods) refresh(ctx context.Context) {
	if _, err := fs.catalog.List(ctx); err != nil {
		logging.FromContext(ctx).Warn("food_refresh_error", "error", err)
	}
}
