package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/models"
)

const defaultSearchSize = 50

func NewESClient(url, user, password string) (*elasticsearch.Client, error) {
	slog.Info("es_connect", "url", url)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es info: %s: %s", res.Status(), body)
	}
	return client, nil
}

// ESIndex mirrors the menu into Elasticsearch for fuzzy search.
type ESIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewESIndex(es *elasticsearch.Client, index string) *ESIndex {
	return &ESIndex{ES: es, Index: index}
}

// doc is what gets indexed; image bytes stay out of the index.
func doc(f models.FoodItem) models.FoodItem {
	f.ImageData = nil
	return f
}

func (ix *ESIndex) Sync(ctx context.Context, foods []models.FoodItem) error {
	if len(foods) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, f := range foods {
		meta := map[string]any{"index": map[string]any{"_index": ix.Index, "_id": strconv.Itoa(f.ID)}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("es bulk: %w", err)
		}
		if err := enc.Encode(doc(f)); err != nil {
			return fmt.Errorf("es bulk: %w", err)
		}
	}

	res, err := ix.ES.Bulk(&buf, ix.ES.Bulk.WithContext(ctx), ix.ES.Bulk.WithIndex(ix.Index))
	if err != nil {
		return fmt.Errorf("es bulk: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("es bulk: %s", res.Status())
	}

	var r struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return fmt.Errorf("es bulk: decode: %w", err)
	}
	if r.Errors {
		return fmt.Errorf("es bulk: some documents were rejected")
	}
	return nil
}

func (ix *ESIndex) Put(ctx context.Context, f models.FoodItem) error {
	body, err := json.Marshal(doc(f))
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	res, err := ix.ES.Index(ix.Index, bytes.NewReader(body),
		ix.ES.Index.WithContext(ctx),
		ix.ES.Index.WithDocumentID(strconv.Itoa(f.ID)),
	)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

func (ix *ESIndex) Remove(ctx context.Context, id int) error {
	res, err := ix.ES.Delete(ix.Index, strconv.Itoa(id), ix.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

func (ix *ESIndex) Search(ctx context.Context, query string, size int) ([]models.FoodItem, error) {
	if size <= 0 || size > 100 {
		size = defaultSearchSize
	}
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description", "ingredients", "category"},
				"fuzziness": "AUTO",
			},
		},
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("es search: %w", err)
	}

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(ctx),
		ix.ES.Search.WithIndex(ix.Index),
		ix.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("es search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.FoodItem `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("es search: decode: %w", err)
	}

	out := make([]models.FoodItem, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		out[i] = hit.Source
	}
	return out, nil
}
