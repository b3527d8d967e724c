package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/erazemk/resale/internal/imaging"
	"github.com/erazemk/resale/internal/model"
)

// ListItems returns listings matching the query parameters (see catalog.Query).
func (c *Client) ListItems(ctx context.Context, query url.Values) ([]model.Item, error) {
	path := "/api/items"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem returns one listing.
func (c *Client) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/items/%d", id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem lists a new item after validating it locally.
func (c *Client) CreateItem(ctx context.Context, it *model.Item) (*model.Item, error) {
	if err := model.ValidateItem(it); err != nil {
		return nil, err
	}
	var item model.Item
	if err := c.do(ctx, http.MethodPost, "/api/items", it, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem replaces a listing's editable fields.
func (c *Client) UpdateItem(ctx context.Context, it *model.Item) (*model.Item, error) {
	if err := model.ValidateItem(it); err != nil {
		return nil, err
	}
	var item model.Item
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/items/%d", it.ID), it, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes a listing.
func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/items/%d", id), nil, nil)
}

// UploadItemImage downsizes a photo and attaches it to a listing.
func (c *Client) UploadItemImage(ctx context.Context, id int64, photo io.Reader) (*model.Item, error) {
	p, err := imaging.PrepareListingPhoto(photo)
	if err != nil {
		return nil, fmt.Errorf("preparing photo: %w", err)
	}
	var item model.Item
	if err := c.send(ctx, http.MethodPut, fmt.Sprintf("/api/items/%d/image", id), bytes.NewReader(p.Data), p.MIME, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ImageURL resolves an item's image reference against the backend origin.
func (c *Client) ImageURL(it model.Item) string {
	if it.Image == "" {
		return ""
	}
	if u, err := url.Parse(it.Image); err == nil && u.IsAbs() {
		return it.Image
	}
	return c.baseURL + it.Image
}

// ListPartners returns partner businesses, optionally in one location.
func (c *Client) ListPartners(ctx context.Context, location string) ([]model.Partner, error) {
	path := "/api/partners"
	if location != "" {
		path += "?" + url.Values{"location": {location}}.Encode()
	}
	var partners []model.Partner
	if err := c.do(ctx, http.MethodGet, path, nil, &partners); err != nil {
		return nil, err
	}
	return partners, nil
}
