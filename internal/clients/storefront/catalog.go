package storefront

import (
	"context"
	"net/http"
	"net/url"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
)

type productsResponse struct {
	Products []types.Product `json:"products"`
}

func (c *Client) Products(ctx context.Context) ([]types.Product, error) {
	var out productsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/products", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) Product(ctx context.Context, id string) (types.Product, error) {
	var out types.Product
	if err := c.doJSON(ctx, http.MethodGet, "/products/"+url.PathEscape(id), "", nil, &out); err != nil {
		return types.Product{}, err
	}
	return out, nil
}
