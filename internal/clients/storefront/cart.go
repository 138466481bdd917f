package storefront

import (
	"context"
	"net/http"
	"net/url"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/gate"
)

// Caller is satisfied by *gate.Gate.
type Caller interface {
	Call(ctx context.Context, req gate.Request) (*gate.Response, error)
}

// CartAPI is the remote cart, reached only through the request gate.
type CartAPI struct {
	caller Caller
}

func NewCartAPI(caller Caller) *CartAPI {
	return &CartAPI{caller: caller}
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (a *CartAPI) Get(ctx context.Context) (types.Cart, error) {
	var out types.Cart
	if err := a.call(ctx, http.MethodGet, "/cart", nil, &out); err != nil {
		return types.Cart{}, err
	}
	return out, nil
}

func (a *CartAPI) Add(ctx context.Context, productID string, qty int) error {
	return a.call(ctx, http.MethodPost, "/cart/items", addItemRequest{ProductID: productID, Quantity: qty}, nil)
}

func (a *CartAPI) Update(ctx context.Context, productID string, qty int) error {
	return a.call(ctx, http.MethodPut, "/cart/items/"+url.PathEscape(productID), updateItemRequest{Quantity: qty}, nil)
}

func (a *CartAPI) Remove(ctx context.Context, productID string) error {
	return a.call(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(productID), nil, nil)
}

func (a *CartAPI) Clear(ctx context.Context) error {
	return a.call(ctx, http.MethodDelete, "/cart", nil, nil)
}

func (a *CartAPI) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := a.caller.Call(ctx, gate.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	return decode(resp, out)
}
