package devserver

import (
	"errors"
	"sync"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
	"github.com/Jenaru0/dela-storefront/internal/stock"
)

var (
	errProductNotFound = errors.New("product not found")
	errItemNotFound    = errors.New("item is not in the cart")
)

// DefaultProducts seeds the catalog when no products are configured.
func DefaultProducts() []types.Product {
	return []types.Product{
		{ID: "pisco-quebranta", Name: "Pisco Quebranta 750ml", UnitPrice: 45.9, Stock: 24, ReserveMinimum: 4, Category: "licores"},
		{ID: "cafe-chanchamayo", Name: "Café Chanchamayo 500g", UnitPrice: 28.5, Stock: 40, ReserveMinimum: 5, Category: "abarrotes"},
		{ID: "quinua-blanca", Name: "Quinua Blanca 1kg", UnitPrice: 14.9, Stock: 60, ReserveMinimum: 10, Category: "abarrotes"},
		{ID: "chocolate-cusco", Name: "Chocolate Cusco 70%", UnitPrice: 12, Stock: 6, ReserveMinimum: 2, Category: "dulces"},
		{ID: "aji-amarillo", Name: "Ají Amarillo en Pasta", UnitPrice: 9.5, Stock: 3, ReserveMinimum: 3, Category: "abarrotes"},
	}
}

type cartItem struct {
	productID string
	quantity  int
}

// shop holds the catalog and every user's cart. Stock is checked against
// the live catalog on each write; adding to a cart does not reserve units.
type shop struct {
	mu       sync.RWMutex
	order    []string
	products map[string]types.Product
	carts    map[string][]cartItem
}

func newShop(products []types.Product) *shop {
	s := &shop{products: map[string]types.Product{}, carts: map[string][]cartItem{}}
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if _, dup := s.products[p.ID]; !dup {
			s.order = append(s.order, p.ID)
		}
		s.products[p.ID] = p
	}
	return s
}

func (s *shop) list() []types.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out
}

func (s *shop) product(id string) (types.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *shop) setStock(id string, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return false
	}
	p.Stock = n
	s.products[id] = p
	return true
}

// cart renders the user's items with current product figures.
func (s *shop) cart(userID string) types.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := types.Cart{Lines: []types.CartLine{}}
	for _, it := range s.carts[userID] {
		p, ok := s.products[it.productID]
		if !ok {
			continue
		}
		out.Lines = append(out.Lines, types.LineFromProduct(p, it.quantity))
	}
	return out
}

func (s *shop) add(userID, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return apierr.New(404, apierr.CodeProductNotFound, errProductNotFound)
	}
	items := s.carts[userID]
	for i := range items {
		if items[i].productID == productID {
			if err := stock.CheckAdd(p.Name, items[i].quantity, qty, p.Stock, p.ReserveMinimum); err != nil {
				return err
			}
			items[i].quantity += qty
			return nil
		}
	}
	if err := stock.Check(p.Name, qty, p.Stock, p.ReserveMinimum); err != nil {
		return err
	}
	s.carts[userID] = append(items, cartItem{productID: productID, quantity: qty})
	return nil
}

func (s *shop) update(userID, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	for i := range items {
		if items[i].productID != productID {
			continue
		}
		p := s.products[productID]
		if err := stock.Check(p.Name, qty, p.Stock, p.ReserveMinimum); err != nil {
			return err
		}
		items[i].quantity = qty
		return nil
	}
	return apierr.New(404, apierr.CodeItemNotFound, errItemNotFound)
}

func (s *shop) remove(userID, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	for i := range items {
		if items[i].productID == productID {
			s.carts[userID] = append(items[:i], items[i+1:]...)
			return
		}
	}
}

func (s *shop) clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}
