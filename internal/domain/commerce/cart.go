package commerce

// Product carries the stock figures the cart needs to gate quantities.
type Product struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	UnitPrice      float64 `json:"unit_price"`
	Stock          int     `json:"stock"`
	ReserveMinimum int     `json:"reserve_minimum"`
	Category       string  `json:"category,omitempty"`
	Image          string  `json:"image,omitempty"`
}

type CartLine struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	UnitPrice      float64 `json:"unit_price"`
	Quantity       int     `json:"quantity"`
	AvailableStock int     `json:"stock"`
	ReserveMinimum int     `json:"reserve_minimum"`
	Category       string  `json:"category,omitempty"`
	Image          string  `json:"image,omitempty"`
}

func (l CartLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// LineFromProduct starts a cart line for p with the given quantity.
func LineFromProduct(p Product, qty int) CartLine {
	return CartLine{
		ProductID:      p.ID,
		Name:           p.Name,
		UnitPrice:      p.UnitPrice,
		Quantity:       qty,
		AvailableStock: p.Stock,
		ReserveMinimum: p.ReserveMinimum,
		Category:       p.Category,
		Image:          p.Image,
	}
}

// Cart is ordered and keyed by product id.
type Cart struct {
	Lines []CartLine `json:"items"`
}

func (c Cart) Find(productID string) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) Subtotal() float64 {
	var total float64
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}
