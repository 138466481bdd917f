package stock

import (
	"fmt"
	"strings"

	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
)

// Sellable is the on-hand stock that may be sold once the reserve is held back.
func Sellable(available, reserveMinimum int) int {
	if n := available - reserveMinimum; n > 0 {
		return n
	}
	return 0
}

// Fits reports whether a cart may hold requested units in total. A negative
// total never fits.
func Fits(requested, available, reserveMinimum int) bool {
	return requested >= 0 && requested <= Sellable(available, reserveMinimum)
}

// Check is Fits as an error: a StockConflict naming the product when the
// requested total does not fit.
func Check(name string, requested, available, reserveMinimum int) error {
	if requested < 0 {
		return apierr.Validation(apierr.CodeInvalidRequest, apierr.ErrInvalidQuantity)
	}
	if Fits(requested, available, reserveMinimum) {
		return nil
	}
	return conflict(name, Sellable(available, reserveMinimum), fmt.Sprintf("requested %d", requested))
}

// CheckAdd checks adding add units to a line already holding current. The
// total is never computed, so huge quantities cannot wrap around.
func CheckAdd(name string, current, add, available, reserveMinimum int) error {
	if current < 0 || add < 0 {
		return apierr.Validation(apierr.CodeInvalidRequest, apierr.ErrInvalidQuantity)
	}
	sellable := Sellable(available, reserveMinimum)
	if add <= sellable-current {
		return nil
	}
	return conflict(name, sellable, fmt.Sprintf("%d in cart, adding %d", current, add))
}

func conflict(name string, sellable int, requested string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "this product"
	}
	if sellable == 0 {
		return apierr.StockConflict(apierr.CodeInsufficientStock, fmt.Errorf("%s is out of stock", name))
	}
	return apierr.StockConflict(apierr.CodeInsufficientStock,
		fmt.Errorf("only %d units of %s are available (%s)", sellable, name, requested))
}
