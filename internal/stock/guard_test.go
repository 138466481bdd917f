package stock

import (
	"math"
	"testing"

	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
)

func TestSellable(t *testing.T) {
	cases := []struct {
		available, reserve, want int
	}{
		{5, 0, 5},
		{5, 2, 3},
		{2, 2, 0},
		{1, 4, 0},
		{0, 0, 0},
	}
	for _, tc := range cases {
		if got := Sellable(tc.available, tc.reserve); got != tc.want {
			t.Fatalf("Sellable(%d,%d): want=%d got=%d", tc.available, tc.reserve, tc.want, got)
		}
	}
}

func TestFits(t *testing.T) {
	if !Fits(3, 5, 0) {
		t.Fatalf("3 of 5 should fit")
	}
	if Fits(6, 5, 0) {
		t.Fatalf("3+3 of 5 should not fit")
	}
	if !Fits(3, 5, 2) || Fits(4, 5, 2) {
		t.Fatalf("reserve not honoured")
	}
	if !Fits(0, 0, 3) {
		t.Fatalf("zero always fits")
	}
}

func TestCheckReturnsStockConflict(t *testing.T) {
	if err := Check("Chicha", 5, 5, 0); err != nil {
		t.Fatalf("Check within stock: %v", err)
	}
	err := Check("Chicha", 6, 5, 0)
	if !apierr.IsStockConflict(err) {
		t.Fatalf("want stock conflict, got %v", err)
	}
	if err.Error() != "only 5 units of Chicha are available (requested 6)" {
		t.Fatalf("message: %q", err.Error())
	}
	if err := Check("", 1, 1, 1); err == nil || err.Error() != "this product is out of stock" {
		t.Fatalf("out of stock message: %v", err)
	}
}

func TestCheckAddDoesNotWrapAround(t *testing.T) {
	if err := CheckAdd("Pisco", 3, 2, 5, 0); err != nil {
		t.Fatalf("CheckAdd within stock: %v", err)
	}
	cases := []struct {
		name               string
		current, add       int
		available, reserve int
	}{
		{"one too many", 3, 3, 5, 0},
		{"max int on a held line", 3, math.MaxInt, 5, 0},
		{"max int on an empty line", 0, math.MaxInt, 5, 0},
		{"line already above sellable", 4, 0, 5, 2},
	}
	for _, tc := range cases {
		if err := CheckAdd("Pisco", tc.current, tc.add, tc.available, tc.reserve); !apierr.IsStockConflict(err) {
			t.Fatalf("%s: want stock conflict, got %v", tc.name, err)
		}
	}
	if err := CheckAdd("Pisco", 1, -1, 5, 0); !apierr.IsValidation(err) {
		t.Fatalf("negative add: want validation error, got %v", err)
	}
}

func TestNegativeTotalsNeverFit(t *testing.T) {
	if Fits(-1, 5, 0) {
		t.Fatalf("negative total should not fit")
	}
	if err := Check("Pisco", math.MinInt, 5, 0); !apierr.IsValidation(err) {
		t.Fatalf("negative total: want validation error, got %v", err)
	}
}
