package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ResolvePricing derives the storefront price and stock view for a product.
//
// Simple products (or products without active variants) expose their own
// fields. Variant products are represented by the active variant with the
// lowest final price, first in input order on ties, while stock is summed over
// every active variant. Inactive variants are ignored.
func ResolvePricing(product Product, variants []ProductVariant) PricingView {
	active := make([]ProductVariant, 0, len(variants))
	if product.HasVariants {
		for _, variant := range variants {
			if variant.Status == VariantStatusActive || variant.Status == "" {
				active = append(active, variant)
			}
		}
	}
	if len(active) == 0 {
		return PricingView{
			RetailPrice:    product.RetailPrice,
			WholesalePrice: product.WholesalePrice,
			OnSale:         product.OnSale,
			SalePrice:      copyDecimal(product.SalePrice),
			SalePercentage: copyInt(product.SalePercentage),
			Stock:          product.Stock,
		}
	}

	rep := active[0]
	repFinal := rep.FinalPrice()
	stock := 0
	for i, variant := range active {
		stock += variant.Stock
		if i == 0 {
			continue
		}
		if final := variant.FinalPrice(); final.LessThan(repFinal) {
			rep, repFinal = variant, final
		}
	}

	view := PricingView{
		RetailPrice:    rep.RetailPrice,
		WholesalePrice: rep.WholesalePrice,
		OnSale:         rep.OnSale,
		Stock:          stock,
		VariantID:      rep.ID,
	}
	if rep.OnSale && repFinal.LessThan(rep.RetailPrice) {
		sale := repFinal
		view.SalePrice = &sale
		if pct, ok := SalePercentage(rep.RetailPrice, sale); ok {
			view.SalePercentage = &pct
		}
	}
	return view
}

// SalePercentage returns floor((retail - sale) / retail * 100). It reports false
// when retail is not positive.
func SalePercentage(retail, sale decimal.Decimal) (int, bool) {
	if !retail.IsPositive() {
		return 0, false
	}
	pct := retail.Sub(sale).Mul(hundred).Div(retail).Floor()
	return int(pct.IntPart()), true
}

func copyDecimal(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}

func copyInt(value *int) *int {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}
