/**
 * @description
 * This file defines the purchasable package catalog. Prices are the single
 * source of truth for the amount-tamper check in the registration flow:
 * whatever the client displayed, the captured amount must equal the catalog
 * (or session-metadata) price in cents.
 */
package domain

// PackageSpec describes one purchasable tier.
type PackageSpec struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	PriceCents        int64  `json:"price_cents"`
	RegularPriceCents int64  `json:"regular_price_cents"`
	PromoActive       bool   `json:"promo_active"`
}

// DomainRentalPriceCents is the fixed initial charge and daily rental rate
// for the domain flow.
const DomainRentalPriceCents int64 = 2000

// PackageCatalog returns the tier catalog in display order. When the promo
// is active every tier sells at promoPriceCents while keeping its regular
// price for display.
func PackageCatalog(promoActive bool, promoPriceCents int64) []PackageSpec {
	specs := []PackageSpec{
		{ID: TierBasic, Name: "Starter", RegularPriceCents: 2900},
		{ID: TierStarter, Name: "Pro", RegularPriceCents: 9900},
		{ID: TierProfessional, Name: "Elite", RegularPriceCents: 24900},
		{ID: TierEmpire, Name: "Empire", RegularPriceCents: 49900},
	}
	for i := range specs {
		specs[i].PromoActive = promoActive
		if promoActive {
			specs[i].PriceCents = promoPriceCents
		} else {
			specs[i].PriceCents = specs[i].RegularPriceCents
		}
	}
	return specs
}

// FindPackage looks up a tier by id in the given catalog.
func FindPackage(catalog []PackageSpec, id string) (PackageSpec, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return PackageSpec{}, false
}
