package models

import "time"

const DefaultPropertyType = "Residential"

type Property struct {
	ID           string    `json:"id"`
	Location     string    `json:"location"`
	Size         float64   `json:"size"`
	Price        float64   `json:"price"`
	PropertyType string    `json:"propertyType"`
	Bedrooms     float64   `json:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms"`
	YearBuilt    *int      `json:"yearBuilt,omitempty"`
	Analysis     *Analysis `json:"analysis,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Analysis is the price commentary returned by the analysis provider. It is
// embedded in a Property and replaced wholesale on every re-analysis.
type Analysis struct {
	MarketValue      float64   `json:"marketValue" bson:"marketValue"`
	RecommendedPrice float64   `json:"recommendedPrice" bson:"recommendedPrice"`
	PriceAdjustment  float64   `json:"priceAdjustment" bson:"priceAdjustment"`
	Insights         string    `json:"insights" bson:"insights"`
	Confidence       string    `json:"confidence" bson:"confidence"`
	ComparativeNotes string    `json:"comparativeNotes" bson:"comparativeNotes"`
	AnalyzedAt       time.Time `json:"analyzedAt" bson:"analyzedAt"`
}

// PropertyInput is the body accepted when creating a property. Pointer
// fields distinguish "not sent" from zero.
type PropertyInput struct {
	Location     string   `json:"location"`
	Size         *float64 `json:"size"`
	Price        *float64 `json:"price"`
	PropertyType string   `json:"propertyType"`
	Bedrooms     *float64 `json:"bedrooms"`
	Bathrooms    *float64 `json:"bathrooms"`
	YearBuilt    *int     `json:"yearBuilt"`
}

// PropertyPatch carries the fields of a partial update. Nil means unchanged.
type PropertyPatch struct {
	Location     *string  `json:"location"`
	Size         *float64 `json:"size"`
	Price        *float64 `json:"price"`
	PropertyType *string  `json:"propertyType"`
	Bedrooms     *float64 `json:"bedrooms"`
	Bathrooms    *float64 `json:"bathrooms"`
	YearBuilt    *int     `json:"yearBuilt"`
}

// ComparativeEntry is one row of the comparative view over analyzed properties.
type ComparativeEntry struct {
	ID                     string  `json:"id"`
	Location               string  `json:"location"`
	ListedPrice            float64 `json:"listedPrice"`
	MarketValue            float64 `json:"marketValue"`
	RecommendedPrice       float64 `json:"recommendedPrice"`
	PriceAdjustment        float64 `json:"priceAdjustment"`
	Size                   float64 `json:"size"`
	PricePerUnitArea       float64 `json:"pricePerUnitArea"`
	MarketPricePerUnitArea float64 `json:"marketPricePerUnitArea"`
}

// Comparative builds the comparative rows for the analyzed properties in
// props, preserving order. Properties without an analysis are skipped.
func Comparative(props []Property) []ComparativeEntry {
	entries := make([]ComparativeEntry, 0, len(props))
	for _, p := range props {
		if p.Analysis == nil {
			continue
		}
		entry := ComparativeEntry{
			ID:               p.ID,
			Location:         p.Location,
			ListedPrice:      p.Price,
			MarketValue:      p.Analysis.MarketValue,
			RecommendedPrice: p.Analysis.RecommendedPrice,
			PriceAdjustment:  p.Analysis.PriceAdjustment,
			Size:             p.Size,
		}
		// Validation rejects size 0, but rows written before that rule may exist.
		if p.Size > 0 {
			entry.PricePerUnitArea = p.Price / p.Size
			entry.MarketPricePerUnitArea = p.Analysis.MarketValue / p.Size
		}
		entries = append(entries, entry)
	}
	return entries
}
