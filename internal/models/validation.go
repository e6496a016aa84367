package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by the store when no property has the given id.
var ErrNotFound = errors.New("property not found")

// ValidationError lists the offending fields of a create or update request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validate checks the creation input without touching it.
func (in PropertyInput) Validate() error {
	verr := &ValidationError{}

	if strings.TrimSpace(in.Location) == "" {
		verr.add("location", "location is required")
	}
	if in.Size == nil {
		verr.add("size", "size is required")
	} else if *in.Size <= 0 {
		verr.add("size", "size must be greater than 0")
	}
	if in.Price == nil {
		verr.add("price", "price is required")
	} else if *in.Price < 0 {
		verr.add("price", "price must not be negative")
	}
	if in.Bedrooms != nil && *in.Bedrooms < 0 {
		verr.add("bedrooms", "bedrooms must not be negative")
	}
	if in.Bathrooms != nil && *in.Bathrooms < 0 {
		verr.add("bathrooms", "bathrooms must not be negative")
	}

	return verr.orNil()
}

// NewProperty validates in and builds a property with defaults applied and
// both timestamps set to now.
func NewProperty(id string, in PropertyInput, now time.Time) (*Property, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p := &Property{
		ID:           id,
		Location:     strings.TrimSpace(in.Location),
		Size:         *in.Size,
		Price:        *in.Price,
		PropertyType: strings.TrimSpace(in.PropertyType),
		YearBuilt:    in.YearBuilt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.PropertyType == "" {
		p.PropertyType = DefaultPropertyType
	}
	if in.Bedrooms != nil {
		p.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = *in.Bathrooms
	}
	return p, nil
}

// Validate checks the stored invariants of a property.
func (p *Property) Validate() error {
	verr := &ValidationError{}

	if strings.TrimSpace(p.Location) == "" {
		verr.add("location", "location is required")
	}
	if p.Size <= 0 {
		verr.add("size", "size must be greater than 0")
	}
	if p.Price < 0 {
		verr.add("price", "price must not be negative")
	}
	if p.Bedrooms < 0 {
		verr.add("bedrooms", "bedrooms must not be negative")
	}
	if p.Bathrooms < 0 {
		verr.add("bathrooms", "bathrooms must not be negative")
	}

	return verr.orNil()
}

// Apply returns a copy of p with the patch applied and validated. UpdatedAt
// is moved to now unless that would make it go backwards.
func (p Property) Apply(patch PropertyPatch, now time.Time) (*Property, error) {
	if patch.Location != nil {
		p.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.Size != nil {
		p.Size = *patch.Size
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.PropertyType != nil {
		p.PropertyType = strings.TrimSpace(*patch.PropertyType)
		if p.PropertyType == "" {
			p.PropertyType = DefaultPropertyType
		}
	}
	if patch.Bedrooms != nil {
		p.Bedrooms = *patch.Bedrooms
	}
	if patch.Bathrooms != nil {
		p.Bathrooms = *patch.Bathrooms
	}
	if patch.YearBuilt != nil {
		year := *patch.YearBuilt
		p.YearBuilt = &year
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = Touch(p.UpdatedAt, now)
	return &p, nil
}

// Touch returns the next updatedAt value: now, or prev if the clock went back.
func Touch(prev, now time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
