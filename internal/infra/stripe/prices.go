package stripe

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PriceEntry maps one provider price to one course.
type PriceEntry struct {
	PriceID string `yaml:"price_id" json:"price_id"`
	Course  string `yaml:"course" json:"course"`
	Title   string `yaml:"title" json:"title,omitempty"`
}

// PriceCatalog is the only place price ids and course slugs are translated.
// Courses without an entry cannot be bought through checkout.
type PriceCatalog struct {
	entries  []PriceEntry
	byPrice  map[string]PriceEntry
	byCourse map[string]PriceEntry
}

var defaultPrices = []PriceEntry{
	{PriceID: "price_dot_hazmat", Course: "dot-hazmat", Title: "DOT Hazardous Materials Transportation"},
	{PriceID: "price_epa_rcra", Course: "epa-rcra", Title: "EPA RCRA Hazardous Waste Management"},
	{PriceID: "price_advanced_hazmat", Course: "advanced-hazmat", Title: "Advanced Hazmat Shipping"},
}

func NewPriceCatalog(entries []PriceEntry) (*PriceCatalog, error) {
	c := &PriceCatalog{
		byPrice:  make(map[string]PriceEntry, len(entries)),
		byCourse: make(map[string]PriceEntry, len(entries)),
	}
	for _, e := range entries {
		e.PriceID = strings.TrimSpace(e.PriceID)
		e.Course = strings.TrimSpace(e.Course)
		if e.PriceID == "" || e.Course == "" {
			return nil, fmt.Errorf("price entry needs both price_id and course: %+v", e)
		}
		if _, dup := c.byPrice[e.PriceID]; dup {
			return nil, fmt.Errorf("price %q mapped twice", e.PriceID)
		}
		if _, dup := c.byCourse[e.Course]; dup {
			return nil, fmt.Errorf("course %q mapped twice", e.Course)
		}
		c.byPrice[e.PriceID] = e
		c.byCourse[e.Course] = e
		c.entries = append(c.entries, e)
	}
	return c, nil
}

func DefaultPriceCatalog() *PriceCatalog {
	c, err := NewPriceCatalog(defaultPrices)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadPriceCatalog reads a YAML file of the form
//
//	prices:
//	  - price_id: price_123
//	    course: dot-hazmat
//
// An empty path returns the built-in table.
func LoadPriceCatalog(path string) (*PriceCatalog, error) {
	if path == "" {
		return DefaultPriceCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price map: %w", err)
	}
	var doc struct {
		Prices []PriceEntry `yaml:"prices"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse price map %s: %w", path, err)
	}
	if len(doc.Prices) == 0 {
		return nil, fmt.Errorf("price map %s has no prices", path)
	}
	return NewPriceCatalog(doc.Prices)
}

func (c *PriceCatalog) PriceForCourse(course string) (string, bool) {
	e, ok := c.byCourse[course]
	return e.PriceID, ok
}

func (c *PriceCatalog) CourseForPrice(priceID string) (string, bool) {
	e, ok := c.byPrice[priceID]
	return e.Course, ok
}

func (c *PriceCatalog) Entries() []PriceEntry {
	out := make([]PriceEntry, len(c.entries))
	copy(out, c.entries)
	return out
}
