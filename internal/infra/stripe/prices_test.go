package stripe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPriceCatalog(t *testing.T) {
	c := DefaultPriceCatalog()
	if len(c.Entries()) != 3 {
		t.Fatalf("entries = %d, want 3", len(c.Entries()))
	}
	price, ok := c.PriceForCourse("dot-hazmat")
	if !ok {
		t.Fatal("dot-hazmat should be purchasable")
	}
	course, ok := c.CourseForPrice(price)
	if !ok || course != "dot-hazmat" {
		t.Fatalf("CourseForPrice(%q) = %q, %v", price, course, ok)
	}
	if _, ok := c.CourseForPrice("price_unknown"); ok {
		t.Fatal("unknown price must not resolve")
	}
}

func TestNewPriceCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewPriceCatalog([]PriceEntry{
		{PriceID: "price_a", Course: "dot-hazmat"},
		{PriceID: "price_b", Course: "dot-hazmat"},
	})
	if err == nil {
		t.Fatal("expected duplicate course error")
	}
	_, err = NewPriceCatalog([]PriceEntry{{PriceID: "price_a"}})
	if err == nil {
		t.Fatal("expected error for entry without course")
	}
}

func TestLoadPriceCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.yaml")
	doc := "prices:\n  - price_id: price_live_1\n    course: epa-rcra\n    title: RCRA\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadPriceCatalog(path)
	if err != nil {
		t.Fatalf("LoadPriceCatalog: %v", err)
	}
	if course, ok := c.CourseForPrice("price_live_1"); !ok || course != "epa-rcra" {
		t.Fatalf("CourseForPrice = %q, %v", course, ok)
	}
	if _, ok := c.PriceForCourse("dot-hazmat"); ok {
		t.Fatal("file should replace the built-in table")
	}
}

func TestLoadPriceCatalogEmptyPathUsesDefaults(t *testing.T) {
	c, err := LoadPriceCatalog("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.PriceForCourse("epa-rcra"); !ok {
		t.Fatal("expected built-in entries")
	}
}

func TestNormalizePaymentStatus(t *testing.T) {
	cases := map[string]string{
		"paid":                PaymentPaid,
		"no_payment_required": PaymentPaid,
		"unpaid":              PaymentUnpaid,
		"":                    PaymentNone,
	}
	for in, want := range cases {
		if got := NormalizePaymentStatus(in); got != want {
			t.Errorf("NormalizePaymentStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
