package catalog

import "testing"

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	content := `
store:
  name: XIVI
  currency: INR
products:
  - id: ring-moonstone
    name: Moonstone Ring
    price: 1200
    stock_quantity: 10
    in_stock: true
  - id: anklet-silver
    name: Silver Anklet
    price: 900
    stock_quantity: 4
    in_stock: true
gift_options:
  - id: velvet-box
    name: Velvet Box
    price: 150
    active: true
`

	parser := NewParser()
	catalog, err := parser.Parse([]byte(content))
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}

	if catalog.Store.Name != "XIVI" {
		t.Errorf("store name = %q", catalog.Store.Name)
	}
	if len(catalog.Products) != 2 {
		t.Fatalf("products = %d, want 2", len(catalog.Products))
	}
	if catalog.Products[0].ID != "ring-moonstone" || catalog.Products[0].Price != 1200 {
		t.Errorf("first product = %+v", catalog.Products[0])
	}
	if len(catalog.GiftOptions) != 1 || catalog.GiftOptions[0].Price != 150 {
		t.Errorf("gift options = %+v", catalog.GiftOptions)
	}
}

func TestParser_ParseRejectsBadYAML(t *testing.T) {
	t.Parallel()

	parser := NewParser()
	if _, err := parser.Parse([]byte("products: [")); err == nil {
		t.Fatal("Parse() accepted malformed YAML")
	}
}
