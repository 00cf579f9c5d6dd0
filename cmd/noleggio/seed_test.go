package main

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/erazemk/noleggio/internal/model"
)

func TestParseSeed(t *testing.T) {
	c := qt.New(t)

	entries, err := parseSeed(strings.NewReader(`
inventario:
  - title: "  Radiomicrofono  "
    category: Microfoni & Wireless
    stock: 6
    location: Chiarano
    price: 25.50
  - title: Cavo XLR 10m
    category: Cavi & Cablaggi
portfolio:
  - title: Matrimonio in villa
    category: PROGETTI
    image: images/villa.jpg
`))
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 3)

	c.Check(entries[0].Kind, qt.Equals, model.KindInventory)
	c.Check(entries[0].Fields.Title, qt.Equals, "Radiomicrofono")
	c.Check(entries[0].Fields.Stock, qt.Equals, 6)
	c.Check(entries[0].Fields.Location, qt.Equals, model.LocationChiarano)
	c.Check(entries[0].Fields.Status, qt.Equals, model.StatusAvailable)
	c.Assert(entries[0].Price, qt.IsNotNil)
	c.Check(entries[0].Price.String(), qt.Equals, "25.5")

	// Unset fields take the new-item defaults.
	c.Check(entries[1].Fields.Stock, qt.Equals, 0)
	c.Check(entries[1].Fields.Location, qt.Equals, model.LocationRoma)
	c.Check(entries[1].Price, qt.IsNil)

	c.Check(entries[2].Kind, qt.Equals, model.KindPortfolio)
	c.Check(entries[2].Fields.Stock, qt.Equals, 1)
	c.Check(entries[2].Fields.Location, qt.Equals, "")
	c.Check(entries[2].Image, qt.Equals, "images/villa.jpg")
}

func TestParseSeedErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing title", "portfolio:\n  - category: AUDIO\n", `portfolio item 1: title: obbligatorio`},
		{"bad category", "inventario:\n  - title: Mixer\n    category: Cucina\n", `inventario item 1: category: categoria non valida`},
		{"negative stock", "inventario:\n  - title: Mixer\n    category: Mixer & Regia Audio\n    stock: -2\n", `inventario item 1: stock: .*`},
		{"portfolio price", "portfolio:\n  - title: Gala\n    category: PROGETTI\n    price: 10\n", `portfolio item 1: price: only inventory items have a price`},
		{"negative price", "inventario:\n  - title: Mixer\n    category: Mixer & Regia Audio\n    price: -1\n", `inventario item 1: price: must not be negative`},
		{"unknown field", "inventario:\n  - title: Mixer\n    colour: red\n", `(?s)decoding seed file: .*colour.*`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSeed(strings.NewReader(tt.doc))
			qt.Assert(t, err, qt.ErrorMatches, tt.want)
		})
	}
}

func TestParseSeedEmpty(t *testing.T) {
	entries, err := parseSeed(strings.NewReader(""))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, entries, qt.HasLen, 0)
}
