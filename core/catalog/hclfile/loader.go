// Package hclfile loads adjustment catalog definitions from HCL files.
//
// A catalog file declares products with variant baseline prices, and
// questions, defects, and accessories with their price deltas:
//
//	product "iphone-12" {
//	  variant "128gb" { base_price = "32000" }
//	}
//
//	defect "cracked-back" {
//	  label = "Cracked back glass"
//	  delta { kind = "percent" sign = "-" value = "10" }
//	}
package hclfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"

	"tradein-engine/core/catalog"
	"tradein-engine/core/types"
	apperrors "tradein-engine/internal/errors"
)

type deltaBlock struct {
	Kind  string `hcl:"kind"`
	Sign  string `hcl:"sign"`
	Value string `hcl:"value"`
}

type variantBlock struct {
	ID        string `hcl:"id,label"`
	BasePrice string `hcl:"base_price"`
}

type productBlock struct {
	ID       string         `hcl:"id,label"`
	Variants []variantBlock `hcl:"variant,block"`
}

type optionBlock struct {
	ID     string     `hcl:"id,label"`
	Label  string     `hcl:"label"`
	Active *bool      `hcl:"active"`
	Delta  deltaBlock `hcl:"delta,block"`
}

type questionBlock struct {
	ID      string        `hcl:"id,label"`
	Label   *string       `hcl:"label"`
	Active  *bool         `hcl:"active"`
	Options []optionBlock `hcl:"option,block"`
}

type adjustmentBlock struct {
	ID     string     `hcl:"id,label"`
	Label  string     `hcl:"label"`
	Active *bool      `hcl:"active"`
	Delta  deltaBlock `hcl:"delta,block"`
}

type catalogFile struct {
	Currency    *string           `hcl:"currency"`
	Products    []productBlock    `hcl:"product,block"`
	Questions   []questionBlock   `hcl:"question,block"`
	Defects     []adjustmentBlock `hcl:"defect,block"`
	Accessories []adjustmentBlock `hcl:"accessory,block"`
}

// Load parses a catalog file into an in-memory catalog
func Load(path string) (*catalog.Memory, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, apperrors.Wrap(apperrors.TypeConfig, "failed to parse catalog file", diags)
	}
	return build(file.Body)
}

// LoadBytes parses catalog source from memory, used by tests and the
// CLI validator
func LoadBytes(src []byte, filename string) (*catalog.Memory, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, apperrors.Wrap(apperrors.TypeConfig, "failed to parse catalog source", diags)
	}
	return build(file.Body)
}

func build(body hcl.Body) (*catalog.Memory, error) {
	var cf catalogFile
	if diags := gohcl.DecodeBody(body, nil, &cf); diags.HasErrors() {
		return nil, apperrors.Wrap(apperrors.TypeConfig, "failed to decode catalog file", diags)
	}

	mem := catalog.NewMemory()

	for _, p := range cf.Products {
		for _, v := range p.Variants {
			price, err := decimal.NewFromString(v.BasePrice)
			if err != nil {
				return nil, apperrors.Invalidf("product %q variant %q: bad base_price %q", p.ID, v.ID, v.BasePrice)
			}
			if price.IsNegative() {
				return nil, apperrors.Invalidf("product %q variant %q: base_price must be >= 0", p.ID, v.ID)
			}
			mem.SetBaseline(p.ID, v.ID, price)
		}
	}

	for _, q := range cf.Questions {
		mem.AddQuestion(q.ID, activeOrDefault(q.Active))
		for _, opt := range q.Options {
			delta, err := parseDelta(opt.Delta, fmt.Sprintf("question %q option %q", q.ID, opt.ID))
			if err != nil {
				return nil, err
			}
			mem.AddQuestionOption(q.ID, opt.ID, opt.Label, delta, activeOrDefault(opt.Active))
		}
	}

	for _, d := range cf.Defects {
		delta, err := parseDelta(d.Delta, fmt.Sprintf("defect %q", d.ID))
		if err != nil {
			return nil, err
		}
		mem.AddDefect(d.ID, d.Label, delta, activeOrDefault(d.Active))
	}

	for _, a := range cf.Accessories {
		delta, err := parseDelta(a.Delta, fmt.Sprintf("accessory %q", a.ID))
		if err != nil {
			return nil, err
		}
		mem.AddAccessory(a.ID, a.Label, delta, activeOrDefault(a.Active))
	}

	return mem, nil
}

func parseDelta(raw deltaBlock, where string) (types.Delta, error) {
	value, err := decimal.NewFromString(raw.Value)
	if err != nil {
		return types.Delta{}, apperrors.Invalidf("%s: bad delta value %q", where, raw.Value)
	}
	delta := types.Delta{
		Kind:  types.DeltaKind(raw.Kind),
		Sign:  types.DeltaSign(raw.Sign),
		Value: value,
	}
	if err := delta.Validate(); err != nil {
		return types.Delta{}, apperrors.Invalidf("%s: %v", where, err)
	}
	return delta, nil
}

func activeOrDefault(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}
