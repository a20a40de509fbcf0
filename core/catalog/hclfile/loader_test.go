package hclfile

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "tradein-engine/internal/errors"
)

const sampleCatalog = `
currency = "USD"

product "iphone-12" {
  variant "128gb" {
    base_price = "32000"
  }
  variant "256gb" {
    base_price = "36000"
  }
}

question "screen" {
  label = "Screen condition"

  option "flawless" {
    label = "Flawless"
    delta {
      kind  = "abs"
      sign  = "+"
      value = "500"
    }
  }

  option "scratched" {
    label = "Visible scratches"
    delta {
      kind  = "percent"
      sign  = "-"
      value = "5"
    }
  }
}

defect "cracked-back" {
  label = "Cracked back glass"
  delta {
    kind  = "percent"
    sign  = "-"
    value = "10"
  }
}

defect "retired" {
  label  = "No longer assessed"
  active = false
  delta {
    kind  = "abs"
    sign  = "-"
    value = "100"
  }
}

accessory "charger" {
  label = "Original charger"
  delta {
    kind  = "abs"
    sign  = "+"
    value = "200"
  }
}
`

func TestLoadBytes(t *testing.T) {
	cat, err := LoadBytes([]byte(sampleCatalog), "catalog.hcl")
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	ctx := context.Background()

	price, err := cat.BaselinePrice(ctx, "iphone-12", "256gb")
	if err != nil {
		t.Fatalf("BaselinePrice: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(36000)) {
		t.Errorf("got baseline %s, want 36000", price)
	}

	adj, err := cat.QuestionOption(ctx, "screen", "scratched")
	if err != nil {
		t.Fatalf("QuestionOption: %v", err)
	}
	if adj.Label != "Visible scratches" {
		t.Errorf("got label %q", adj.Label)
	}
	if !adj.Delta.Apply(decimal.NewFromInt(1000)).Equal(decimal.NewFromInt(-50)) {
		t.Errorf("scratched delta resolved wrong")
	}

	if _, err := cat.Defect(ctx, "retired"); !apperrors.IsType(err, apperrors.TypeNotFound) {
		t.Errorf("inactive defect should be NOT_FOUND, got %v", err)
	}

	if _, err := cat.Accessory(ctx, "charger"); err != nil {
		t.Errorf("Accessory: %v", err)
	}

	products, questions, defects, accessories := cat.Counts()
	if products != 2 || questions != 1 || defects != 2 || accessories != 1 {
		t.Errorf("counts = %d/%d/%d/%d", products, questions, defects, accessories)
	}
}

func TestLoadBytesRejectsBadDelta(t *testing.T) {
	src := `
defect "broken" {
  label = "Broken"
  delta {
    kind  = "multiplier"
    sign  = "+"
    value = "2"
  }
}
`
	_, err := LoadBytes([]byte(src), "bad.hcl")
	if !apperrors.IsType(err, apperrors.TypeInvalid) {
		t.Errorf("got %v, want INVALID", err)
	}
}

func TestLoadBytesRejectsBadPrice(t *testing.T) {
	src := `
product "p" {
  variant "v" {
    base_price = "not-a-number"
  }
}
`
	_, err := LoadBytes([]byte(src), "bad.hcl")
	if !apperrors.IsType(err, apperrors.TypeInvalid) {
		t.Errorf("got %v, want INVALID", err)
	}
}

func TestLoadBytesRejectsMalformedHCL(t *testing.T) {
	_, err := LoadBytes([]byte(`product "p" {`), "bad.hcl")
	if !apperrors.IsType(err, apperrors.TypeConfig) {
		t.Errorf("got %v, want CONFIG_ERROR", err)
	}
}
