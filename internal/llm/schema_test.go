package llm

import (
	"reflect"
	"testing"
)

func TestCompileToolsStrict(t *testing.T) {
	tool := Tool{
		Name:        "get_price_history",
		Description: "Fetch OHLCV bars",
		Parameters: ObjectSchema(map[string]*JSONSchema{
			"ticker":   StringProp("stock symbol"),
			"days":     IntProp("lookback in days"),
			"timespan": EnumProp("bar size", "day", "hour", "minute"),
		}),
	}

	compiled := CompileTools([]Tool{tool})
	if len(compiled) != 1 {
		t.Fatalf("got %d tools", len(compiled))
	}
	ft := compiled[0]

	if ft.Type != "function" || !ft.Strict {
		t.Fatalf("wrong envelope: type=%q strict=%v", ft.Type, ft.Strict)
	}
	want := []string{"days", "ticker", "timespan"}
	if !reflect.DeepEqual(ft.Parameters.Required, want) {
		t.Fatalf("required = %v, want %v", ft.Parameters.Required, want)
	}
	if ft.Parameters.AdditionalProperties == nil || *ft.Parameters.AdditionalProperties {
		t.Fatal("additionalProperties must be false")
	}
}

func TestCompileToolsRecursesNestedObjects(t *testing.T) {
	tool := Tool{
		Name: "build_chart_spec",
		Parameters: ObjectSchema(map[string]*JSONSchema{
			"overlays": ArrayProp("indicator overlays", ObjectSchema(map[string]*JSONSchema{
				"name":   StringProp("indicator name"),
				"period": IntProp("window length"),
			})),
			"range": ObjectSchema(map[string]*JSONSchema{
				"from": StringProp("start date"),
				"to":   StringProp("end date"),
			}),
		}),
	}

	ft := CompileTools([]Tool{tool})[0]

	items := ft.Parameters.Properties["overlays"].Items
	if !reflect.DeepEqual(items.Required, []string{"name", "period"}) {
		t.Fatalf("array item required = %v", items.Required)
	}
	if items.AdditionalProperties == nil || *items.AdditionalProperties {
		t.Fatal("nested array item must reject additional properties")
	}

	nested := ft.Parameters.Properties["range"]
	if !reflect.DeepEqual(nested.Required, []string{"from", "to"}) {
		t.Fatalf("nested object required = %v", nested.Required)
	}
	if nested.AdditionalProperties == nil || *nested.AdditionalProperties {
		t.Fatal("nested object must reject additional properties")
	}
}

func TestCompileToolsDoesNotMutateInput(t *testing.T) {
	params := ObjectSchema(map[string]*JSONSchema{
		"ticker": StringProp("symbol"),
	})
	tool := Tool{Name: "get_stock_price", Parameters: params}

	CompileTools([]Tool{tool})

	if params.Required != nil {
		t.Fatalf("input schema mutated: required = %v", params.Required)
	}
	if params.AdditionalProperties != nil {
		t.Fatal("input schema mutated: additionalProperties set")
	}
}

func TestCompileToolsIdempotent(t *testing.T) {
	tool := Tool{
		Name: "get_financials",
		Parameters: ObjectSchema(map[string]*JSONSchema{
			"ticker":    StringProp("symbol"),
			"timeframe": EnumProp("report period", "quarterly", "annual"),
			"limit":     IntProp("number of reports"),
		}),
	}

	first := CompileTools([]Tool{tool})
	second := CompileTools([]Tool{tool})
	if !reflect.DeepEqual(first, second) {
		t.Fatal("compilation is not deterministic")
	}
}

func TestCompileToolsNilParameters(t *testing.T) {
	ft := CompileTools([]Tool{{Name: "get_market_status"}})[0]
	if ft.Parameters == nil || ft.Parameters.Type != "object" {
		t.Fatalf("nil parameters should compile to an empty object schema, got %+v", ft.Parameters)
	}
	if ft.Parameters.AdditionalProperties == nil || *ft.Parameters.AdditionalProperties {
		t.Fatal("empty object schema must still be strict")
	}
	if len(ft.Parameters.Required) != 0 {
		t.Fatalf("empty object schema required = %v", ft.Parameters.Required)
	}
}
