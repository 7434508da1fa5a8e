package llm

import (
	"encoding/json"
	"testing"
)

func TestResponseTextPrefersConvenienceField(t *testing.T) {
	r := &Response{
		OutputText: "from convenience field",
		Output: []OutputItem{
			{Type: ItemMessage, Role: RoleAssistant, Content: []ContentPart{{Type: PartOutputText, Text: "from items"}}},
		},
	}
	if got := r.Text(); got != "from convenience field" {
		t.Fatalf("got %q", got)
	}
}

func TestResponseTextWalksOutputItems(t *testing.T) {
	r := &Response{
		Output: []OutputItem{
			{Type: "reasoning"},
			{Type: ItemMessage, Role: RoleAssistant, Content: []ContentPart{
				{Type: PartOutputText, Text: "first paragraph"},
				{Type: "refusal", Text: "ignored"},
			}},
			{Type: ItemFunctionCall, CallID: "call_1", Name: "get_stock_price"},
			{Type: ItemMessage, Role: RoleAssistant, Content: []ContentPart{
				{Type: PartOutputText, Text: "second paragraph"},
			}},
		},
	}
	if got := r.Text(); got != "first paragraph\nsecond paragraph" {
		t.Fatalf("got %q", got)
	}
}

func TestResponseTextEmpty(t *testing.T) {
	r := &Response{Output: []OutputItem{{Type: ItemFunctionCall, CallID: "c", Name: "n"}}}
	if got := r.Text(); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestOutputItemEchoesRawBytes(t *testing.T) {
	// Items must round-trip byte-for-byte, including fields this client
	// does not model.
	wire := `{"type":"function_call","call_id":"call_1","name":"get_stock_price","arguments":"{}","vendor_state":{"opaque":true}}`

	var item OutputItem
	if err := json.Unmarshal([]byte(wire), &item); err != nil {
		t.Fatal(err)
	}
	if item.CallID != "call_1" || item.Name != "get_stock_price" {
		t.Fatalf("decoded item = %+v", item)
	}

	out, err := json.Marshal(&item)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != wire {
		t.Fatalf("echo mismatch:\n got %s\nwant %s", out, wire)
	}
}

func TestUsageAdd(t *testing.T) {
	var u Usage
	u.Add(Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15})
	u.Add(Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5})
	if u.InputTokens != 13 || u.OutputTokens != 7 || u.TotalTokens != 20 {
		t.Fatalf("usage = %+v", u)
	}
}
