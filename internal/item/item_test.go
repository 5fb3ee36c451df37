package item

import (
	"encoding/json"
	"testing"

	"github.com/gravitas-games/sortsys/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(
		catalog.Entry{RawID: 1, Key: "minecraft:diamond", DisplayName: "Diamond", MaxCount: 64},
		catalog.Entry{RawID: 2, Key: "minecraft:ender_pearl", DisplayName: "Ender Pearl", MaxCount: 16},
		catalog.Entry{RawID: 3, Key: "minecraft:shulker_box", DisplayName: "Shulker Box", MaxCount: 1},
		catalog.Entry{RawID: 4, Key: "minecraft:red_shulker_box", DisplayName: "Red Shulker Box", MaxCount: 1},
	)
}

func TestStackableHashStableAndDistinct(t *testing.T) {
	a := StackableHash(1, json.RawMessage(`{"b":1,"a":{"y":2,"x":[1,2]}}`))
	b := StackableHash(1, json.RawMessage(`{ "a": {"x": [1, 2], "y": 2}, "b": 1 }`))
	if a != b {
		t.Fatalf("expected canonical hashing to ignore key order and whitespace")
	}
	if StackableHash(1, nil) != StackableHash(1, json.RawMessage(`null`)) {
		t.Fatalf("expected absent components to hash like null")
	}
	if a == StackableHash(1, json.RawMessage(`{"b":2,"a":{"y":2,"x":[1,2]}}`)) {
		t.Fatalf("expected different components to hash differently")
	}
	if a == StackableHash(2, json.RawMessage(`{"b":1,"a":{"y":2,"x":[1,2]}}`)) {
		t.Fatalf("expected different item ids to hash differently")
	}
	if StackableHash(1, json.RawMessage(`[1,2]`)) == StackableHash(1, json.RawMessage(`[2,1]`)) {
		t.Fatalf("array order must stay significant")
	}
}

func TestDecodeIsStableAcrossRedecoding(t *testing.T) {
	dec := NewDecoder(testCatalog())
	raw := Raw{ItemID: 2, Count: 3, DataComponents: json.RawMessage(`{"minecraft:custom":"x"}`)}
	first := dec.Decode(raw)
	second := dec.Decode(Raw{ItemID: 2, Count: 9, DataComponents: json.RawMessage(`{"minecraft:custom":"x"}`)})
	if first.StackableHash != second.StackableHash {
		t.Fatalf("hash must not depend on count")
	}
	if first.StackSize != 16 {
		t.Fatalf("expected stack size 16, got %d", first.StackSize)
	}
	if first.IsShulker() {
		t.Fatalf("ender pearl is not a container")
	}
}

func TestDecodeUnknownItemDefaults(t *testing.T) {
	dec := NewDecoder(testCatalog())
	it := dec.Decode(Raw{ItemID: 999, Count: 1, DataComponents: json.RawMessage(`{"minecraft:container":[{"id":1,"amount":64}]}`)})
	if it.StackSize != catalog.DefaultStackSize {
		t.Fatalf("expected default stack size, got %d", it.StackSize)
	}
	if it.IsShulker() {
		t.Fatalf("unknown items must never be containers")
	}
	noCat := NewDecoder(nil).Decode(Raw{ItemID: 3})
	if noCat.IsShulker() {
		t.Fatalf("decoder without catalog must not detect containers")
	}
}

func TestDecodeShulker(t *testing.T) {
	dec := NewDecoder(testCatalog())
	components := `{
		"value": {"display": {"value": {"Name": {"value": "\"Loot\""}}}},
		"minecraft:container": [
			{"id": 1, "amount": 64},
			null,
			{"id": 2, "amount": 16, "data_components": {"minecraft:custom":"x"}},
			{"id": 777, "amount": 1},
			{"amount": 5},
			"garbage"
		]
	}`
	it := dec.Decode(Raw{ItemID: 4, Count: 1, DataComponents: json.RawMessage(components)})
	if !it.IsShulker() {
		t.Fatalf("expected container payload")
	}
	sd := it.Shulker
	if sd.Color == nil || *sd.Color != "red" {
		t.Fatalf("expected color red, got %v", sd.Color)
	}
	if sd.Name == nil || *sd.Name != "Loot" {
		t.Fatalf("expected name Loot, got %v", sd.Name)
	}
	if len(sd.ContainedItems) != 2 || sd.Empty {
		t.Fatalf("expected two decodable contained items, got %d", len(sd.ContainedItems))
	}
	if sd.ContainedItems[0].ItemID != 1 || sd.ContainedItems[0].Count != 64 {
		t.Fatalf("unexpected first item %v", sd.ContainedItems[0])
	}
	want := StackableHash(2, json.RawMessage(`{"minecraft:custom":"x"}`))
	if sd.ContainedItems[1].StackableHash != want {
		t.Fatalf("contained item hash must include its components")
	}
}

func TestDecodeNestedShulker(t *testing.T) {
	dec := NewDecoder(testCatalog())
	components := `{"minecraft:container":[{"id":3,"amount":1,"data_components":{"minecraft:container":[{"id":1,"amount":10}]}}]}`
	it := dec.Decode(Raw{ItemID: 4, Count: 1, DataComponents: json.RawMessage(components)})
	inner := it.Shulker.ContainedItems[0]
	if !inner.IsShulker() {
		t.Fatalf("expected nested container")
	}
	if inner.Shulker.Color != nil {
		t.Fatalf("plain shulker box has no color")
	}
	if len(inner.Shulker.ContainedItems) != 1 || inner.Shulker.ContainedItems[0].Count != 10 {
		t.Fatalf("unexpected nested contents")
	}
}

func TestDecodeMalformedShulkerIsEmpty(t *testing.T) {
	dec := NewDecoder(testCatalog())
	cases := []string{
		``,
		`null`,
		`"not an object"`,
		`{"minecraft:container": {"id": 1}}`,
		`{"minecraft:container": []}`,
		`{"minecraft:container": [null, {"id": "one", "amount": 1}]}`,
		`{"value": {"display": {"value": {"Name": {"value": 42}}}}}`,
		`{"value": {"display": {"value": {"Name": {"value": "{\"text\":\"x\"}"}}}}}`,
	}
	for _, c := range cases {
		it := dec.Decode(Raw{ItemID: 3, Count: 1, DataComponents: json.RawMessage(c)})
		if !it.IsShulker() {
			t.Fatalf("%q: shulker box must still be a container", c)
		}
		if !it.Shulker.Empty || len(it.Shulker.ContainedItems) != 0 {
			t.Fatalf("%q: expected empty container", c)
		}
		if it.Shulker.Name != nil {
			t.Fatalf("%q: expected no custom name", c)
		}
	}
}

func TestHashTextRoundTrip(t *testing.T) {
	h := Hash(18446744073709551615)
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(data) != `"18446744073709551615"` {
		t.Fatalf("expected decimal string, got %s", data)
	}
	var out Hash
	if err := json.Unmarshal(data, &out); err != nil || out != h {
		t.Fatalf("roundtrip failed: %v %v", out, err)
	}
	if _, err := ParseHash("-1"); err == nil {
		t.Fatalf("expected error for negative hash")
	}
}

func TestCloneIsDeep(t *testing.T) {
	dec := NewDecoder(testCatalog())
	it := dec.Decode(Raw{ItemID: 4, Count: 1, DataComponents: json.RawMessage(`{"minecraft:container":[{"id":1,"amount":64}]}`)})
	cp := it.Clone()
	cp.Shulker.ContainedItems[0].Count = 1
	if it.Shulker.ContainedItems[0].Count != 64 {
		t.Fatalf("clone must not share contained items")
	}
}
