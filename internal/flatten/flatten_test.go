package flatten

import (
	"reflect"
	"testing"

	"github.com/TravelMesh/read_layer/internal/storage"
)

func hotelDoc() map[string]any {
	return map[string]any{
		"descriptionUri": &storage.Pointer{
			Ref: "in-memory://h1/description",
			Contents: map[string]any{
				"name":        "Grand Plaza",
				"description": "Downtown hotel",
				"location":    map[string]any{"latitude": 50.08, "longitude": 14.44},
				"roomTypes": map[string]any{
					"single": map[string]any{"name": "Single", "occupancy": map[string]any{"max": 1}},
					"double": map[string]any{"name": "Double", "occupancy": map[string]any{"max": 2}},
				},
			},
		},
		"ratePlansUri": &storage.Pointer{
			Ref:      "in-memory://h1/rateplans",
			Contents: map[string]any{"basic": map[string]any{"price": 100.0}},
		},
		"dataFormatVersion": "0.8.4",
	}
}

func TestFlatten_ShapeFidelity(t *testing.T) {
	doc := hotelDoc()
	out := Flatten(doc, []string{"descriptionUri.name", "dataFormatVersion"})

	want := map[string]any{
		"descriptionUri":    map[string]any{"name": "Grand Plaza"},
		"dataFormatVersion": "0.8.4",
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("unexpected shape: %#v", out)
	}
}

func TestFlatten_PointerUnwrapped(t *testing.T) {
	out := Flatten(hotelDoc(), []string{"ratePlansUri"})
	plans, ok := out["ratePlansUri"].(map[string]any)
	if !ok {
		t.Fatalf("expected rate plans contents inline, got %#v", out["ratePlansUri"])
	}
	if _, leaked := plans["ref"]; leaked {
		t.Fatalf("pointer wrapper leaked into output: %#v", plans)
	}
	if !reflect.DeepEqual(plans, map[string]any{"basic": map[string]any{"price": 100.0}}) {
		t.Fatalf("unexpected contents: %#v", plans)
	}
}

func TestFlatten_UnresolvedPointerStaysBareRef(t *testing.T) {
	doc := map[string]any{
		"ratePlansUri": &storage.Pointer{Ref: "in-memory://h1/rateplans"},
	}
	out := Flatten(doc, []string{"ratePlansUri"})
	if out["ratePlansUri"] != "in-memory://h1/rateplans" {
		t.Fatalf("expected bare ref for unresolved pointer, got %#v", out["ratePlansUri"])
	}
}

func TestFlatten_UnresolvedPointerNotDescended(t *testing.T) {
	doc := map[string]any{
		"ratePlansUri": &storage.Pointer{Ref: "in-memory://h1/rateplans"},
	}
	out := Flatten(doc, []string{"ratePlansUri.basic"})
	if _, present := out["ratePlansUri"]; present {
		t.Fatalf("unresolved pointer must be treated as absent, got %#v", out)
	}
}

func TestFlatten_ReverseSortTieBreak(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{"b": 1, "c": 2},
	}
	both := Flatten(doc, []string{"a", "a.b"})
	specific := Flatten(doc, []string{"a.b"})
	if !reflect.DeepEqual(both, specific) {
		t.Fatalf("specific path must win over bare field: %#v vs %#v", both, specific)
	}
	if !reflect.DeepEqual(both, map[string]any{"a": map[string]any{"b": 1}}) {
		t.Fatalf("unexpected result: %#v", both)
	}
}

func TestFlatten_Idempotence(t *testing.T) {
	doc := hotelDoc()
	fields := []string{"descriptionUri.roomTypes.name", "descriptionUri.name", "ratePlansUri"}
	first := Flatten(doc, fields)
	second := Flatten(doc, fields)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("flatten not idempotent:\nfirst:  %#v\nsecond: %#v", first, second)
	}
}

func TestFlatten_BroadcastOverMap(t *testing.T) {
	out := Flatten(hotelDoc(), []string{"descriptionUri.roomTypes.name"})
	desc, _ := out["descriptionUri"].(map[string]any)
	roomTypes, ok := desc["roomTypes"].(map[string]any)
	if !ok {
		t.Fatalf("expected room types map, got %#v", out)
	}
	single, _ := roomTypes["single"].(map[string]any)
	if single["name"] != "Single" {
		t.Fatalf("broadcast missed single: %#v", roomTypes)
	}
	if _, leaked := single["occupancy"]; leaked {
		t.Fatalf("broadcast copied unrequested field: %#v", single)
	}
	double, _ := roomTypes["double"].(map[string]any)
	if double["name"] != "Double" {
		t.Fatalf("broadcast missed double: %#v", roomTypes)
	}
}

func TestFlatten_BroadcastMergesAcrossFields(t *testing.T) {
	doc := map[string]any{
		"entries": map[string]any{
			"x": map[string]any{"name": "X", "size": 1},
			"y": map[string]any{"name": "Y", "size": 2},
		},
	}
	out := Flatten(doc, []string{"entries.name", "entries.size"})
	entries, _ := out["entries"].(map[string]any)
	x, _ := entries["x"].(map[string]any)
	if x["name"] != "X" || x["size"] != 1 {
		t.Fatalf("merged broadcast incomplete: %#v", entries)
	}
}

func TestFlatten_ArrayElements(t *testing.T) {
	doc := map[string]any{
		"items": []any{
			map[string]any{"id": "f1", "origin": "PRG", "destination": "LHR"},
			map[string]any{"id": "f2", "origin": "LHR", "destination": "PRG"},
		},
	}
	out := Flatten(doc, []string{"items.id"})
	items, ok := out["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected parallel array, got %#v", out)
	}
	first, _ := items[0].(map[string]any)
	if first["id"] != "f1" {
		t.Fatalf("unexpected first element: %#v", items)
	}
	if _, leaked := first["origin"]; leaked {
		t.Fatalf("unrequested field leaked: %#v", first)
	}
}

func TestFlatten_NestedPointerInArray(t *testing.T) {
	doc := map[string]any{
		"flightsUri": &storage.Pointer{
			Ref: "in-memory://a1/flights",
			Contents: map[string]any{
				"items": []any{
					map[string]any{
						"id": "f1",
						"flightInstancesUri": &storage.Pointer{
							Ref:      "in-memory://a1/instances/f1",
							Contents: map[string]any{"instances": []any{"i1", "i2"}},
						},
					},
				},
			},
		},
	}
	out := Flatten(doc, []string{"flightsUri.items.id", "flightsUri.items.flightInstancesUri"})
	flights, _ := out["flightsUri"].(map[string]any)
	items, _ := flights["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one item, got %#v", out)
	}
	item, _ := items[0].(map[string]any)
	inst, ok := item["flightInstancesUri"].(map[string]any)
	if !ok {
		t.Fatalf("expected inlined instance document, got %#v", item)
	}
	if !reflect.DeepEqual(inst["instances"], []any{"i1", "i2"}) {
		t.Fatalf("unexpected instances: %#v", inst)
	}
}

func TestFlatten_EmptyFields(t *testing.T) {
	out := Flatten(hotelDoc(), nil)
	if len(out) != 0 {
		t.Fatalf("expected empty object, got %#v", out)
	}
}

func TestFlatten_NilValuesOmitted(t *testing.T) {
	doc := map[string]any{"name": nil, "currency": "EUR"}
	out := Flatten(doc, []string{"name", "currency"})
	if _, present := out["name"]; present {
		t.Fatalf("nil value must be omitted, got %#v", out)
	}
	if out["currency"] != "EUR" {
		t.Fatalf("expected currency, got %#v", out)
	}
}

func TestFlatten_MissingFieldsOmitted(t *testing.T) {
	out := Flatten(hotelDoc(), []string{"descriptionUri.nonexistent", "alsoMissing"})
	desc, present := out["descriptionUri"]
	if present {
		t.Fatalf("empty nested result must be omitted, got %#v", desc)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %#v", out)
	}
}
