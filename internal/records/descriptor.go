// Package records describes the organization kinds served by the API and
// resolves their handles into client-shaped records. Hotels, airlines and
// future kinds differ only in field tables, schema model names and a few
// post-processing handlers, captured here as data on a Descriptor.
package records

import (
	"strings"

	"github.com/TravelMesh/read_layer/internal/fields"
)

// PostProcessor is one named reshaping step applied to a flattened record.
// Processors run in table order after generic flattening.
type PostProcessor struct {
	Name  string
	Apply func(rec map[string]any)
}

// Descriptor parameterizes the shared resolution pipeline for one kind.
type Descriptor struct {
	Kind        string
	Fields      fields.Table
	SchemaModel string
	// PlainLinks lists *Uri fields that are service URLs, not storage
	// pointers, and must never be followed during resolution.
	PlainLinks []string
	// RequireGuarantee gates listing/lookup on the trustworthiness test.
	RequireGuarantee bool
	PostProcess      []PostProcessor
	// Depth bounds pointer traversal for a given off-chain field selection.
	Depth func(toFlatten []string) int
	// ReverseRename maps internal storage names back to public ones.
	ReverseRename map[string]string
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// Hotel returns the hotel kind descriptor.
func Hotel() Descriptor {
	rename := map[string]string{
		"ownerAddress":  "owner",
		"ratePlans":     "ratePlansUri",
		"availability":  "availabilityUri",
		"notifications": "notificationsUri",
		"booking":       "bookingUri",
	}
	d := Descriptor{
		Kind: "hotel",
		Fields: fields.Table{
			ID:      "id",
			Default: []string{"id", "location", "name"},
			Rename:  rename,
			OnChain: set("owner", "created"),
			Description: set(
				"name", "description", "location", "contacts", "address",
				"currency", "images", "amenities", "category", "timezone",
				"roomTypes", "updatedAt",
				"defaultCancellationAmount", "cancellationPolicies",
			),
			DataIndex: set(
				"ratePlansUri", "availabilityUri", "notificationsUri",
				"bookingUri", "defaultLocale", "dataFormatVersion", "guarantee",
			),
			DescriptionField: "descriptionUri",
			AutoAdd:          []string{"dataFormatVersion", "guarantee"},
		},
		SchemaModel:      "HotelDetail",
		PlainLinks:       []string{"notificationsUri", "bookingUri"},
		RequireGuarantee: true,
		ReverseRename:    invert(rename),
		Depth: func([]string) int { return 2 },
	}
	d.PostProcess = []PostProcessor{
		{Name: "hoistDescription", Apply: hoistDescription},
		{Name: "publicNames", Apply: renameKeys(d.ReverseRename)},
	}
	return d
}

// Airline returns the airline kind descriptor.
func Airline() Descriptor {
	rename := map[string]string{
		"ownerAddress":  "owner",
		"flights":       "flightsUri",
		"notifications": "notificationsUri",
		"booking":       "bookingUri",
	}
	d := Descriptor{
		Kind: "airline",
		Fields: fields.Table{
			ID:      "id",
			Default: []string{"id", "name", "code"},
			Rename:  rename,
			OnChain: set("owner", "created"),
			Description: set(
				"name", "code", "contacts", "currency", "updatedAt",
				"defaultCancellationAmount", "cancellationPolicies",
			),
			DataIndex: set(
				"flightsUri", "notificationsUri", "bookingUri",
				"defaultLocale", "dataFormatVersion",
			),
			DescriptionField: "descriptionUri",
			AutoAdd:          []string{"dataFormatVersion"},
		},
		SchemaModel:   "AirlineDetail",
		PlainLinks:    []string{"notificationsUri", "bookingUri"},
		ReverseRename: invert(rename),
		Depth: func(toFlatten []string) int {
			// Flight instances sit one pointer level below the flights
			// document; skip that level when nobody asked for it.
			for _, f := range toFlatten {
				if strings.Contains(f, "flightInstancesUri") {
					return 2
				}
			}
			return 1
		},
	}
	d.PostProcess = []PostProcessor{
		{Name: "hoistDescription", Apply: hoistDescription},
		{Name: "publicNames", Apply: renameKeys(d.ReverseRename)},
		{Name: "inlineFlightInstances", Apply: inlineFlightInstances},
	}
	return d
}

func set(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// hoistDescription merges the flattened description document into the record
// top level, matching the public shape.
func hoistDescription(rec map[string]any) {
	desc, ok := rec["descriptionUri"].(map[string]any)
	if !ok {
		return
	}
	delete(rec, "descriptionUri")
	for k, v := range desc {
		if _, taken := rec[k]; !taken {
			rec[k] = v
		}
	}
}

// renameKeys rewrites internal top-level keys to their public names.
func renameKeys(reverse map[string]string) func(rec map[string]any) {
	return func(rec map[string]any) {
		for internal, public := range reverse {
			if v, ok := rec[internal]; ok {
				delete(rec, internal)
				rec[public] = v
			}
		}
	}
}

// inlineFlightInstances collapses each flight item's resolved
// flightInstancesUri pointer into an inline flightInstances value.
func inlineFlightInstances(rec map[string]any) {
	flights, ok := rec["flights"].(map[string]any)
	if !ok {
		return
	}
	items, ok := flights["items"].([]any)
	if !ok {
		return
	}
	for _, el := range items {
		item, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if v, present := item["flightInstancesUri"]; present {
			delete(item, "flightInstancesUri")
			item["flightInstances"] = v
		}
	}
}
