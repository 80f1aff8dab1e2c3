package page

import (
	"context"
	"strings"
	"testing"

	"github.com/TravelMesh/read_layer/internal/ledger"
	"github.com/TravelMesh/read_layer/internal/schema"
	"github.com/TravelMesh/read_layer/pkg/logger"
)

// fillFixture wires a Filler whose per-address behavior is scripted.
type fillFixture struct {
	failing  map[string]bool
	warnAddr map[string]bool
	untrust  map[string]bool
}

func (fx *fillFixture) filler() *Filler {
	return &Filler{
		Resolve: func(_ context.Context, h ledger.Handle) map[string]any {
			if fx.failing[h.Address()] {
				return map[string]any{
					"error": "Cannot get data for hotel " + h.Address(),
					"data":  map[string]any{"id": h.Address()},
				}
			}
			return map[string]any{"id": h.Address(), "name": "Record " + h.Address()}
		},
		Validate: func(rec map[string]any) error {
			id, _ := rec["id"].(string)
			if fx.warnAddr[id] {
				return &schema.ValidationError{Valid: true, Messages: []string{"stale data format"}}
			}
			return nil
		},
		Trusted: func(rec map[string]any) bool {
			id, _ := rec["id"].(string)
			return !fx.untrust[id]
		},
		Log: logger.NewDefault("fill-test"),
	}
}

func TestFill_AllFailuresDoNotPageForever(t *testing.T) {
	handles := makeHandles("a1", "a2", "a3", "a4", "a5", "a6")
	fx := &fillFixture{failing: map[string]bool{
		"a1": true, "a2": true, "a3": true, "a4": true, "a5": true, "a6": true,
	}}

	res, err := fx.filler().Fill(context.Background(), "/hotels", []string{"id", "name"}, handles, 2, "")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(res.Items) != 0 {
		t.Fatalf("items = %v, want none", res.Items)
	}
	if len(res.Errors) != 6 {
		t.Fatalf("errors = %d, want 6 (whole collection consumed)", len(res.Errors))
	}
	if res.Next != "" {
		t.Fatalf("exhausted collection must not publish a cursor, got %q", res.Next)
	}
}

func TestFill_TopsUpPastFailures(t *testing.T) {
	handles := makeHandles("a1", "a2", "a3", "a4", "a5", "a6", "a7")
	fx := &fillFixture{failing: map[string]bool{"a1": true, "a2": true}}

	res, err := fx.filler().Fill(context.Background(), "/hotels", []string{"id", "name"}, handles, 4, "")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(res.Items) != 4 {
		t.Fatalf("items = %d, want 4", len(res.Items))
	}
	for i, want := range []string{"a3", "a4", "a5", "a6"} {
		if res.Items[i]["id"] != want {
			t.Fatalf("item %d = %v, want %s", i, res.Items[i]["id"], want)
		}
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %d, want 2", len(res.Errors))
	}
	if !strings.Contains(res.Next, "startWith=a7") {
		t.Fatalf("next = %q, want cursor at a7", res.Next)
	}
	if !strings.Contains(res.Next, "limit=4") || !strings.Contains(res.Next, "fields=id,name") {
		t.Fatalf("next must carry limit and fields: %q", res.Next)
	}
}

func TestFill_CleanPageKeepsCursor(t *testing.T) {
	handles := makeHandles("a1", "a2", "a3", "a4")
	fx := &fillFixture{}

	res, err := fx.filler().Fill(context.Background(), "/hotels", []string{"id"}, handles, 2, "")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(res.Items) != 2 || res.Items[0]["id"] != "a1" {
		t.Fatalf("items = %v", res.Items)
	}
	if !strings.Contains(res.Next, "startWith=a3") {
		t.Fatalf("next = %q, want cursor at a3", res.Next)
	}
}

func TestFill_WarningsCountTowardLimit(t *testing.T) {
	handles := makeHandles("a1", "a2", "a3")
	fx := &fillFixture{warnAddr: map[string]bool{"a2": true}}

	res, err := fx.filler().Fill(context.Background(), "/hotels", []string{"id"}, handles, 2, "")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0]["id"] != "a1" {
		t.Fatalf("items = %v", res.Items)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	w := res.Warnings[0]
	if w["warning"] != "stale data format" {
		t.Fatalf("warning shape: %v", w)
	}
	data, _ := w["data"].(map[string]any)
	if data["id"] != "a2" {
		t.Fatalf("warning data: %v", w)
	}
	if !strings.Contains(res.Next, "startWith=a3") {
		t.Fatalf("next = %q", res.Next)
	}
}

func TestFill_UntrustedDroppedAndToppedUp(t *testing.T) {
	handles := makeHandles("a1", "a2", "a3", "a4")
	fx := &fillFixture{untrust: map[string]bool{"a1": true}}

	res, err := fx.filler().Fill(context.Background(), "/hotels", []string{"id"}, handles, 2, "")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(res.Items) != 2 || res.Items[0]["id"] != "a2" || res.Items[1]["id"] != "a3" {
		t.Fatalf("items = %v", res.Items)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("untrusted records must not surface as errors: %v", res.Errors)
	}
	if !strings.Contains(res.Next, "startWith=a4") {
		t.Fatalf("next = %q", res.Next)
	}
}

func TestFill_HardValidationFailureShape(t *testing.T) {
	handles := makeHandles("a1")
	f := &Filler{
		Resolve: func(_ context.Context, h ledger.Handle) map[string]any {
			return map[string]any{"id": h.Address()}
		},
		Validate: func(map[string]any) error {
			return &schema.ValidationError{Valid: false, Messages: []string{"(root): missing required field name"}}
		},
		Log: logger.NewDefault("fill-test"),
	}

	res, err := f.Fill(context.Background(), "/hotels", []string{"id"}, handles, 5, "")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v", res.Errors)
	}
	e := res.Errors[0]
	if e["error"] != "Upstream data validation failed" {
		t.Fatalf("error shape: %v", e)
	}
	if e["originalError"] != "(root): missing required field name" {
		t.Fatalf("originalError: %v", e)
	}
	data, _ := e["data"].(map[string]any)
	if data["id"] != "a1" {
		t.Fatalf("error data must expose only the id: %v", e)
	}
}

func TestFill_StartWithPropagatesPaginationError(t *testing.T) {
	handles := makeHandles("a1", "a2")
	fx := &fillFixture{}
	_, err := fx.filler().Fill(context.Background(), "/hotels", []string{"id"}, handles, 2, "missing")
	if err == nil {
		t.Fatalf("expected pagination error for unknown cursor")
	}
}

func TestFill_ConcurrentKeepsOrder(t *testing.T) {
	handles := makeHandles("a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8")
	fx := &fillFixture{}
	f := fx.filler()
	f.Concurrent = true

	res, err := f.Fill(context.Background(), "/airlines", []string{"id"}, handles, 8, "")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(res.Items) != 8 {
		t.Fatalf("items = %d", len(res.Items))
	}
	for i, want := range []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8"} {
		if res.Items[i]["id"] != want {
			t.Fatalf("item %d = %v, collection order violated", i, res.Items[i]["id"])
		}
	}
}
