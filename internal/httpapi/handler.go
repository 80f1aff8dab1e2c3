// Package httpapi exposes the read-only REST API over ledger-anchored
// organization records.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/TravelMesh/read_layer/internal/apperr"
	"github.com/TravelMesh/read_layer/internal/fields"
	"github.com/TravelMesh/read_layer/internal/guarantee"
	"github.com/TravelMesh/read_layer/internal/ledger"
	"github.com/TravelMesh/read_layer/internal/metrics"
	"github.com/TravelMesh/read_layer/internal/page"
	"github.com/TravelMesh/read_layer/internal/records"
	"github.com/TravelMesh/read_layer/internal/schema"
	"github.com/TravelMesh/read_layer/internal/storage"
	"github.com/TravelMesh/read_layer/pkg/logger"
)

const validationWarningHeader = "X-Data-Validation-Warning"

// Version is reported by the info endpoint.
const Version = "0.9.2"

// Kind wires one record kind into the API.
type Kind struct {
	// Base is the collection path, e.g. "/hotels".
	Base      string
	Resolver  *records.Resolver
	Directory ledger.Directory
	// Concurrent resolves list pages in parallel. Hotels stay sequential
	// because page ordering is part of their response contract; airline
	// items carry their own ordering and may fan out.
	Concurrent bool
}

// Options configures the handler.
type Options struct {
	// BaseURL prefixes the next-page links of listings. Empty keeps them
	// relative.
	BaseURL            string
	SchemaPath         string
	DataFormatVersions string
	DefaultPageSize    int
	RequestTimeout     time.Duration
	Verifier           *guarantee.Verifier
	Kinds              []Kind
	Log                *logger.Logger
}

type handler struct {
	opts    Options
	schemas *schema.Cache
	log     *logger.Logger
}

// NewHandler returns the API router.
func NewHandler(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 30
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 20 * time.Second
	}
	h := &handler{opts: opts, schemas: schema.NewCache(), log: log}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(observeMiddleware(log))
	r.Use(timeoutMiddleware(opts.RequestTimeout))

	r.HandleFunc("/", h.info).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	for _, kind := range opts.Kinds {
		kind := kind
		r.HandleFunc(kind.Base, h.list(kind)).Methods(http.MethodGet)
		r.HandleFunc(kind.Base+"/{address}", h.detail(kind)).Methods(http.MethodGet)
		r.HandleFunc(kind.Base+"/{address}/dataUris", h.dataURIs(kind)).Methods(http.MethodGet)
	}
	return r
}

func (h *handler) info(w http.ResponseWriter, _ *http.Request) {
	kinds := make([]string, 0, len(h.opts.Kinds))
	for _, k := range h.opts.Kinds {
		kinds = append(kinds, k.Resolver.Descriptor().Kind)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":            Version,
		"dataFormatVersions": h.opts.DataFormatVersions,
		"defaultPageSize":    h.opts.DefaultPageSize,
		"kinds":              kinds,
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) list(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		desc := kind.Resolver.Descriptor()
		query := r.URL.Query()

		sel := fields.Select(query["fields"], desc.Fields)
		limit, err := page.ParseLimit(query.Get("limit"), h.opts.DefaultPageSize)
		if err != nil {
			writeError(w, err)
			return
		}

		doc, err := h.schemas.Load(h.opts.SchemaPath, desc.SchemaModel, sel.Mapped, desc.ReverseRename)
		if err != nil {
			writeError(w, err)
			return
		}

		handles, err := kind.Directory.GetAll(ctx)
		if err != nil {
			writeError(w, apperr.UpstreamOnChain(
				fmt.Sprintf("cannot enumerate %s collection", desc.Kind), err))
			return
		}

		fill := &page.Filler{
			Resolve: func(ctx2 context.Context, item ledger.Handle) map[string]any {
				rec := kind.Resolver.Resolve(ctx2, item, sel)
				if _, failed := rec["error"]; failed {
					metrics.CountOutcome(desc.Kind, "error")
				} else {
					metrics.CountOutcome(desc.Kind, "resolved")
				}
				return rec
			},
			Validate: func(rec map[string]any) error {
				return schema.Validate(schema.ValidateInput{
					Data:            rec,
					ModelName:       desc.SchemaModel,
					Document:        doc,
					DesiredVersions: h.opts.DataFormatVersions,
					TypeLabel:       desc.Kind,
					IDOnly:          sel.OnlyID(desc.Fields),
				})
			},
			Finalize: func(rec map[string]any) map[string]any {
				return kind.Resolver.Finalize(rec, sel)
			},
			Concurrent: kind.Concurrent,
			Log:        h.log,
		}
		if desc.RequireGuarantee && h.opts.Verifier.Enabled() {
			fill.Trusted = func(rec map[string]any) bool {
				ok := h.opts.Verifier.PassesTrustworthinessTest(addressOf(rec), rec["guarantee"])
				if !ok {
					metrics.CountOutcome(desc.Kind, "dropped")
				}
				return ok
			}
		}

		res, err := fill.Fill(ctx, strings.TrimSuffix(h.opts.BaseURL, "/")+kind.Base, sel.Mapped, handles, limit, query.Get("startWith"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *handler) detail(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		desc := kind.Resolver.Descriptor()
		address := mux.Vars(r)["address"]

		if err := ledger.CheckAddress(address); err != nil {
			writeError(w, apperr.AddressChecksum(err.Error()))
			return
		}

		handle, err := kind.Directory.Get(ctx, address)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				writeError(w, apperr.NotFound(fmt.Sprintf("no %s with address %s", desc.Kind, address)))
				return
			}
			writeError(w, apperr.UpstreamOnChain(fmt.Sprintf("cannot look up %s %s", desc.Kind, address), err))
			return
		}

		sel := fields.Select(r.URL.Query()["fields"], desc.Fields)
		rec, err := kind.Resolver.ResolveStrict(ctx, handle, sel)
		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrUnreachable):
				writeError(w, apperr.UpstreamOnChain(fmt.Sprintf("cannot resolve %s %s", desc.Kind, address), err))
			case errors.Is(err, storage.ErrUnreachable):
				writeError(w, apperr.UpstreamOffChain(fmt.Sprintf("cannot resolve %s %s", desc.Kind, address), err))
			default:
				writeError(w, apperr.UpstreamOffChain(fmt.Sprintf("cannot get data for %s %s", desc.Kind, address), err))
			}
			return
		}

		if desc.RequireGuarantee && h.opts.Verifier.Enabled() &&
			!h.opts.Verifier.PassesTrustworthinessTest(address, rec["guarantee"]) {
			writeError(w, apperr.NotFound(fmt.Sprintf("no %s with address %s", desc.Kind, address)))
			return
		}

		doc, err := h.schemas.Load(h.opts.SchemaPath, desc.SchemaModel, sel.Mapped, desc.ReverseRename)
		if err != nil {
			writeError(w, err)
			return
		}
		verr := schema.Validate(schema.ValidateInput{
			Data:            rec,
			ModelName:       desc.SchemaModel,
			Document:        doc,
			DesiredVersions: h.opts.DataFormatVersions,
			TypeLabel:       desc.Kind,
			IDOnly:          sel.OnlyID(desc.Fields),
		})
		if verr != nil {
			var sverr *schema.ValidationError
			if errors.As(verr, &sverr) && sverr.Warning() {
				w.Header().Set(validationWarningHeader, sverr.Error())
			} else {
				writeError(w, apperr.DataInvalid(verr.Error(), verr))
				return
			}
		}

		writeJSON(w, http.StatusOK, kind.Resolver.Finalize(rec, sel))
	}
}

// dataURIs exposes the record's raw storage-pointer refs so integrators can
// fetch documents themselves.
func (h *handler) dataURIs(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		desc := kind.Resolver.Descriptor()
		address := mux.Vars(r)["address"]

		if err := ledger.CheckAddress(address); err != nil {
			writeError(w, apperr.AddressChecksum(err.Error()))
			return
		}
		handle, err := kind.Directory.Get(ctx, address)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				writeError(w, apperr.NotFound(fmt.Sprintf("no %s with address %s", desc.Kind, address)))
				return
			}
			writeError(w, apperr.UpstreamOnChain(fmt.Sprintf("cannot look up %s %s", desc.Kind, address), err))
			return
		}

		// Depth 0 fetches the root document but follows no pointers.
		ptr, err := handle.ResolveDataTree(ctx, nil, 0)
		if err != nil {
			writeError(w, apperr.UpstreamOffChain(fmt.Sprintf("cannot fetch data index of %s %s", desc.Kind, address), err))
			return
		}

		refs := map[string]string{}
		for key, val := range ptr.Contents {
			if p, ok := val.(*storage.Pointer); ok {
				refs[key] = p.Ref
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      address,
			"dataUri": ptr.Ref,
			"refs":    refs,
		})
	}
}

func addressOf(rec map[string]any) string {
	id, _ := rec["id"].(string)
	return id
}
