// Package web serves express apps over HTTP.
//
// Every request runs the app for a fresh session. Besides the page itself,
// the server exposes the data frames an app outputs in the Frame JSON format,
// and accepts cell edits to them, which are kept in a patch store and applied
// whenever the app runs again.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"

	"github.com/elves/elvx/pkg/express"
	"github.com/elves/elvx/pkg/htm"
	"github.com/elves/elvx/pkg/logutil"
	"github.com/elves/elvx/pkg/session"
	"github.com/elves/elvx/pkg/store"
	"github.com/elves/elvx/pkg/tbl"
)

var logger = logutil.GetLogger("[web] ")

const maxPatchBodySize = 1 << 20

// PatchStore keeps cell patches. It is implemented by *store.Store.
type PatchStore interface {
	AddPatches(output string, patches []tbl.CellPatch) (int, error)
	PatchesWithSeq(output string, from, upto int) ([]store.Patch, error)
	DelPatch(output string, seq int) error
	ClearPatches(output string) error
	Outputs() ([]string, error)
}

// Server is the HTTP handler of an express app.
type Server struct {
	app     *express.App
	store   PatchStore
	metrics *metrics
	handler http.Handler
}

// NewServer creates a Server for app. If st is nil, cell edits are rejected.
// If allowedOrigins is not empty, cross-origin requests from those origins
// are allowed.
func NewServer(app *express.App, st PatchStore, allowedOrigins []string) *Server {
	s := &Server{app: app, store: st, metrics: newMetrics()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.metrics.count("page", s.handleMainPage))
	mux.HandleFunc("GET /frames/{id}", s.metrics.count("frame", s.handleFrame))
	mux.HandleFunc("POST /frames/{id}/patches", s.metrics.count("patches", s.handlePatches))
	mux.HandleFunc("GET /frames/{id}/patches", s.metrics.count("patch-log", s.handlePatchLog))
	mux.HandleFunc("DELETE /frames/{id}/patches", s.metrics.count("clear-patches", s.handleClearPatches))
	mux.HandleFunc("DELETE /frames/{id}/patches/{seq}", s.metrics.count("delete-patch", s.handleDeletePatch))
	mux.HandleFunc("GET /patches", s.metrics.count("patched-outputs", s.handlePatchedOutputs))
	mux.Handle("GET /metrics", s.metrics.handler())

	s.handler = mux
	if len(allowedOrigins) > 0 {
		s.handler = cors.New(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler(mux)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Runs the app for a new session.
func (s *Server) run(ctx context.Context) (context.Context, htm.Node, error) {
	start := time.Now()
	sess := session.New()
	ctx = session.NewContext(ctx, sess)
	ui, err := s.app.Server(ctx)
	s.metrics.runs.Observe(time.Since(start).Seconds())
	logger.Printf("session %s: ran app in %v", sess.ID, time.Since(start))
	return ctx, ui, err
}

func (s *Server) handleMainPage(w http.ResponseWriter, r *http.Request) {
	_, ui, err := s.run(r.Context())
	if err != nil {
		http.Error(w, "error running app", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = io.WriteString(w, htm.RenderDocument(ui))
	if err != nil {
		logger.Println("cannot write response:", err)
	}
}

// errNoOutput is returned when the app has no frame output with the
// requested ID.
var errNoOutput = errors.New("no such frame output")

// Runs the app and returns the frame output with the ID in the request path,
// along with the context of the session. It writes an error response when it
// fails.
func (s *Server) frameOutput(w http.ResponseWriter, r *http.Request) (context.Context, tbl.Frame, bool) {
	id := r.PathValue("id")
	ctx, _, err := s.run(r.Context())
	if err != nil {
		http.Error(w, "error running app", http.StatusInternalServerError)
		return nil, nil, false
	}
	sess, _ := session.FromContext(ctx)
	v, ok := sess.Output(id)
	if !ok {
		http.Error(w, fmt.Sprintf("%v: %s", errNoOutput, id), http.StatusNotFound)
		return nil, nil, false
	}
	f, err := tbl.AsFrame(v)
	if err != nil {
		logger.Printf("output %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, nil, false
	}
	return ctx, f, true
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	ctx, f, ok := s.frameOutput(w, r)
	if !ok {
		return
	}
	s.writeFrame(ctx, w, f)
}

func (s *Server) handlePatches(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPatchBodySize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	patches, err := tbl.ParsePatches(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx, f, ok := s.frameOutput(w, r)
	if !ok {
		return
	}
	patched, err := tbl.ApplyPatches(f, patches)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	if _, err := s.store.AddPatches(id, patches); err != nil {
		s.storeError(w, err)
		return
	}
	s.metrics.patches.Add(float64(len(patches)))
	logger.Printf("stored %d patches to %s", len(patches), id)
	s.writeFrame(ctx, w, patched)
}

type patchEntry struct {
	Seq int `json:"seq"`
	tbl.CellPatch
}

func (s *Server) handlePatchLog(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	entries, err := s.store.PatchesWithSeq(r.PathValue("id"), 0, -1)
	if err != nil {
		s.storeError(w, err)
		return
	}
	log := make([]patchEntry, len(entries))
	for i, e := range entries {
		log[i] = patchEntry{e.Seq, e.CellPatch}
	}
	writeJSON(w, log)
}

func (s *Server) handleClearPatches(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.store.ClearPatches(r.PathValue("id")); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	seq, err := strconv.Atoi(r.PathValue("seq"))
	if err != nil {
		http.Error(w, "bad sequence number", http.StatusBadRequest)
		return
	}
	err = s.store.DelPatch(r.PathValue("id"), seq)
	if errors.Is(err, store.ErrNoMatchingPatch) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	} else if err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePatchedOutputs(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	outputs, err := s.store.Outputs()
	if err != nil {
		s.storeError(w, err)
		return
	}
	if outputs == nil {
		outputs = []string{}
	}
	writeJSON(w, outputs)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		http.Error(w, "editing is disabled", http.StatusForbidden)
		return false
	}
	return true
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	logger.Println("store error:", err)
	http.Error(w, "store error", http.StatusInternalServerError)
}

func (s *Server) writeFrame(ctx context.Context, w http.ResponseWriter, f tbl.Frame) {
	j, err := tbl.Serialize(ctx, f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, j)
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Println("cannot marshal response body:", err)
		http.Error(w, "cannot marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		logger.Println("cannot write response:", err)
	}
}
