package api

import (
	"net/http"
	"strconv"
	"strings"

	repository "github.com/okian/grantfeat/internal/adapters/repository"
)

const defaultLimit = 100

// ApplicationsHandler serves feature rows.
type ApplicationsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewApplicationsHandler creates a new applications handler.
func NewApplicationsHandler(deps Dependencies, maxLimit int) *ApplicationsHandler {
	return &ApplicationsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleList handles GET /applications?offset=N&limit=M[&labelled=true].
func (h *ApplicationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	limit, err := intParam(q.Get("limit"), defaultLimit)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
		return
	}
	labelled, err := boolParam(q.Get("labelled"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	view, total, err := h.deps.View(r.Context(), repository.Query{Offset: offset, Limit: limit, Labelled: labelled})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	resp := pageResponse{Total: total, Offset: offset, Items: make([]applicationResponse, 0, view.Len())}
	for _, row := range view.Rows {
		resp.Items = append(resp.Items, toResponse(view, row))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /applications/{application_id} requests.
func (h *ApplicationsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/applications/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	one, err := h.deps.Lookup(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(one, one.Rows[0]))
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func boolParam(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
