package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ome-tiles/server/internal/data/repo"
	"github.com/ome-tiles/server/internal/data/table"
	"github.com/ome-tiles/server/internal/render"
	"github.com/ome-tiles/server/internal/service"
	"github.com/ome-tiles/server/internal/zarr"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, zarr.ErrLevelOutOfRange),
		errors.Is(err, zarr.ErrChunkCoordinateOutOfRange),
		errors.Is(err, repo.ErrImageNotFound),
		errors.Is(err, table.ErrTableNotFound),
		errors.Is(err, table.ErrColumnNotFound),
		errors.Is(err, render.ErrPlaneOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidColumn):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError translates err into a JSON error response. Server errors are
// logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", r.Method, r.URL.Path, err)
		msg = "internal server error"
	}
	writeStatus(w, status, msg)
}

func writeStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg, Status: status})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
