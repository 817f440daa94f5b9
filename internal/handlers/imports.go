package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"era-vendors-api/internal/auth"
	"era-vendors-api/internal/models"
	"era-vendors-api/pkg/importer"

	"go.uber.org/zap"
)

// ImportsHandler handles vendor spreadsheet uploads
type ImportsHandler struct {
	Vendors  importer.VendorWriter
	MaxBytes int64
	Mapping  *importer.Mapping
	Logger   *zap.Logger
	// OnImported is told how many vendors a non-dry-run import created or updated.
	OnImported func(n int)
}

// NewImportsHandler creates a handler that uses the default column mapping
func NewImportsHandler(vendors importer.VendorWriter, logger *zap.Logger) *ImportsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportsHandler{
		Vendors:  vendors,
		MaxBytes: 20 << 20, // 20 MB
		Mapping:  importer.DefaultMapping(),
		Logger:   logger,
	}
}

// UploadExcel imports the vendors of an uploaded .xlsx file
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		http.Error(w, "content-type must be multipart/form-data", http.StatusBadRequest)
		return
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	dryRun := r.FormValue("dry_run") == "true"
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxErrors = n
		}
	}
	mapping := h.Mapping
	if raw := r.FormValue("mapping"); raw != "" {
		m, err := importer.ParseMapping([]byte(raw))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mapping = m
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		http.Error(w, "only .xlsx files are accepted", http.StatusBadRequest)
		return
	}

	actor := auth.Actor(auth.ContextUser{Ctx: r.Context()}, models.DefaultActor)
	sum, impErr := importer.ImportVendors(r.Context(), h.Vendors, file, importer.ImportOptions{
		Mapping:   mapping,
		Actor:     actor,
		DryRun:    dryRun,
		MaxErrors: maxErrors,
	})

	h.Logger.Info("vendor import",
		zap.String("file", header.Filename),
		zap.String("actor", actor),
		zap.Bool("dry_run", dryRun),
		zap.Int("inserted", sum.Inserted),
		zap.Int("updated", sum.Updated),
		zap.Int("errors", sum.Errors),
	)
	if !dryRun && h.OnImported != nil {
		h.OnImported(sum.Inserted + sum.Updated)
	}

	if impErr != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "IMPORT_FAILED",
			"details": impErr.Error(),
			"data":    sum,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// isXLSX checks if the uploaded file is an Excel .xlsx file
func isXLSX(h *multipart.FileHeader) bool {
	return strings.HasSuffix(strings.ToLower(h.Filename), ".xlsx")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
