package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/form"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/manifest"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/presentation/controllers/dtos"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/services"
	"github.com/atviriduomenys/katalogas-sub000/pkg/application"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
	"github.com/atviriduomenys/katalogas-sub000/pkg/constants"
	"github.com/atviriduomenys/katalogas-sub000/pkg/httpapi"
	"github.com/atviriduomenys/katalogas-sub000/pkg/middleware"
)

const defaultMaxUploadSize = 32 << 20

var queryDecoder = form.NewDecoder()

type StructureController struct {
	structures    *services.StructureService
	versions      *services.VersionService
	apiPrefix     string
	maxUploadSize int64
	importLimit   mux.MiddlewareFunc
}

type ControllerOptions struct {
	MaxUploadSize int64
	// ImportsPerMinute caps uploads per client address. Zero disables the cap.
	ImportsPerMinute int
}

func NewStructureController(app application.Application, opts ControllerOptions) application.Controller {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUploadSize
	}
	return &StructureController{
		structures:    app.Service(services.StructureService{}).(*services.StructureService),
		versions:      app.Service(services.VersionService{}).(*services.VersionService),
		apiPrefix:     "/api",
		maxUploadSize: opts.MaxUploadSize,
		importLimit: middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: opts.ImportsPerMinute,
			Period:            time.Minute,
			KeyFunc:           middleware.EndpointKeyFunc("structure.import"),
		}),
	}
}

func (c *StructureController) Key() string {
	return c.apiPrefix + "/datasets"
}

func (c *StructureController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/datasets", c.CreateDataset).Methods(http.MethodPost)
	api.Handle("/datasets/{id:[0-9]+}/structure", c.importLimit(http.HandlerFunc(c.Import))).Methods(http.MethodPost)
	api.HandleFunc("/datasets/{id:[0-9]+}/structure.{format:csv|xlsx}", c.Export).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id:[0-9]+}/comments", c.Comments).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id:[0-9]+}/versions", c.CreateVersion).Methods(http.MethodPost)
	api.HandleFunc("/datasets/{id:[0-9]+}/versions", c.ListVersions).Methods(http.MethodGet)
}

func (c *StructureController) CreateDataset(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreateDatasetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ds, err := c.structures.CreateDataset(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.DatasetOf(ds))
}

// Import accepts the manifest as a multipart `file` field or as the raw body.
func (c *StructureController) Import(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadSize)
	content, filename, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIError(w, r, http.StatusRequestEntityTooLarge, "STRUCTURE_TOO_LARGE", fmt.Sprintf("manifest is larger than %d bytes", c.maxUploadSize))
			return
		}
		writeAPIError(w, r, http.StatusBadRequest, "STRUCTURE_INVALID_UPLOAD", err.Error())
		return
	}
	res, err := c.structures.Import(r.Context(), services.ImportInput{
		DatasetID: id,
		Filename:  filename,
		Format:    r.URL.Query().Get("format"),
		Content:   content,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func readUpload(r *http.Request) ([]byte, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		return content, header.Filename, err
	}
	content, err := io.ReadAll(r.Body)
	return content, r.URL.Query().Get("filename"), err
}

func (c *StructureController) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}
	format, _ := manifest.ParseFormat(mux.Vars(r)["format"])
	data, err := c.structures.Export(r.Context(), id, format)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("dataset-%d.%s", id, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (c *StructureController) Comments(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}
	var q dtos.CommentsQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "STRUCTURE_INVALID_QUERY", "object_id must be an integer")
		return
	}
	if err := constants.Validate.Struct(q); err != nil {
		writeServiceError(w, r, err)
		return
	}

	owner := structure.Owner{Kind: structure.Kind(q.Kind), ID: q.ObjectID}
	if q.Kind == "" {
		st, err := c.structures.StructureFile(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		owner = st.Owner()
	}
	comments, err := c.structures.Comments(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.CommentsOf(comments))
}

func (c *StructureController) CreateVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}
	var req dtos.CreateVersionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, frozen, err := c.versions.Create(r.Context(), services.CreateVersionInput{
		DatasetID:   id,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.VersionOf(v, frozen))
}

func (c *StructureController) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}
	versions, err := c.versions.Versions(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]dtos.Version, 0, len(versions))
	for _, v := range versions {
		out = append(out, dtos.VersionOf(v, 0))
	}
	writeJSON(w, http.StatusOK, out)
}

func datasetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeAPIError(w, r, http.StatusBadRequest, "STRUCTURE_INVALID_ID", "dataset id is invalid")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "STRUCTURE_INVALID_BODY", "request body is not valid JSON")
		return false
	}
	if err := constants.Validate.Struct(dst); err != nil {
		writeServiceError(w, r, err)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Translate(constants.Translator))
		}
		writeAPIError(w, r, http.StatusBadRequest, "STRUCTURE_INVALID_REQUEST", strings.Join(fields, "; "))
	case errors.Is(err, structure.ErrNotFound):
		writeAPIError(w, r, http.StatusNotFound, "STRUCTURE_NOT_FOUND", err.Error())
	case errors.Is(err, structure.ErrUnsupportedFormat):
		writeAPIError(w, r, http.StatusUnsupportedMediaType, "STRUCTURE_UNSUPPORTED_FORMAT", err.Error())
	case errors.Is(err, structure.ErrStrictImport):
		writeAPIError(w, r, http.StatusUnprocessableEntity, "STRUCTURE_MANIFEST_ERRORS", err.Error())
	case errors.Is(err, structure.ErrNoDrafts):
		writeAPIError(w, r, http.StatusConflict, "STRUCTURE_NO_DRAFTS", err.Error())
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("structure request failed")
		writeAPIError(w, r, http.StatusInternalServerError, "STRUCTURE_INTERNAL", "internal error")
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	_ = httpapi.WriteRequestError(w, r, status, code, message, nil)
}

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
