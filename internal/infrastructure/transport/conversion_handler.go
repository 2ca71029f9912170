package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"diagram2code/app/usecase"
	"diagram2code/internal/domain/entity"
	"diagram2code/internal/infrastructure/metrics"
)

const (
	imageField = "image"
	// room for multipart boundaries and headers around the image
	multipartOverhead = 64 << 10
)

type ConversionHandler struct {
	conversions usecase.ConversionUseCase
	deployments usecase.DeploymentUseCase
	events      http.Handler
	logger      *slog.Logger

	maxImageBytes int64
	timeout       time.Duration
}

// NewConversionHandler wires the HTTP API. events serves the websocket stream and may
// be nil; timeout bounds each upload and deploy request when positive.
func NewConversionHandler(
	conversions usecase.ConversionUseCase,
	deployments usecase.DeploymentUseCase,
	events http.Handler,
	logger *slog.Logger,
	maxImageBytes int64,
	timeout time.Duration,
) *ConversionHandler {
	return &ConversionHandler{
		conversions:   conversions,
		deployments:   deployments,
		events:        events,
		logger:        logger,
		maxImageBytes: maxImageBytes,
		timeout:       timeout,
	}
}

// Middleware для метрик
func withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		metrics.ObserveHTTPRequest(r.Method, path, rw.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *ConversionHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/conversions", withMetrics(h.handleConvert)).Methods(http.MethodPost)
	api.HandleFunc("/conversions", withMetrics(h.handleListConversions)).Methods(http.MethodGet)
	api.HandleFunc("/conversions/{id}", withMetrics(h.handleGetConversion)).Methods(http.MethodGet)
	api.HandleFunc("/conversions/{id}", withMetrics(h.handleDeleteConversion)).Methods(http.MethodDelete)
	api.HandleFunc("/conversions/{id}/template", withMetrics(h.handleUpdateTemplate)).Methods(http.MethodPut)
	api.HandleFunc("/conversions/{id}/deployments", withMetrics(h.handleDeployConversion)).Methods(http.MethodPost)
	api.HandleFunc("/conversions/{id}/deployments", withMetrics(h.handleListDeployments)).Methods(http.MethodGet)
	api.HandleFunc("/deployments", withMetrics(h.handleDeployTemplate)).Methods(http.MethodPost)
	api.HandleFunc("/health", withMetrics(h.handleHealth)).Methods(http.MethodGet)
	if h.events != nil {
		// no metrics wrapper: the recorder would hide the Hijacker
		api.Handle("/events", h.events).Methods(http.MethodGet)
	}

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		readErr *entity.ReadError
		infErr  *entity.InferenceError
		provErr *entity.ProvisioningError
	)
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrConversionInProgress):
		return http.StatusConflict
	case errors.Is(err, entity.ErrEmptyTemplate):
		return http.StatusPreconditionFailed
	case errors.As(err, &readErr):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.As(err, &infErr), errors.As(err, &provErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *ConversionHandler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(r.Context(), h.timeout)
	}
	return context.WithCancel(r.Context())
}

type conversionResponse struct {
	*entity.Conversion
	Errors []string `json:"errors,omitempty"`
}

// POST /api/v1/conversions
func (h *ConversionHandler) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxImageBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			err = entity.ErrImageTooLarge
		}
		writeError(w, http.StatusBadRequest, &entity.ReadError{File: imageField, Err: err})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(imageField)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("form field %q: %w", imageField, err))
		return
	}
	defer file.Close()

	ctx, cancel := h.requestContext(r)
	defer cancel()

	c, err := h.conversions.Convert(ctx, entity.UploadedImage{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if c == nil {
		h.logger.Error("conversion failed", "image", header.Filename, "err", err)
		writeError(w, statusFor(err), err)
		return
	}

	resp := conversionResponse{Conversion: c}
	if err != nil {
		resp.Errors = splitErrors(err)
	}
	code := http.StatusCreated
	if c.State != entity.ConversionReady {
		code = statusFor(err)
		h.logger.Warn("conversion did not produce a template", "conversion_id", c.ID, "err", err)
	}
	writeJSON(w, code, resp)
}

// splitErrors flattens an errors.Join result into its messages.
func splitErrors(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// GET /api/v1/conversions
func (h *ConversionHandler) handleListConversions(w http.ResponseWriter, r *http.Request) {
	list, err := h.conversions.List(r.Context())
	if err != nil {
		h.logger.Error("list conversions failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	if list == nil {
		list = []*entity.Conversion{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/conversions/{id}
func (h *ConversionHandler) handleGetConversion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := h.conversions.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DELETE /api/v1/conversions/{id}
func (h *ConversionHandler) handleDeleteConversion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.conversions.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete conversion failed", "id", id, "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type templateReq struct {
	Template string `json:"template"`
}

// PUT /api/v1/conversions/{id}/template
func (h *ConversionHandler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req templateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}

	c, err := h.conversions.UpdateTemplate(r.Context(), id, req.Template)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// POST /api/v1/conversions/{id}/deployments
func (h *ConversionHandler) handleDeployConversion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id := mux.Vars(r)["id"]
	d, err := h.deployments.DeployConversion(ctx, id)
	h.writeDeployment(w, d, err)
}

// POST /api/v1/deployments
func (h *ConversionHandler) handleDeployTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	d, err := h.deployments.DeployTemplate(ctx, req.Template)
	h.writeDeployment(w, d, err)
}

func (h *ConversionHandler) writeDeployment(w http.ResponseWriter, d *entity.Deployment, err error) {
	if err != nil {
		h.logger.Error("deploy failed", "err", err)
		if d == nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, statusFor(err), d)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GET /api/v1/conversions/{id}/deployments
func (h *ConversionHandler) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.conversions.Get(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	list, err := h.deployments.ListDeployments(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if list == nil {
		list = []*entity.Deployment{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/health
func (h *ConversionHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ok": true,
		"ts": time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, status)
}
