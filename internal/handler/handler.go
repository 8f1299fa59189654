package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/vendussync/internal/gzip"
	"github.com/iurnickita/vendussync/internal/handler/config"
	"github.com/iurnickita/vendussync/internal/lock"
	"github.com/iurnickita/vendussync/internal/logger"
	"github.com/iurnickita/vendussync/internal/model"
	"github.com/iurnickita/vendussync/internal/saft"
	"github.com/iurnickita/vendussync/internal/service"
	"github.com/iurnickita/vendussync/internal/service/vendusclient"
	"github.com/iurnickita/vendussync/internal/vendus"
)

// Serve работает до отмены ctx, затем завершает сервер
func Serve(ctx context.Context, cfg config.Config, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(cfg, service, zaplog)
	router := h.newRouter()

	addr := cfg.ServerAddr
	if addr == "" {
		addr = config.DefaultServerAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zaplog.Info("server started", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type handler struct {
	cfg     config.Config
	service service.Service
	zaplog  *zap.Logger
}

func newHandler(cfg config.Config, service service.Service, zaplog *zap.Logger) *handler {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = config.DefaultMaxUploadSize
	}
	if zaplog == nil {
		zaplog = zap.NewNop()
	}
	return &handler{
		cfg:     cfg,
		service: service,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sync", h.wrap(h.PostSyncAll))
	mux.HandleFunc("POST /api/sync/{entity}", h.wrap(h.PostSync))
	mux.HandleFunc("POST /api/saft/import", h.wrap(h.PostSAFTImport))

	return mux
}

func (h *handler) wrap(fn http.HandlerFunc) http.HandlerFunc {
	return gzip.GzipMiddleware(logger.RequestLogMdlw(fn, h.zaplog, h.cfg.LogBodyLimit))
}

type SyncAllJSONResponse struct {
	Synced map[model.EntityType]int `json:"synced"`
}

func (h *handler) PostSyncAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.SyncAll(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, SyncAllJSONResponse{Synced: summary})
}

type SyncJSONResponse struct {
	Entity model.EntityType `json:"entity"`
	Synced int              `json:"synced"`
}

func (h *handler) PostSync(w http.ResponseWriter, r *http.Request) {
	entity := model.EntityType(r.PathValue("entity"))

	var page service.Page
	var err error
	query := r.URL.Query()
	if page.Page, err = intParam(query.Get("page")); err != nil {
		http.Error(w, "page: "+err.Error(), http.StatusBadRequest)
		return
	}
	if page.PerPage, err = intParam(query.Get("per_page")); err != nil {
		http.Error(w, "per_page: "+err.Error(), http.StatusBadRequest)
		return
	}
	page.Sort = query.Get("sort")

	synced, err := h.service.Sync(r.Context(), entity, page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, SyncJSONResponse{Entity: entity, Synced: synced})
}

func (h *handler) PostSAFTImport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	companyID, err := strconv.ParseInt(query.Get("company"), 10, 64)
	if err != nil || companyID <= 0 {
		http.Error(w, "company is required", http.StatusBadRequest)
		return
	}
	company := model.Company{
		ID:           companyID,
		Country:      strings.ToUpper(query.Get("country")),
		CurrencyCode: strings.ToUpper(query.Get("currency")),
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.ImportSAFT(r.Context(), raw, company)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(responseJSON)
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.zaplog.Error("request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

// statusFor - HTTP-статус для ошибки сервиса
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, saft.ErrMissingFile):
		return http.StatusBadRequest
	case errors.Is(err, saft.ErrMalformedFile),
		errors.Is(err, saft.ErrUnmapped),
		errors.Is(err, saft.ErrUnbalancedMove),
		errors.Is(err, saft.ErrUnsupportedCountry):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vendus.ErrInvalidRecord),
		errors.Is(err, vendusclient.ErrValidation):
		return http.StatusBadGateway
	case errors.Is(err, vendusclient.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vendusclient.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, vendusclient.ErrAuthentication),
		errors.Is(err, vendusclient.ErrServer),
		errors.Is(err, vendusclient.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, lock.ErrLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
