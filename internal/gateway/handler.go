package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/speedwagon-io/flexlab/internal/config"
	"github.com/speedwagon-io/flexlab/internal/journal"
	"github.com/speedwagon-io/flexlab/internal/lib/logger/sl"
	"github.com/speedwagon-io/flexlab/internal/model"
	"github.com/speedwagon-io/flexlab/internal/telemetry"
	"github.com/speedwagon-io/flexlab/internal/transport"
)

type ExchangeLister interface {
	Recent(ctx context.Context, filter journal.Filter) ([]*model.Exchange, error)
}

// Handler exposes channel reads, writes and batches over HTTP. Requests
// may carry basic auth; otherwise credentials come from the credentials
// file or the OS user.
type Handler struct {
	log     *slog.Logger
	service *telemetry.Service
	lister  ExchangeLister
	timeout time.Duration
}

func NewHandler(log *slog.Logger, service *telemetry.Service, lister ExchangeLister, timeout time.Duration) *Handler {
	return &Handler{
		log:     log,
		service: service,
		lister:  lister,
		timeout: timeout,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/channels/{channel}", h.handleRead)
	r.Put("/channels/{channel}", h.handleWrite)
	r.Post("/batch", h.handleBatch)
	r.Get("/exchanges", h.handleExchanges)

	return r
}

type channelResponse struct {
	Channel   string   `json:"channel"`
	Requested *float64 `json:"requested,omitempty"`
	Value     float64  `json:"value"`
}

type writeRequest struct {
	Value *float64 `json:"value"`
}

type batchResponse struct {
	Values model.Values       `json:"values"`
	Writes []telemetry.Result `json:"writes"`
	Reads  []telemetry.Result `json:"reads"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	channel, err := channelParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	client, err := h.client(r)
	if err != nil {
		h.fail(w, channel, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	value, err := client.Read(ctx, channel)
	if err != nil {
		h.fail(w, channel, err)
		return
	}

	writeJSON(w, http.StatusOK, channelResponse{Channel: channel, Value: value})
}

func (h *Handler) handleWrite(w http.ResponseWriter, r *http.Request) {
	channel, err := channelParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body: "+err.Error()))
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, errors.New("value is required"))
		return
	}

	client, err := h.client(r)
	if err != nil {
		h.fail(w, channel, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	echoed, err := client.Write(ctx, channel, *req.Value)
	if err != nil {
		h.fail(w, channel, err)
		return
	}

	writeJSON(w, http.StatusOK, channelResponse{Channel: channel, Requested: req.Value, Value: echoed})
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req model.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body: "+err.Error()))
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	res, err := h.service.Batch(ctx, req)
	if err != nil {
		h.fail(w, "", err)
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{
		Values: res.Values(),
		Writes: res.Writes,
		Reads:  res.Reads,
	})
}

func (h *Handler) handleExchanges(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		writeError(w, http.StatusNotFound, errors.New("journal is disabled"))
		return
	}

	q := r.URL.Query()
	filter := journal.Filter{
		Channel:    q.Get("channel"),
		FailedOnly: q.Get("failed") == "true",
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		filter.Limit = n
	}

	exchanges, err := h.lister.Recent(r.Context(), filter)
	if err != nil {
		h.log.Error("failed to list exchanges", sl.Err(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if exchanges == nil {
		exchanges = []*model.Exchange{}
	}

	writeJSON(w, http.StatusOK, exchanges)
}

func (h *Handler) client(r *http.Request) (*telemetry.Client, error) {
	user, password, ok := r.BasicAuth()
	if !ok {
		user, password = config.UserPlaceholder, ""
	}
	return h.service.Client(user, password)
}

func (h *Handler) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *Handler) fail(w http.ResponseWriter, channel string, err error) {
	status := statusFor(err)
	h.log.Warn("exchange failed",
		slog.String("channel", channel),
		slog.Int("status", status),
		sl.Err(err),
	)
	writeError(w, status, err)
}

func statusFor(err error) int {
	var (
		mismatch  *model.CountMismatchError
		connErr   *transport.ConnectionError
		execErr   *telemetry.RemoteExecutionError
		malformed *telemetry.MalformedResponseError
		reported  *telemetry.RemoteReportedError
	)

	switch {
	case errors.As(err, &mismatch), errors.Is(err, model.ErrMissingCredentialSlots):
		return http.StatusBadRequest
	case errors.As(err, &connErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &execErr), errors.As(err, &malformed), errors.As(err, &reported):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// channelParam decodes the channel path segment. Channel names may
// contain spaces and other characters that arrive percent-encoded.
func channelParam(r *http.Request) (string, error) {
	channel := chi.URLParam(r, "channel")
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(channel)
		if err != nil {
			return "", errors.New("invalid channel name")
		}
		channel = decoded
	}
	if channel == "" {
		return "", errors.New("channel is required")
	}
	return channel, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
