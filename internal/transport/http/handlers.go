package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/dayof/internal/config"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/engine"
	"example.com/dayof/internal/logging"
	"example.com/dayof/internal/metrics"
	"example.com/dayof/internal/telegram"
	"example.com/dayof/internal/valentine"
)

// Dispatcher routes chat updates and reports event summaries.
type Dispatcher interface {
	Handle(ctx context.Context, u domain.Update) error
	Summary(ctx context.Context, event string) (engine.Summary, error)
}

// Cards is the web card API of the valentine exchange.
type Cards interface {
	Create(ctx context.Context, text string, style int) (*engine.Item, error)
	Cards(ctx context.Context, ids []int64) ([]valentine.Card, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type ServerDeps struct {
	Cfg        config.Config
	Dispatcher Dispatcher
	Cards      Cards
	Store      Pinger
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Log        logging.Logger
	Now        func() time.Time
}

func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (d *ServerDeps) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := d.Store.Ping(r.Context()); err != nil {
		WriteProblem(w, http.StatusServiceUnavailable, "not ready", "store not reachable", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// --- Webhook ---

// HandleWebhook accepts one update. Handler failures are logged, not
// returned: a non-2xx makes the platform redeliver the whole update.
func (d *ServerDeps) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid body", err.Error(), nil)
		return
	}
	u, err := telegram.DecodeUpdate(raw)
	switch {
	case errors.Is(err, telegram.ErrUnsupportedUpdate):
		w.WriteHeader(http.StatusOK)
		return
	case err != nil:
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}
	// the platform may hang up early; the update is ours now
	if err := d.Dispatcher.Handle(context.WithoutCancel(r.Context()), u); err != nil {
		d.Log.WithError(err).WithField("update_id", u.ID).Warn("update failed")
	}
	w.WriteHeader(http.StatusOK)
}

// --- Valentine cards ---

type createCardReq struct {
	Text  string `json:"text"`
	Style int    `json:"style"`
}

func (d *ServerDeps) HandleCreateCard(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	var req createCardReq
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}
	it, err := d.Cards.Create(r.Context(), req.Text, req.Style)
	if err != nil {
		d.cardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"card_id": it.ID})
}

func (d *ServerDeps) cardError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var de *domain.DeliveryError
	switch {
	case errors.As(err, &ve):
		errs := map[string][]string{"text": {string(ve.Reason)}}
		WriteProblem(w, http.StatusUnprocessableEntity, "validation failed", ve.Detail, errs)
	case errors.Is(err, valentine.ErrInactive):
		WriteProblem(w, http.StatusConflict, "event closed", "cards are accepted on the event day only", nil)
	case errors.As(err, &de):
		WriteProblem(w, http.StatusBadGateway, "delivery failed", "chat platform did not accept the card", nil)
	default:
		d.Log.WithError(err).Error("create card")
		WriteProblem(w, http.StatusInternalServerError, "internal error", "", nil)
	}
}

func (d *ServerDeps) HandleGetCards(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	for _, s := range strings.Split(r.URL.Query().Get("ids"), ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			WriteProblem(w, http.StatusBadRequest, "invalid parameters", "ids must be comma separated integers", nil)
			return
		}
		ids = append(ids, id)
	}
	cards, err := d.Cards.Cards(r.Context(), ids)
	if err != nil {
		d.Log.WithError(err).Error("load cards")
		WriteProblem(w, http.StatusInternalServerError, "query error", "", nil)
		return
	}
	if cards == nil {
		cards = []valentine.Card{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

// --- Stats ---

type statsResp struct {
	Event    string           `json:"event"`
	Counters map[string]int64 `json:"counters"`
	Sets     map[string]int64 `json:"sets"`
	At       time.Time        `json:"at"`
}

func (d *ServerDeps) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	event := r.PathValue("event")
	sum, err := d.Dispatcher.Summary(r.Context(), event)
	switch {
	case domain.IsNotFound(err):
		WriteProblem(w, http.StatusNotFound, "unknown event", event, nil)
		return
	case err != nil:
		WriteProblem(w, http.StatusInternalServerError, "query error", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, statsResp{Event: event, Counters: sum.Counters, Sets: sum.Sets, At: d.Now().UTC()})
}

// --- Router ---

func (d *ServerDeps) Router() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, name string, h http.Handler) {
		mux.Handle(pattern, Instrument(d.Metrics, name)(h))
	}
	route("GET /healthz", "healthz", http.HandlerFunc(d.HandleHealthz))
	route("GET /readyz", "readyz", http.HandlerFunc(d.HandleReadyz))
	route("GET /metrics", "metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	var webhook http.Handler = http.HandlerFunc(d.HandleWebhook)
	webhook = BodyLimit(d.Cfg.MaxBodyBytes)(webhook)
	webhook = WebhookSecret(d.Cfg.WebhookSecret)(webhook)
	route("POST /webhook", "webhook", webhook)

	var createCard http.Handler = http.HandlerFunc(d.HandleCreateCard)
	createCard = BodyLimit(d.Cfg.MaxBodyBytes)(createCard)
	createCard = RequireJSON(createCard)
	createCard = APIKeyAuth(d.Cfg.APIKeys)(createCard)
	route("POST /valentine/cards", "cards", createCard)

	var getCards http.Handler = http.HandlerFunc(d.HandleGetCards)
	getCards = APIKeyAuth(d.Cfg.APIKeys)(getCards)
	route("GET /valentine/cards", "cards", getCards)

	var getStats http.Handler = http.HandlerFunc(d.HandleGetStats)
	getStats = RateLimitPerMinute(d.Cfg.RateLimitStatsPerMin, d.Now)(getStats)
	getStats = APIKeyAuth(d.Cfg.APIKeys)(getStats)
	route("GET /stats/{event}", "stats", getStats)

	return RequestID(mux)
}
