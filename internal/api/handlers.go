// internal/api/handlers.go
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"time"

	commonerrors "weather-notify/internal/common/errors"
	"weather-notify/internal/common/logger"
	"weather-notify/internal/fanout"
	"weather-notify/internal/store"
	"weather-notify/internal/weather"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

var validate = validator.New()

// Store is the slice of the token/location store the HTTP surface needs.
type Store interface {
	SaveLocation(ctx context.Context, fid int64, rec store.LocationRecord) error
	SaveToken(ctx context.Context, fid int64, rec store.NotificationRecord) error
	DeleteToken(ctx context.Context, fid int64) error
	QueueMorning(ctx context.Context, item store.QueueItem) error
	PeekQueued(ctx context.Context, n int) ([]store.QueueItem, error)
	TrimQueued(ctx context.Context, n int) error
}

// Runner triggers one fan-out pass.
type Runner interface {
	Run(ctx context.Context) (fanout.Report, error)
}

// Geocoder resolves a searched city name to coordinates.
type Geocoder interface {
	GeocodeCity(ctx context.Context, query string) (weather.Place, error)
}

// Handler owns the HTTP surface: recipient registration, mini-app lifecycle
// webhook, morning-queue intake and the scheduler-authorized fan-out trigger.
type Handler struct {
	store    Store
	geocoder Geocoder
	runner   Runner
	cronKey  string
	logger   logger.Logger
}

func NewHandler(st Store, geocoder Geocoder, runner Runner, cronKey string, log logger.Logger) *Handler {
	return &Handler{
		store:    st,
		geocoder: geocoder,
		runner:   runner,
		cronKey:  cronKey,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// NewApp builds the Fiber app with the shared middleware and error handler.
func NewApp(appName string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      appName,
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	return app
}

// Register wires the handlers into the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/healthz", h.health)

	v1 := app.Group("/api/v1")
	v1.Post("/locations", h.registerLocation)
	v1.Post("/webhook", h.webhook)
	v1.Post("/queue/morning", h.queueMorning)
	v1.Get("/queue/morning", h.peekMorningQueue)
	v1.Delete("/queue/morning", h.trimMorningQueue)
	v1.Post("/notifications/run", h.runNotifications)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
}

func (h *Handler) registerLocation(c *fiber.Ctx) error {
	var req registerLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	lat, lon, label := req.Latitude, req.Longitude, req.Label
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		// Explicit coordinates win over a city name.
	case req.City != "":
		place, err := h.geocoder.GeocodeCity(c.Context(), req.City)
		if err != nil {
			if commonerrors.HasCode(err, commonerrors.ErrCodeCityNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "city not found")
			}
			h.logger.Error("geocoding failed", map[string]interface{}{"city": req.City, "error": err.Error()})
			return fiber.NewError(fiber.StatusBadGateway, "geocoding failed")
		}
		lat, lon = &place.Latitude, &place.Longitude
		if label == "" {
			label = place.Name
		}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "either latitude and longitude or city is required")
	}

	rec := store.LocationRecord{
		Latitude:  lat,
		Longitude: lon,
		Label:     label,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.store.SaveLocation(c.Context(), req.FID, rec); err != nil {
		h.logger.Error("location save failed", map[string]interface{}{"fid": req.FID, "error": err.Error()})
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save location")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"fid": req.FID})
}

// webhook handles mini-app lifecycle events. It always 200-acks once the
// payload parses: the provider retries non-2xx responses, and replaying a
// save or delete is harmless since both are idempotent.
func (h *Handler) webhook(c *fiber.Ctx) error {
	body := c.Body()
	if err := validateWebhookPayload(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}

	switch event.Event {
	case "miniapp_added", "notifications_enabled":
		if event.NotificationDetails == nil {
			// Added without notifications enabled; nothing to store yet.
			break
		}
		rec := store.NotificationRecord{
			Token:     event.NotificationDetails.Token,
			URL:       event.NotificationDetails.URL,
			UpdatedAt: time.Now().UTC(),
		}
		if err := h.store.SaveToken(c.Context(), event.FID, rec); err != nil {
			h.logger.Error("token save failed", map[string]interface{}{"fid": event.FID, "error": err.Error()})
		}
	case "miniapp_removed", "notifications_disabled":
		if err := h.store.DeleteToken(c.Context(), event.FID); err != nil {
			h.logger.Error("token delete failed", map[string]interface{}{"fid": event.FID, "error": err.Error()})
		}
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *Handler) queueMorning(c *fiber.Ctx) error {
	var req queueMorningRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	item := store.QueueItem{
		FID:       req.FID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Label:     req.Label,
	}
	if err := h.store.QueueMorning(c.Context(), item); err != nil {
		h.logger.Error("morning enqueue failed", map[string]interface{}{"fid": req.FID, "error": err.Error()})
		return fiber.NewError(fiber.StatusInternalServerError, "failed to enqueue")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": true})
}

// peekMorningQueue returns the next batch of queued items without consuming
// them; the caller trims once it has processed them.
func (h *Handler) peekMorningQueue(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", fanout.DefaultBatchLimit)
	if limit <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
	}

	items, err := h.store.PeekQueued(c.Context(), limit)
	if err != nil {
		h.logger.Error("morning queue peek failed", map[string]interface{}{"error": err.Error()})
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read queue")
	}

	return c.JSON(fiber.Map{"items": items, "count": len(items)})
}

func (h *Handler) trimMorningQueue(c *fiber.Ctx) error {
	n := c.QueryInt("n", 0)
	if n <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "n must be positive")
	}

	if err := h.store.TrimQueued(c.Context(), n); err != nil {
		h.logger.Error("morning queue trim failed", map[string]interface{}{"error": err.Error()})
		return fiber.NewError(fiber.StatusInternalServerError, "failed to trim queue")
	}

	return c.JSON(fiber.Map{"trimmed": n})
}

// runNotifications is the fan-out trigger. Only the scheduler (or an operator
// holding the cron key) may call it; an unauthorized call is rejected before
// any store or provider access.
func (h *Handler) runNotifications(c *fiber.Ctx) error {
	provided := c.Get("X-Cron-Key")
	if h.cronKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.cronKey)) != 1 {
		h.logger.Warn("unauthorized fan-out trigger", map[string]interface{}{"ip": c.IP()})
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	report, err := h.runner.Run(c.Context())
	if err != nil {
		h.logger.Error("fan-out run failed", map[string]interface{}{"error": err.Error()})
		return fiber.NewError(fiber.StatusInternalServerError, "fan-out run failed")
	}

	return c.JSON(report)
}
