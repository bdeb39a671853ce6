package conflict

import (
	"errors"
	"strconv"

	"github.com/Centroplan-france/vcom-yuman-sync/core/logger"
	"github.com/Centroplan-france/vcom-yuman-sync/core/mapping"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ResolveRequest is the body of POST /conflicts/:id/resolve.
type ResolveRequest struct {
	Resolution mapping.Resolution `json:"resolution" example:"keep_stored"`
}

// Handler handles HTTP requests for the conflict log.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the conflict routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/conflicts")
	group.Get("/", h.HandleList)
	group.Get("/:id", h.HandleGet)
	group.Post("/:id/resolve", h.HandleResolve)
}

// HandleList lists conflicts.
// @Summary List Conflicts
// @Description Lists recorded conflicts, newest first.
// @Tags conflicts
// @Produce json
// @Param entity_type query string false "Entity type (site, equipment, ticket, workorder)"
// @Param resolved query boolean false "Filter on resolution state"
// @Param limit query int false "Page size (default 50, max 500)"
// @Param offset query int false "Page offset"
// @Success 200 {object} Page "Conflicts"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /conflicts [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var resolved *bool
	if raw := c.Query("resolved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "resolved must be a boolean"})
		}
		resolved = &v
	}

	page, err := h.service.List(c.Context(), c.Query("entity_type"), resolved, c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		l.Error("Failed to list conflicts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(page)
}

// HandleGet returns one conflict.
// @Summary Get Conflict
// @Tags conflicts
// @Produce json
// @Param id path int true "Conflict ID"
// @Success 200 {object} mapping.ConflictRecord "Conflict"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /conflicts/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rec, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(rec)
}

// HandleResolve settles a conflict.
// @Summary Resolve Conflict
// @Description keep_stored keeps the stored value and silences the conflict; apply_incoming writes the incoming value to the mapping row.
// @Tags conflicts
// @Accept json
// @Produce json
// @Param id path int true "Conflict ID"
// @Param body body ResolveRequest true "Resolution"
// @Success 200 {object} mapping.ConflictRecord "Resolved conflict"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Already resolved"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /conflicts/{id}/resolve [post]
func (h *Handler) HandleResolve(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var req ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	rec, err := h.service.Resolve(c.Context(), id, req.Resolution)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(rec)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, mapping.ErrConflictNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, mapping.ErrConflictResolved):
		status = fiber.StatusConflict
	case errors.Is(err, mapping.ErrInvalidResolution), errors.Is(err, mapping.ErrFieldNotWritable):
		status = fiber.StatusBadRequest
	default:
		logger.WithRayID(h.service.logger, c).Error("Conflict request failed", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid conflict id")
	}
	return uint(id), nil
}
