package report

import (
	"errors"
	"net/url"

	"github.com/Centroplan-france/vcom-yuman-sync/core/logger"
	"github.com/Centroplan-france/vcom-yuman-sync/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for archived reports.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the report routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/reports")
	group.Get("/", h.HandleList)
	group.Get("/*", h.HandleGet)
}

// HandleList lists archived reports.
// @Summary List Run Reports
// @Description Lists archived sync run reports, newest first.
// @Tags reports
// @Produce json
// @Param limit query int false "Maximum number of reports (default 20)"
// @Success 200 {array} storage.ObjectEntry "Reports"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /reports [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	entries, err := h.service.List(c.Context(), c.QueryInt("limit", 0))
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Failed to list reports", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(entries)
}

// HandleGet returns one archived report.
// @Summary Get Run Report
// @Tags reports
// @Produce json
// @Param key path string true "Object key"
// @Success 200 {object} map[string]interface{} "Report"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /reports/{key} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("*"))
	if err != nil || key == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report not found"})
	}

	body, err := h.service.Get(c.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report not found"})
		}
		logger.WithRayID(h.service.logger, c).Error("Failed to load report", zap.String("key", key), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}
