package integrity

import (
	"sniffstore/core/logger"
	"sniffstore/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/storage", h.HandleStorageCheck)
	group.Get("/ledger", h.HandleLedgerCheck)
	group.Get("/content", h.HandleContentCheck)
}

// HandleIntegrityCheck runs the storage and ledger checks.
// @Summary Run Integrity Checks
// @Description Checks bucket reachability and the upload ledger schema. Content checks read objects and run separately.
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Failure 503 {object} map[string]interface{} "Combined Report with failures"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering integrity checks")

	healthy := true
	report := make(map[string]interface{})

	storageReport := h.service.CheckStorage(c.Context())
	report["storage"] = storageReport
	healthy = healthy && storageReport.OK()

	if ledgerReport, err := h.service.CheckLedger(); err != nil {
		report["ledger"] = map[string]interface{}{"status": "error", "error": err.Error()}
		healthy = false
	} else {
		report["ledger"] = ledgerReport
		healthy = healthy && ledgerReport.OK()
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleStorageCheck pings the bucket.
// @Summary Check Storage
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.StorageReport
// @Failure 503 {object} checks.StorageReport
// @Router /integrity/storage [get]
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	report := h.service.CheckStorage(c.Context())
	if !report.OK() {
		logger.WithRayID(h.service.logger, c).Warn("Storage check failed", zap.String("error", report.Error))
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleLedgerCheck verifies the uploads table.
// @Summary Check Ledger Schema
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.LedgerReport
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/ledger [get]
func (h *Handler) HandleLedgerCheck(c *fiber.Ctx) error {
	report, err := h.service.CheckLedger()
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Ledger check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !report.OK() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleContentCheck re-detects stored objects and optionally rewrites the
// ones stored with the wrong type.
// @Summary Check Content Types
// @Description Reads up to ?max= objects under ?prefix= and compares their stored Content-Type with the detected one.
// @Tags integrity
// @Produce json
// @Param prefix query string false "Key prefix"
// @Param max query int false "Maximum number of objects"
// @Param fix query boolean false "Rewrite mismatched objects"
// @Success 200 {object} map[string]interface{} "Content Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/content [get]
func (h *Handler) HandleContentCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := utils.ToBool(c.Query("fix"))

	report, err := h.service.CheckContent(c.Context(), c.Query("prefix"), utils.ToInt(c.Query("max")))
	if err != nil {
		l.Error("Content check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if len(report.Mismatches) == 0 || !fix {
		return c.JSON(fiber.Map{"report": report, "fixed": 0})
	}

	l.Info("Rewriting objects with mismatched content type", zap.Int("count", len(report.Mismatches)))
	fixed, err := h.service.FixContent(c.Context(), report.Mismatches)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to fix content types",
			"details": err.Error(),
			"report":  report,
			"fixed":   fixed,
		})
	}
	return c.JSON(fiber.Map{"report": report, "fixed": fixed})
}
