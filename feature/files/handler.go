package files

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"sniffstore/core/detect"
	"sniffstore/core/logger"
	"sniffstore/core/reconcile"
	"sniffstore/core/storage"
	"sniffstore/core/utils"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// metaHeaderPrefix marks request headers stored as object metadata.
const metaHeaderPrefix = "X-Meta-"

// Handler handles HTTP requests for files.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the files routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Post("/detect", h.HandleDetect)

	app.Get("/files", h.HandleList)
	app.Post("/files", h.HandleCreate)
	// HEAD first: fiber mounts GET handlers on HEAD as well.
	app.Head("/files/*", h.HandleHead)
	app.Get("/files/*", h.HandleGet)
	app.Put("/files/*", h.HandlePut)
	app.Delete("/files/*", h.HandleDelete)

	app.Get("/stat/*", h.HandleStat)
	app.Get("/acl/*", h.HandleGetACL)
	app.Put("/acl/*", h.HandlePutACL)
	app.Post("/share/*", h.HandleShare)
	app.Get("/url/*", h.HandleURL)

	app.Get("/uploads", h.HandleRecent)
	app.Get("/audit", h.HandleAudit)
	app.Post("/audit/repair", h.HandleRepair)
}

// HandleDetect returns the media type of the request body.
// @Summary Detect content type
// @Tags files
// @Accept octet-stream
// @Produce json
// @Success 200 {object} map[string]any
// @Router /detect [post]
func (h *Handler) HandleDetect(c *fiber.Ctx) error {
	body := c.Body()
	contentType, err := h.service.Detect(detect.Bytes(body))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"content_type": contentType,
		"size":         len(body),
	})
}

// HandleList lists objects under ?prefix=, at most ?max= of them.
// @Summary List files
// @Tags files
// @Produce json
// @Param prefix query string false "Key prefix"
// @Param max query int false "Maximum number of keys"
// @Success 200 {array} storage.ObjectInfo
// @Router /files [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	objects, err := h.service.List(c.Context(), c.Query("prefix"), utils.ToInt(c.Query("max")))
	if err != nil {
		return h.fail(c, err)
	}
	if objects == nil {
		objects = []storage.ObjectInfo{}
	}
	return c.JSON(objects)
}

// HandleCreate uploads the body under a generated key. ?prefix= is prepended
// and the extension of ?name= appended.
// @Summary Upload file with generated key
// @Tags files
// @Accept octet-stream
// @Produce json
// @Success 201 {object} UploadResult
// @Router /files [post]
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	key := c.Query("prefix") + uuid.NewString() + strings.ToLower(path.Ext(c.Query("name")))
	return h.upload(c, key)
}

// HandlePut uploads the body under the key in the path.
// @Summary Upload file
// @Tags files
// @Accept octet-stream
// @Produce json
// @Param acl query string false "Canned ACL"
// @Success 201 {object} UploadResult
// @Failure 400 {object} map[string]string "Invalid key or ACL"
// @Router /files/{key} [put]
func (h *Handler) HandlePut(c *fiber.Ctx) error {
	key, err := objectKey(c)
	if err != nil {
		return h.fail(c, err)
	}
	return h.upload(c, key)
}

func (h *Handler) upload(c *fiber.Ctx, key string) error {
	opts := UploadOptions{ACL: storage.ACL(c.Query("acl"))}
	for name, values := range c.GetReqHeaders() {
		if len(values) == 0 || !strings.HasPrefix(name, metaHeaderPrefix) {
			continue
		}
		if opts.Metadata == nil {
			opts.Metadata = make(map[string]string)
		}
		opts.Metadata[strings.ToLower(strings.TrimPrefix(name, metaHeaderPrefix))] = values[0]
	}

	res, err := h.service.Upload(c.Context(), key, detect.Bytes(c.Body()), opts)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// HandleGet streams an object with its stored content type.
// @Summary Download file
// @Tags files
// @Produce octet-stream
// @Success 200 {file} file
// @Failure 404 {object} map[string]string "Not Found"
// @Router /files/{key} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	key, err := objectKey(c)
	if err != nil {
		return h.fail(c, err)
	}
	info, err := h.service.Stat(c.Context(), key)
	if err != nil {
		return h.fail(c, err)
	}
	rc, err := h.service.Get(c.Context(), key)
	if err != nil {
		return h.fail(c, err)
	}
	setObjectHeaders(c, info)
	return c.SendStream(rc, int(info.Size))
}

// HandleHead returns the object headers without the body.
func (h *Handler) HandleHead(c *fiber.Ctx) error {
	key, err := objectKey(c)
	if err != nil {
		return h.fail(c, err)
	}
	info, err := h.service.Stat(c.Context(), key)
	if err != nil {
		return h.fail(c, err)
	}
	setObjectHeaders(c, info)
	c.Response().Header.SetContentLength(int(info.Size))
	return nil
}

// HandleDelete removes an object.
// @Summary Delete file
// @Tags files
// @Success 204
// @Router /files/{key} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	key, err := objectKey(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.service.Delete(c.Context(), key); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleStat returns object metadata as JSON.
// @Summary File metadata
// @Tags files
// @Produce json
// @Success 200 {object} storage.ObjectInfo
// @Router /stat/{key} [get]
func (h *Handler) HandleStat(c *fiber.Ctx) error {
	key, err := objectKey(c)
	if err != nil {
		return h.fail(c, err)
	}
	info, err := h.service.Stat(c.Context(), key)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(info)
}

// HandleGetACL returns the access control of an object.
// @Summary Get file ACL
// @Tags files
// @Produce json
// @Success 200 {object} storage.ACLInfo
// @Router /acl/{key} [get]
func (h *Handler) HandleGetACL(c *fiber.Ctx) error {
	key, err := objectKey(c)
	if err != nil {
		return h.fail(c, err)
	}
	acl, err := h.service.GetACL(c.Context(), key)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(acl)
}

type putACLRequest struct {
	ACL string `json:"acl"`
}

// HandlePutACL applies the canned ACL given as {"acl": ...} or ?acl=.
// @Summary Set file ACL
// @Tags files
// @Accept json
// @Success 204
// @Router /acl/{key} [put]
func (h *Handler) HandlePutACL(c *fiber.Ctx) error {
	key, err := objectKey(c)
	if err != nil {
		return h.fail(c, err)
	}
	req := putACLRequest{ACL: c.Query("acl")}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}
	if err := h.service.PutACL(c.Context(), key, storage.ACL(req.ACL)); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleShare makes an object public and returns its URL.
// @Summary Share file
// @Tags files
// @Produce json
// @Success 200 {object} map[string]string
// @Router /share/{key} [post]
func (h *Handler) HandleShare(c *fiber.Ctx) error {
	key, err := objectKey(c)
	if err != nil {
		return h.fail(c, err)
	}
	u, err := h.service.Share(c.Context(), key)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"url": u})
}

// HandleURL returns an object URL. ?expires= presigns it and ?download=1
// turns it into an attachment named ?filename=.
// @Summary File URL
// @Tags files
// @Produce json
// @Param expires query string false "Validity, e.g. 3600, 1h or +10 minutes"
// @Param download query bool false "Force download"
// @Success 200 {object} map[string]any
// @Router /url/{key} [get]
func (h *Handler) HandleURL(c *fiber.Ctx) error {
	key, err := objectKey(c)
	if err != nil {
		return h.fail(c, err)
	}
	expires, err := utils.ParseExpiration(c.Query("expires"))
	if err != nil {
		return h.fail(c, err)
	}

	var u string
	if utils.ToBool(c.Query("download")) {
		if expires == 0 {
			expires = DefaultDownloadExpiry
		}
		u, err = h.service.DownloadURL(c.Context(), key, c.Query("filename"), expires)
	} else {
		u, err = h.service.FileURL(c.Context(), key, expires)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"url":        u,
		"expires_in": int(expires.Seconds()),
	})
}

// HandleRecent lists the newest upload records.
// @Summary Recent uploads
// @Tags files
// @Produce json
// @Param limit query int false "Number of records"
// @Success 200 {array} Upload
// @Router /uploads [get]
func (h *Handler) HandleRecent(c *fiber.Ctx) error {
	rows, err := h.service.Recent(c.Context(), utils.ToInt(c.Query("limit")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(rows)
}

// HandleAudit compares the upload ledger with the objects under ?prefix=.
// @Summary Audit upload ledger
// @Tags files
// @Produce json
// @Param prefix query string false "Key prefix"
// @Success 200 {object} reconcile.Plan
// @Router /audit [get]
func (h *Handler) HandleAudit(c *fiber.Ctx) error {
	plan, err := h.service.Audit(c.Context(), c.Query("prefix"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(plan)
}

// HandleRepair applies the audit plan for ?prefix= to the ledger.
// ?dry_run=true only reports what would change.
// @Summary Repair upload ledger
// @Tags files
// @Produce json
// @Param prefix query string false "Key prefix"
// @Param dry_run query bool false "Plan without applying"
// @Success 200 {object} map[string]any
// @Router /audit/repair [post]
func (h *Handler) HandleRepair(c *fiber.Ctx) error {
	opts := reconcile.Options{Confirmed: true, DryRun: utils.ToBool(c.Query("dry_run"))}
	plan, executed, err := h.service.Repair(c.Context(), c.Query("prefix"), opts)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"plan":     plan,
		"executed": executed,
		"dry_run":  opts.DryRun,
	})
}

func objectKey(c *fiber.Ctx) (string, error) {
	key, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return "", ErrInvalidKey
	}
	key = fiberutils.CopyString(key)
	return key, ValidateKey(key)
}

func setObjectHeaders(c *fiber.Ctx, info storage.ObjectInfo) {
	if info.ContentType != "" {
		c.Set(fiber.HeaderContentType, info.ContentType)
	}
	if info.ETag != "" {
		c.Set(fiber.HeaderETag, strconv.Quote(info.ETag))
	}
	if !info.LastModified.IsZero() {
		c.Set(fiber.HeaderLastModified, info.LastModified.UTC().Format(http.TimeFormat))
	}
}

// fail maps service errors onto HTTP status codes.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrBucketNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrInvalidKey), errors.Is(err, storage.ErrInvalidACL), errors.Is(err, utils.ErrInvalidExpiration):
		status = fiber.StatusBadRequest
	case errors.Is(err, storage.ErrAccessDenied):
		status = fiber.StatusForbidden
	case errors.Is(err, storage.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, storage.ErrTimeout):
		status = fiber.StatusGatewayTimeout
	case errors.Is(err, ErrLedgerDisabled):
		status = fiber.StatusNotImplemented
	}

	l := logger.WithRayID(h.logger, c)
	if status >= fiber.StatusInternalServerError {
		l.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		l.Debug("Request rejected", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
