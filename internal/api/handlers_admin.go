package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/terraincognita07/dairyforms/internal/security"
	"github.com/terraincognita07/dairyforms/internal/services"
	"go.uber.org/zap"
)

// adminGuards throttles clients with repeated failures before HTTP Basic auth
// checks the password against the configured bcrypt hash.
func (handler *Handler) adminGuards() []fiber.Handler {
	return []fiber.Handler{
		handler.adminThrottle,
		basicauth.New(basicauth.Config{
			Realm:        "dairyforms admin",
			Authorizer:   handler.authorizeAdmin,
			Unauthorized: handler.adminUnauthorized,
		}),
		handler.adminAuthorized,
	}
}

func (handler *Handler) adminThrottle(c *fiber.Ctx) error {
	if len(handler.adminPasswordHash) == 0 {
		return apiError(c, fiber.StatusServiceUnavailable, "admin access is not configured")
	}
	if handler.adminLimiter.blocked(clientKey(c), handler.now()) {
		return apiError(c, fiber.StatusTooManyRequests, "too many failed login attempts")
	}
	return c.Next()
}

func (handler *Handler) authorizeAdmin(user string, password string) bool {
	if subtle.ConstantTimeCompare([]byte(user), []byte(handler.adminUser)) != 1 {
		return false
	}
	return security.CheckPassword(handler.adminPasswordHash, password)
}

func (handler *Handler) adminUnauthorized(c *fiber.Ctx) error {
	key := clientKey(c)
	handler.adminLimiter.recordFailure(key, handler.now())
	handler.logger.Warn("admin login failed", zap.String("client", key))
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="dairyforms admin"`)
	return apiError(c, fiber.StatusUnauthorized, "unauthorized")
}

func (handler *Handler) adminAuthorized(c *fiber.Ctx) error {
	handler.adminLimiter.reset(clientKey(c))
	return c.Next()
}

func (handler *Handler) AdminSubmissions(c *fiber.Ctx) error {
	workflow, err := handler.workflows.Workflow(c.Params("form"))
	if err != nil {
		return handler.workflowError(c, err)
	}
	table := workflow.Submissions()
	header := table.Header
	if header == nil {
		header = []string{}
	}
	rows := table.Rows
	if rows == nil {
		rows = [][]string{}
	}
	return c.JSON(fiber.Map{
		"form":   workflow.Form().Name,
		"total":  table.Len(),
		"header": header,
		"rows":   rows,
	})
}

func (handler *Handler) AdminSummary(c *fiber.Ctx) error {
	reports, from, to, status, message := handler.reportRequest(c)
	if status != 0 {
		return apiError(c, status, message)
	}
	return c.JSON(reports.BuildSummary(from, to))
}

func (handler *Handler) AdminExportCSV(c *fiber.Ctx) error {
	reports, from, to, status, message := handler.reportRequest(c)
	if status != 0 {
		return apiError(c, status, message)
	}
	content, err := reports.BuildCSV(from, to)
	if err != nil {
		handler.logger.Error("build csv export failed", zap.Error(err))
		return apiError(c, fiber.StatusInternalServerError, "failed to build export")
	}
	setAttachmentHeaders(c, "text/csv", exportFilename(c.Params("form"), handler.now(), "csv"))
	return c.Send(content)
}

func (handler *Handler) AdminExportJSON(c *fiber.Ctx) error {
	reports, from, to, status, message := handler.reportRequest(c)
	if status != 0 {
		return apiError(c, status, message)
	}
	if err := c.JSON(reports.BuildJSON(from, to)); err != nil {
		return err
	}
	setAttachmentHeaders(c, fiber.MIMEApplicationJSON, exportFilename(c.Params("form"), handler.now(), "json"))
	return nil
}

// reportRequest resolves the form's report service and the optional from/to
// query range. A non-zero status means the request must be rejected.
func (handler *Handler) reportRequest(c *fiber.Ctx) (*services.ReportService, *time.Time, *time.Time, int, string) {
	reports, err := handler.workflows.Reports(c.Params("form"))
	if err != nil {
		return nil, nil, nil, fiber.StatusNotFound, err.Error()
	}

	from, to, err := services.ParseReportRange(c.Query("from"), c.Query("to"))
	switch {
	case errors.Is(err, services.ErrReportFromDateInvalid):
		return nil, nil, nil, fiber.StatusBadRequest, "invalid from date"
	case errors.Is(err, services.ErrReportToDateInvalid):
		return nil, nil, nil, fiber.StatusBadRequest, "invalid to date"
	case err != nil:
		return nil, nil, nil, fiber.StatusBadRequest, "invalid range"
	}
	return reports, from, to, 0, ""
}

func exportFilename(form string, now time.Time, extension string) string {
	return fmt.Sprintf("%s-submissions-%s.%s", form, now.Format("2006-01-02"), extension)
}
