package handler

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"invoicegw/internal/invoice"
	"invoicegw/internal/service"
)

// Version reported by the health endpoint.
const Version = "1.0.0"

// sendResult streams a conversion artifact back with its content type and
// the operation's literal download filename.
func sendResult(c *fiber.Ctx, res *service.Result) error {
	c.Set(fiber.HeaderContentType, res.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename))
	return c.Status(fiber.StatusOK).Send(res.Data)
}

// Health reports service status and version; when a job-history database
// is configured its connectivity is checked too.
func Health(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok", "version": Version})
	}
}

// LivenessProbe is a plain liveness check with no dependencies.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Validate checks an invoice document against its business-rule profile.
// The XML report is the body in both outcomes; validity decides the status.
func Validate(svc service.ConvertService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		src, err := requireUpload(c, "source")
		if err != nil {
			return writeClassifiedError(c, err)
		}
		noNotices := parseBool(c.FormValue("noNotices"), false)
		logAppend := c.FormValue("logAppend")

		res, err := svc.Validate(c.UserContext(), src, noNotices, logAppend)
		if err != nil {
			return writeClassifiedError(c, err)
		}

		status := fiber.StatusOK
		if !res.Valid {
			status = fiber.StatusUnprocessableEntity
		}
		c.Set(fiber.HeaderContentType, "application/xml")
		return c.Status(status).SendString(res.ReportXML)
	}
}

// Extract pulls the embedded invoice XML out of a hybrid PDF.
func Extract(svc service.ConvertService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pdf, err := requireUpload(c, "pdf")
		if err != nil {
			return writeClassifiedError(c, err)
		}
		res, err := svc.Extract(c.UserContext(), pdf)
		if err != nil {
			return writeClassifiedError(c, err)
		}
		return sendResult(c, res)
	}
}

// A3Only re-packages a hybrid PDF down to its minimal hybrid variant.
func A3Only(svc service.ConvertService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pdf, err := requireUpload(c, "pdf")
		if err != nil {
			return writeClassifiedError(c, err)
		}
		res, err := svc.A3Only(c.UserContext(), pdf)
		if err != nil {
			return writeClassifiedError(c, err)
		}
		return sendResult(c, res)
	}
}

// Combine embeds invoice XML (plus optional attachments) into a PDF,
// producing the hybrid for the requested format/version/profile.
func Combine(svc service.ConvertService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pdf, err := requireUpload(c, "pdf")
		if err != nil {
			return writeClassifiedError(c, err)
		}
		xml, err := requireUpload(c, "xml")
		if err != nil {
			return writeClassifiedError(c, err)
		}
		version, err := parseInt(c.FormValue("version"), 1)
		if err != nil {
			return writeClassifiedError(c, err)
		}
		attachments, err := readAttachments(c)
		if err != nil {
			return writeClassifiedError(c, err)
		}

		req := invoice.CombineRequest{
			Format:            c.FormValue("format"),
			Version:           version,
			Profile:           c.FormValue("profile"),
			IgnoreInputErrors: parseBool(c.FormValue("ignoreInputErrors"), false),
			Attachments:       attachments,
		}

		res, err := svc.Combine(c.UserContext(), pdf, xml, req)
		if err != nil {
			return writeClassifiedError(c, err)
		}
		return sendResult(c, res)
	}
}

// Visualize renders invoice XML as HTML or PDF for humans.
func Visualize(svc service.ConvertService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		xml, err := requireUpload(c, "xml")
		if err != nil {
			return writeClassifiedError(c, err)
		}
		format := strings.ToLower(strings.TrimSpace(defaultIfBlank(c.FormValue("format"), "html")))
		language := defaultIfBlank(c.FormValue("language"), "en")

		res, err := svc.Visualize(c.UserContext(), xml, format, language)
		if err != nil {
			return writeClassifiedError(c, err)
		}
		return sendResult(c, res)
	}
}

// Upgrade migrates invoice XML from the older schema version to the newer.
func Upgrade(svc service.ConvertService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		xml, err := requireUpload(c, "xml")
		if err != nil {
			return writeClassifiedError(c, err)
		}
		res, err := svc.Upgrade(c.UserContext(), xml)
		if err != nil {
			return writeClassifiedError(c, err)
		}
		return sendResult(c, res)
	}
}

// ToUBL converts CII invoice XML into the UBL schema.
func ToUBL(svc service.ConvertService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		xml, err := requireUpload(c, "xml")
		if err != nil {
			return writeClassifiedError(c, err)
		}
		res, err := svc.ToUBL(c.UserContext(), xml)
		if err != nil {
			return writeClassifiedError(c, err)
		}
		return sendResult(c, res)
	}
}

// ListJobs returns the recent conversion history.
func ListJobs(svc service.ConvertService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := parseInt(c.Query("limit"), 20)
		if err != nil {
			return writeClassifiedError(c, err)
		}
		jobs, err := svc.RecentJobs(c.UserContext(), limit)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, codeInternal, "internal server error")
		}
		return c.JSON(fiber.Map{"data": jobs})
	}
}
