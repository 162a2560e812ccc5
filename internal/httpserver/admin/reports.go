package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/opsboard/usage_insights/backend/internal/app"
	"github.com/opsboard/usage_insights/backend/internal/cache"
	"github.com/opsboard/usage_insights/backend/internal/httpserver/httputil"
	"github.com/opsboard/usage_insights/backend/internal/observability"
	"github.com/opsboard/usage_insights/backend/internal/reporting"
)

type reportHandler struct {
	container *app.Container
	service   *reporting.Service
	cache     *cache.ReportCache
	obs       *observability.Provider
}

func registerReportRoutes(router fiber.Router, container *app.Container) {
	handler := &reportHandler{
		container: container,
		service:   container.Reports,
		cache:     container.ReportCache,
		obs:       container.Observability,
	}

	group := router.Group("/reports")
	group.Get("/monthly-series", handler.monthlySeries)
	group.Get("/token-usage", handler.tokenUsage)
	group.Get("/policy-usage", handler.policyUsage)
	group.Get("/users-by", handler.usersBy)
	group.Get("/usage-target", handler.usageTarget)
	group.Get("/available-years", handler.availableYears)
}

func (h *reportHandler) monthlySeries(c *fiber.Ctx) error {
	if h.service == nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "reporting service unavailable")
	}
	fromPtr, toPtr, err := parseRangeParams(c.Query("from"), c.Query("to"))
	if err != nil {
		return httputil.WriteCodedError(c, fiber.StatusBadRequest, httputil.CodeInvalidRange, err.Error())
	}

	return h.serve(c, "monthly-series", func() (any, error) {
		return h.service.MonthlySeries(c.Context(), fromPtr, toPtr)
	})
}

func (h *reportHandler) tokenUsage(c *fiber.Ctx) error {
	if h.service == nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "reporting service unavailable")
	}
	mode := strings.TrimSpace(c.Query("mode"))
	year, err := parseYear(c.Query("year"))
	if err != nil {
		return httputil.WriteCodedError(c, fiber.StatusBadRequest, httputil.CodeInvalidRange, err.Error())
	}

	return h.serve(c, "token-usage", func() (any, error) {
		return h.service.TokenUsage(c.Context(), mode, year)
	})
}

func (h *reportHandler) policyUsage(c *fiber.Ctx) error {
	if h.service == nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "reporting service unavailable")
	}
	preset := strings.TrimSpace(c.Query("range"))
	fromPtr, toPtr, err := parseRangeParams(c.Query("from"), c.Query("to"))
	if err != nil {
		return httputil.WriteCodedError(c, fiber.StatusBadRequest, httputil.CodeInvalidRange, err.Error())
	}

	return h.serve(c, "policy-usage", func() (any, error) {
		return h.service.PolicyUsage(c.Context(), preset, fromPtr, toPtr)
	})
}

func (h *reportHandler) usersBy(c *fiber.Ctx) error {
	if h.service == nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "reporting service unavailable")
	}
	group := strings.ToLower(strings.TrimSpace(c.Query("group")))

	return h.serve(c, "users-by", func() (any, error) {
		return h.service.UsersBy(c.Context(), group)
	})
}

func (h *reportHandler) usageTarget(c *fiber.Ctx) error {
	if h.service == nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "reporting service unavailable")
	}
	preset := strings.TrimSpace(c.Query("range"))
	fromPtr, toPtr, err := parseRangeParams(c.Query("from"), c.Query("to"))
	if err != nil {
		return httputil.WriteCodedError(c, fiber.StatusBadRequest, httputil.CodeInvalidRange, err.Error())
	}

	return h.serve(c, "usage-target", func() (any, error) {
		return h.service.UsageTarget(c.Context(), preset, fromPtr, toPtr)
	})
}

func (h *reportHandler) availableYears(c *fiber.Ctx) error {
	if h.service == nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "reporting service unavailable")
	}

	return h.serve(c, "available-years", func() (any, error) {
		return h.service.AvailableYears(c.Context())
	})
}

// serve runs a report through the cache. The cache key covers the full
// query string so distinct filters never collide; refresh=1 bypasses
// the cached copy but still repopulates it.
func (h *reportHandler) serve(c *fiber.Ctx, report string, build func() (any, error)) error {
	key := cacheKey(c, report)
	refresh := c.Query("refresh") == "1"

	if !refresh {
		if data, ok := h.cache.Get(c.Context(), key); ok {
			h.obs.RecordCacheLookup(report, "hit")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(data)
		}
		h.obs.RecordCacheLookup(report, "miss")
	} else {
		h.obs.RecordCacheLookup(report, "bypass")
	}

	payload, err := build()
	if err != nil {
		return writeReportError(c, err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "encode report")
	}
	h.cache.Set(c.Context(), key, data)

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

func cacheKey(c *fiber.Ctx, report string) string {
	params := []string{"range", "from", "to", "mode", "year", "group"}
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, report)
	for _, p := range params {
		if v := c.Query(p); v != "" {
			parts = append(parts, p+"="+v)
		}
	}
	return strings.Join(parts, ":")
}

func writeReportError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, reporting.ErrInvalidRange):
		return httputil.WriteCodedError(c, fiber.StatusBadRequest, httputil.CodeInvalidRange, "invalid date range")
	case errors.Is(err, reporting.ErrUnsupportedGrouping):
		return httputil.WriteCodedError(c, fiber.StatusBadRequest, httputil.CodeUnsupportedGrouping, "unsupported grouping")
	default:
		return httputil.WriteCodedError(c, fiber.StatusInternalServerError, httputil.CodeDataSourceError, err.Error())
	}
}

func parseYear(raw string) (int, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(clean)
	if err != nil || year <= 0 {
		return 0, fmt.Errorf("invalid year")
	}
	return year, nil
}

func parseRangeParams(startRaw, endRaw string) (*time.Time, *time.Time, error) {
	startStr := strings.TrimSpace(startRaw)
	endStr := strings.TrimSpace(endRaw)
	if startStr == "" && endStr == "" {
		return nil, nil, nil
	}
	if startStr == "" || endStr == "" {
		return nil, nil, fmt.Errorf("from and to must both be provided")
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid from timestamp")
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid to timestamp")
	}
	return &start, &end, nil
}
