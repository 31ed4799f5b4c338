package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/stockmaster-api/internal/application/analytics"
	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

// DashboardHandler maneja los endpoints del tablero, actividad, predicción y reportes.
type DashboardHandler struct {
	stats    *appanalytics.DashboardUseCase
	heatmap  *appanalytics.HeatmapUseCase
	reports  *appanalytics.ReportUseCase
	activity *inventory.ActivityUseCase
	predict  *inventory.ReplenishmentUseCase
	log      *logger.Logger

	streamEvery time.Duration
	streamMax   time.Duration
}

const (
	activityStreamEvery = 2 * time.Second
	// Por debajo del WriteTimeout del servidor; EventSource reconecta con Last-Event-ID.
	activityStreamMax = 25 * time.Second
)

// DashboardDeps casos de uso que consume el handler.
type DashboardDeps struct {
	Stats    *appanalytics.DashboardUseCase
	Heatmap  *appanalytics.HeatmapUseCase
	Reports  *appanalytics.ReportUseCase
	Activity *inventory.ActivityUseCase
	Predict  *inventory.ReplenishmentUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(deps DashboardDeps, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		stats:    deps.Stats,
		heatmap:  deps.Heatmap,
		reports:  deps.Reports,
		activity: deps.Activity,
		predict:  deps.Predict,
		log:      log,

		streamEvery: activityStreamEvery,
		streamMax:   activityStreamMax,
	}
}

// GetStats godoc
// @Summary      Indicadores del tablero
// @Description  Si el almacenamiento falla responde 200 con ceros y degraded=true.
// @Tags         dashboard
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.DashboardStatsDTO
// @Router       /api/dashboard-stats [get]
func (h *DashboardHandler) GetStats(c *fiber.Ctx) error {
	return c.JSON(h.stats.GetStats(c.UserContext()))
}

// RecentActivity godoc
// @Summary      Actividad reciente y mapa de calor
// @Description  Últimas 10 entradas y salidas, más el mapa de calor de traslados por ubicación.
// @Tags         dashboard
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.RecentActivityResponse
// @Router       /api/recent-activity [get]
func (h *DashboardHandler) RecentActivity(c *fiber.Ctx) error {
	ctx := c.UserContext()
	activity, err := h.activity.Recent(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	cells, err := h.heatmap.Cells(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.RecentActivityResponse{Activity: activity, Heatmap: cells})
}

// ActivityStream godoc
// @Summary      Flujo en vivo de movimientos (SSE)
// @Description  Emite un evento "movement" por cada movimiento nuevo del libro. El id de cada evento es su
// @Description  fecha (RFC3339Nano); al reconectar, Last-Event-ID o ?since= retoma desde ahí.
// @Tags         dashboard
// @Security     Bearer
// @Produce      text/event-stream
// @Param        since  query  string  false  "Fecha RFC3339 desde la cual emitir"
// @Success      200
// @Router       /api/activity/stream [get]
func (h *DashboardHandler) ActivityStream(c *fiber.Ctx) error {
	cursor, resumed := time.Now().UTC(), false
	if t, err := time.Parse(time.RFC3339Nano, c.Get("Last-Event-ID")); err == nil {
		cursor, resumed = t, true
	} else if t, err := time.Parse(time.RFC3339Nano, c.Query("since")); err == nil {
		cursor = t
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		h.streamActivity(w, cursor, resumed)
	})
	return nil
}

// streamActivity consulta el libro cada streamEvery y escribe los movimientos nuevos.
// Termina cuando el cliente se desconecta (falla el Flush) o se cumple streamMax.
// Con resumed, los movimientos con fecha igual al cursor ya se entregaron en la conexión anterior.
func (h *DashboardHandler) streamActivity(w *bufio.Writer, cursor time.Time, resumed bool) {
	fmt.Fprintf(w, "retry: %d\n\n", h.streamEvery.Milliseconds())
	if err := w.Flush(); err != nil {
		return
	}
	deadline := time.Now().Add(h.streamMax)
	seen := make(map[string]struct{})
	ticker := time.NewTicker(h.streamEvery)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), h.streamEvery)
		events, err := h.activity.Since(ctx, cursor)
		cancel()
		if err != nil {
			h.log.Warn().Err(err).Msg("flujo de actividad: no se pudo leer el libro")
		}
		for _, ev := range events {
			if _, ok := seen[ev.ID]; ok {
				continue
			}
			if resumed && ev.Date.Equal(cursor) {
				continue
			}
			if ev.Date.After(cursor) {
				cursor, resumed = ev.Date, false
				seen = make(map[string]struct{})
			}
			seen[ev.ID] = struct{}{}
			if err := writeSSE(w, "movement", ev.Date.Format(time.RFC3339Nano), ev); err != nil {
				return
			}
		}
		w.WriteString(": ping\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		if !time.Now().Before(deadline) {
			return
		}
		<-ticker.C
	}
}

func writeSSE(w *bufio.Writer, event, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}

// Heatmap godoc
// @Summary      Mapa de calor de traslados (últimos 30 días)
// @Tags         dashboard
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.HeatmapCell
// @Router       /api/heatmap [get]
func (h *DashboardHandler) Heatmap(c *fiber.Ctx) error {
	cells, err := h.heatmap.Cells(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(cells)
}

// PredictInventory godoc
// @Summary      Sugerencias de reabastecimiento
// @Description  Según la velocidad de salidas de los últimos 30 días.
// @Tags         dashboard
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.PredictInventoryResponse
// @Router       /api/predict-inventory [get]
func (h *DashboardHandler) PredictInventory(c *fiber.Ctx) error {
	out, err := h.predict.Suggest(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PredictInventoryResponse{Suggestions: out})
}

// StockReport godoc
// @Summary      Reporte de existencias en PDF
// @Tags         reports
// @Security     Bearer
// @Produce      application/pdf
// @Success      200  {file}    binary
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/reports/stock.pdf [get]
func (h *DashboardHandler) StockReport(c *fiber.Ctx) error {
	doc, err := h.reports.StockPDF(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`inline; filename="existencias-%s.pdf"`, time.Now().Format("20060102")))
	return c.Send(doc)
}
