package orderline

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stocklinehq/stockline/internal/dto"
	"github.com/stocklinehq/stockline/internal/entity"
	"github.com/stocklinehq/stockline/internal/presentation/http/response"
	service "github.com/stocklinehq/stockline/internal/service/orderline"
	"github.com/stocklinehq/stockline/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/stocklinehq/stockline/transport/http/orderline")

// Handler exposes order-line endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order-line Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/order-lines")
	g.POST("", h.create)
	g.POST("/bulk", h.createBulk)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id", h.update)
	g.PUT("/:id/received", h.setReceived)
	g.POST("/:id/receipts", h.addReceipt)
	g.POST("/:id/receive", h.markReceived)
	g.DELETE("/:id", h.delete)

	o := e.Group("/orders/:orderId")
	o.POST("/receive", h.markOrderReceived)
	o.DELETE("/lines", h.deleteOrderLines)
	o.GET("/total", h.orderTotal)
	o.GET("/reception", h.receptionStatistics)
	o.GET("/completion", h.orderCompletion)
}

// linePayload is the JSON shape accepted for single and bulk creation.
type linePayload struct {
	OrderID          int64            `json:"order_id"`
	ProductID        int64            `json:"product_id"`
	OrderedQuantity  int64            `json:"ordered_quantity"`
	UnitPrice        decimal.Decimal  `json:"unit_price"`
	Subtotal         *decimal.Decimal `json:"subtotal,omitempty"`
	ReceivedQuantity *int64           `json:"received_quantity,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

func (p linePayload) toInput() service.CreateLineInput {
	return service.CreateLineInput{
		OrderID:          p.OrderID,
		ProductID:        p.ProductID,
		OrderedQuantity:  p.OrderedQuantity,
		UnitPrice:        p.UnitPrice,
		Subtotal:         p.Subtotal,
		ReceivedQuantity: p.ReceivedQuantity,
		Notes:            p.Notes,
	}
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload linePayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.create", trace.WithAttributes(
		attribute.Int64("order.id", payload.OrderID),
		attribute.Int64("product.id", payload.ProductID),
	))
	defer span.End()

	line, err := h.svc.CreateLine(ctx, payload.toInput())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(line)).Build()
}

func (h *Handler) createBulk(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Lines []linePayload `json:"lines"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.createBulk", trace.WithAttributes(
		attribute.Int("batch.size", len(payload.Lines)),
	))
	defer span.End()

	inputs := make([]service.CreateLineInput, 0, len(payload.Lines))
	for _, p := range payload.Lines {
		inputs = append(inputs, p.toInput())
	}

	lines, err := h.svc.CreateLinesBulk(ctx, inputs)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTOs(lines)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	var filter service.Filter
	if raw := c.QueryParam("order_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid order_id", errorbank.WithCause(err))).Build()
		}
		filter.OrderID = &id
	}
	if raw := c.QueryParam("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid product_id", errorbank.WithCause(err))).Build()
		}
		filter.ProductID = &id
	}
	if raw := c.QueryParam("received_complete"); raw != "" {
		complete, err := strconv.ParseBool(raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid received_complete", errorbank.WithCause(err))).Build()
		}
		filter.ReceivedComplete = &complete
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.list")
	defer span.End()

	lines, err := h.svc.ListLines(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOs(lines)).WithMeta("count", len(lines)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.getByID", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	line, err := h.svc.GetLine(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(line)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		OrderedQuantity  *int64           `json:"ordered_quantity"`
		UnitPrice        *decimal.Decimal `json:"unit_price"`
		ReceivedQuantity *int64           `json:"received_quantity"`
		Notes            *string          `json:"notes"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.update", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	line, err := h.svc.UpdateLine(ctx, id, service.UpdateLinePatch{
		OrderedQuantity:  payload.OrderedQuantity,
		UnitPrice:        payload.UnitPrice,
		ReceivedQuantity: payload.ReceivedQuantity,
		Notes:            payload.Notes,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(line)).Build()
}

func (h *Handler) setReceived(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Quantity int64 `json:"quantity"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.setReceived", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	line, err := h.svc.RegisterReceivedQuantity(ctx, id, payload.Quantity)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(line)).Build()
}

func (h *Handler) addReceipt(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Quantity int64 `json:"quantity"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.addReceipt", trace.WithAttributes(
		attribute.Int64("line.id", id),
		attribute.Int64("receipt.quantity", payload.Quantity),
	))
	defer span.End()

	line, err := h.svc.RegisterPartialReceipt(ctx, id, payload.Quantity)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(line)).Build()
}

func (h *Handler) markReceived(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.markReceived", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	line, err := h.svc.MarkLineReceived(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(line)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.delete", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	if err := h.svc.DeleteLine(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func (h *Handler) markOrderReceived(c echo.Context) error {
	b := response.New(c)

	orderID, err := parseID(c, "orderId")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.markOrderReceived", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	lines, err := h.svc.MarkOrderReceived(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOs(lines)).Build()
}

func (h *Handler) deleteOrderLines(c echo.Context) error {
	b := response.New(c)

	orderID, err := parseID(c, "orderId")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.deleteOrderLines", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	deleted, err := h.svc.DeleteLinesForOrder(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]int64{"deleted": deleted}).Build()
}

func (h *Handler) orderTotal(c echo.Context) error {
	b := response.New(c)

	orderID, err := parseID(c, "orderId")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.orderTotal", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	total, err := h.svc.OrderTotal(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.OrderTotalResponse{
		Total:      total.Total,
		ItemCount:  total.ItemCount,
		TotalUnits: total.TotalUnits,
	}).Build()
}

func (h *Handler) receptionStatistics(c echo.Context) error {
	b := response.New(c)

	orderID, err := parseID(c, "orderId")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.receptionStatistics", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	stats, err := h.svc.ReceptionStatistics(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.ReceptionStatisticsResponse{
		TotalOrdered:    stats.TotalOrdered,
		TotalReceived:   stats.TotalReceived,
		TotalPending:    stats.TotalPending,
		ItemCount:       stats.ItemCount,
		PercentReceived: stats.PercentReceived,
	}).Build()
}

func (h *Handler) orderCompletion(c echo.Context) error {
	b := response.New(c)

	orderID, err := parseID(c, "orderId")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderlines.orderCompletion", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	completion, err := h.svc.OrderCompletion(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.OrderCompletionResponse{
		Complete:        completion.Complete,
		LineCount:       completion.LineCount,
		ReceivedLines:   completion.ReceivedLines,
		PendingLines:    completion.PendingLines,
		PercentComplete: completion.PercentComplete,
	}).Build()
}

func parseID(c echo.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid "+param, errorbank.WithCause(err))
	}
	return id, nil
}

func toDTO(line *entity.OrderLine) dto.OrderLineResponse {
	return dto.OrderLineResponse{
		ID:               line.ID,
		OrderID:          line.OrderID,
		ProductID:        line.ProductID,
		OrderedQuantity:  line.OrderedQuantity,
		UnitPrice:        line.UnitPrice,
		Subtotal:         line.Subtotal,
		ReceivedQuantity: line.ReceivedQuantity,
		Notes:            line.Notes,
		CreatedAt:        line.CreatedAt,
		UpdatedAt:        line.UpdatedAt,
	}
}

func toDTOs(lines []entity.OrderLine) []dto.OrderLineResponse {
	out := make([]dto.OrderLineResponse, 0, len(lines))
	for i := range lines {
		out = append(out, toDTO(&lines[i]))
	}
	return out
}
