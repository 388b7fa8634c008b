package supplier

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stocklinehq/stockline/internal/dto"
	"github.com/stocklinehq/stockline/internal/entity"
	"github.com/stocklinehq/stockline/internal/presentation/http/response"
	service "github.com/stocklinehq/stockline/internal/service/supplier"
	"github.com/stocklinehq/stockline/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/stocklinehq/stockline/transport/http/supplier")

// Handler exposes supplier endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a supplier Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/suppliers")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.deactivate)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Name    string `json:"name"`
		Contact string `json:"contact"`
		Phone   string `json:"phone"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.create", trace.WithAttributes(
		attribute.String("supplier.name", payload.Name),
	))
	defer span.End()

	supplier, err := h.svc.Create(ctx, service.CreateInput{
		Name:    payload.Name,
		Contact: payload.Contact,
		Phone:   payload.Phone,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(supplier)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.list")
	defer span.End()

	suppliers, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		out = append(out, toDTO(&suppliers[i]))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.getByID", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	supplier, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(supplier)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Name    *string `json:"name"`
		Contact *string `json:"contact"`
		Phone   *string `json:"phone"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.update", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	supplier, err := h.svc.Update(ctx, id, service.UpdatePatch{
		Name:    payload.Name,
		Contact: payload.Contact,
		Phone:   payload.Phone,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(supplier)).Build()
}

func (h *Handler) deactivate(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "suppliers.deactivate", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	if err := h.svc.Deactivate(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return id, nil
}

func toDTO(supplier *entity.Supplier) dto.SupplierResponse {
	return dto.SupplierResponse{
		ID:        supplier.ID,
		Name:      supplier.Name,
		Contact:   supplier.Contact,
		Phone:     supplier.Phone,
		Active:    supplier.Active,
		CreatedAt: supplier.CreatedAt,
		UpdatedAt: supplier.UpdatedAt,
	}
}
