package order

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/restaurant/internal/domain"
	"github.com/Additional-Code/restaurant/internal/dto"
	"github.com/Additional-Code/restaurant/internal/entity"
	"github.com/Additional-Code/restaurant/internal/presentation/http/response"
	service "github.com/Additional-Code/restaurant/internal/service/order"
	"github.com/Additional-Code/restaurant/pkg/errorbank"
)

var tracer = otel.Tracer("github.com/Additional-Code/restaurant/transport/http/order")

// orderForm lists the urlencoded fields of POST /order; all are required.
var orderForm = []string{"table_no", "item", "quantity"}

// Handler serves the terminal endpoints. Reads always answer with a JSON
// list, empty when nothing matches.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register binds the terminal routes to the Echo router.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/order", h.submit)
	e.GET("/query_all", h.queryAll)
	e.GET("/query_id/:id", h.queryByID)
	e.GET("/query_table/:table_no", h.queryByTable)
	e.GET("/query_item/:table_no/:item", h.queryByTableAndItem)
	e.DELETE("/delete/:id", h.deleteByID)
	e.DELETE("/delete_item/:table_no/:item", h.deleteByTableAndItem)
}

func start(c echo.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(c.Request().Context(), name, trace.WithAttributes(attrs...))
}

func fail(c echo.Context, err error) error {
	return response.New(c).WithError(err).Build()
}

func renderOrders(c echo.Context, orders []entity.Order, err error) error {
	if err != nil {
		return fail(c, err)
	}
	return response.List(response.New(c), dto.FromOrders(orders)).Build()
}

func renderDeleted(c echo.Context, err error) error {
	if err != nil {
		return fail(c, err)
	}
	return response.New(c).Build()
}

func (h *Handler) submit(c echo.Context) error {
	raw, err := parseOrderForm(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, span := start(c, "orders.submit")
	defer span.End()

	id, err := h.svc.Submit(ctx, raw)
	if err != nil {
		return fail(c, err)
	}
	span.SetAttributes(attribute.String("order.id", id.String()))
	return response.New(c).WithStatus(http.StatusCreated).WithData(dto.OrderPlacedResponse{ID: id}).Build()
}

func (h *Handler) queryAll(c echo.Context) error {
	ctx, span := start(c, "orders.queryAll")
	defer span.End()

	orders, err := h.svc.All(ctx)
	return renderOrders(c, orders, err)
}

func (h *Handler) queryByID(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, span := start(c, "orders.queryByID", attribute.String("order.id", id.String()))
	defer span.End()

	orders, err := h.svc.ByID(ctx, id)
	return renderOrders(c, orders, err)
}

func (h *Handler) queryByTable(c echo.Context) error {
	tableNo, err := parseInt32("table_no", c.Param("table_no"))
	if err != nil {
		return fail(c, err)
	}

	ctx, span := start(c, "orders.queryByTable", attribute.Int("order.table_no", int(tableNo)))
	defer span.End()

	orders, err := h.svc.ByTable(ctx, tableNo)
	return renderOrders(c, orders, err)
}

func (h *Handler) queryByTableAndItem(c echo.Context) error {
	tableNo, item, err := tableAndItem(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, span := start(c, "orders.queryByTableAndItem", attribute.Int("order.table_no", int(tableNo)), attribute.String("order.item", item))
	defer span.End()

	orders, err := h.svc.ByTableAndItem(ctx, tableNo, item)
	return renderOrders(c, orders, err)
}

func (h *Handler) deleteByID(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, span := start(c, "orders.deleteByID", attribute.String("order.id", id.String()))
	defer span.End()

	return renderDeleted(c, h.svc.DeleteByID(ctx, id))
}

func (h *Handler) deleteByTableAndItem(c echo.Context) error {
	tableNo, item, err := tableAndItem(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, span := start(c, "orders.deleteByTableAndItem", attribute.Int("order.table_no", int(tableNo)), attribute.String("order.item", item))
	defer span.End()

	return renderDeleted(c, h.svc.DeleteByTableAndItem(ctx, tableNo, item))
}

func parseOrderForm(c echo.Context) (domain.RawOrder, error) {
	form, err := c.FormParams()
	if err != nil {
		return domain.RawOrder{}, errorbank.BadRequest("invalid form", errorbank.WithCause(err))
	}
	for _, field := range orderForm {
		if !form.Has(field) {
			return domain.RawOrder{}, errorbank.BadRequest(field+" is required", errorbank.WithField(field))
		}
	}

	tableNo, err := parseInt32("table_no", form.Get("table_no"))
	if err != nil {
		return domain.RawOrder{}, err
	}
	quantity, err := parseInt32("quantity", form.Get("quantity"))
	if err != nil {
		return domain.RawOrder{}, err
	}
	return domain.RawOrder{TableNo: tableNo, Item: form.Get("item"), Quantity: quantity}, nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errorbank.BadRequest("invalid id", errorbank.WithCause(err), errorbank.WithField("id"))
	}
	return id, nil
}

// tableAndItem reads the :table_no and :item path parameters. The item is
// passed on as given; an unknown item simply matches nothing.
func tableAndItem(c echo.Context) (int32, string, error) {
	tableNo, err := parseInt32("table_no", c.Param("table_no"))
	return tableNo, c.Param("item"), err
}

func parseInt32(field, raw string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, errorbank.BadRequest(field+" must be a 32-bit integer", errorbank.WithCause(err), errorbank.WithField(field))
	}
	return int32(n), nil
}
