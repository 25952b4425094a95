package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"paydirekt-gateway/internal/client"
	"paydirekt-gateway/internal/dto"
	"paydirekt-gateway/internal/service"
)

type PaydirektHandler struct {
	paydirektService service.PaydirektService
}

func NewPaydirektHandler(paydirektService service.PaydirektService) *PaydirektHandler {
	return &PaydirektHandler{
		paydirektService: paydirektService,
	}
}

// httpStatusFor maps service failures onto merchant-facing status codes.
// Validation failures are 422: the request was understood but the processor
// (or a lifecycle precondition) refused it.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, client.ErrInvalidPaymentType),
		errors.Is(err, client.ErrMissingShippingAddress):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrAmountMismatch),
		errors.Is(err, service.ErrNotCapturable),
		errors.Is(err, service.ErrNotRefundable),
		errors.Is(err, service.ErrNotClosable),
		errors.Is(err, service.ErrNotClosed),
		errors.Is(err, service.ErrStatusMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func fail(c echo.Context, err error) error {
	return c.JSON(httpStatusFor(err), map[string]string{"error": err.Error()})
}

func (h *PaydirektHandler) CreateCheckout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	checkout, err := h.paydirektService.CreateCheckout(ctx, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewCheckoutResponse(checkout))
}

func (h *PaydirektHandler) GetCheckout(c echo.Context) error {
	ctx := c.Request().Context()

	checkout, err := h.paydirektService.GetCheckout(ctx, c.Param("checkoutID"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewCheckoutResponse(checkout))
}

func (h *PaydirektHandler) RefreshCheckout(c echo.Context) error {
	ctx := c.Request().Context()

	checkout, err := h.paydirektService.RefreshCheckout(ctx, c.Param("checkoutID"), c.QueryParam("expected_status"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewCheckoutResponse(checkout))
}

func (h *PaydirektHandler) CloseCheckout(c echo.Context) error {
	ctx := c.Request().Context()

	checkout, err := h.paydirektService.CloseCheckout(ctx, c.Param("checkoutID"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewCheckoutResponse(checkout))
}

func (h *PaydirektHandler) CreateCapture(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateCaptureRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	capture, err := h.paydirektService.CreateCapture(ctx, c.Param("checkoutID"), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewCaptureResponse(capture))
}

func (h *PaydirektHandler) CreateRefund(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateRefundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	refund, err := h.paydirektService.CreateRefund(ctx, c.Param("checkoutID"), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewRefundResponse(refund))
}

func (h *PaydirektHandler) RefreshCapture(c echo.Context) error {
	ctx := c.Request().Context()

	capture, err := h.paydirektService.RefreshCapture(ctx, c.Param("transactionID"), c.QueryParam("expected_status"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewCaptureResponse(capture))
}

func (h *PaydirektHandler) RefreshRefund(c echo.Context) error {
	ctx := c.Request().Context()

	refund, err := h.paydirektService.RefreshRefund(ctx, c.Param("transactionID"), c.QueryParam("expected_status"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewRefundResponse(refund))
}

func (h *PaydirektHandler) Transactions(c echo.Context) error {
	ctx := c.Request().Context()

	filters := &client.TransactionFilters{}
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid from timestamp"})
		}
		filters.From = &t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid to timestamp"})
		}
		filters.To = &t
	}
	filters.Fields = c.QueryParams()["field"]
	filters.ReconciliationReferences = c.QueryParams()["reconciliation_reference"]
	filters.MerchantReferenceNumbers = c.QueryParams()["merchant_reference_number"]
	filters.CheckoutInvoiceNumbers = c.QueryParams()["checkout_invoice_number"]
	filters.CaptureInvoiceNumbers = c.QueryParams()["capture_invoice_number"]

	transactions, err := h.paydirektService.Transactions(ctx, filters)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"transactions": transactions})
}

// Notify receives asynchronous status-update callbacks from the processor.
func (h *PaydirektHandler) Notify(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	status, payload := h.paydirektService.HandleNotification(ctx, body)
	if payload == nil {
		return c.NoContent(status)
	}
	return c.JSON(status, payload)
}
