package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"forum-service/internal/audit"
	apperrors "forum-service/pkg/errors"
)

// PaymentHandler completes the checkout round-trip: the client returns
// from the gateway with a session id and asks what it unlocked.
type PaymentHandler struct {
	unlocker    CheckoutUnlocker
	purchases   PurchaseLister
	auditLogger *audit.Logger
}

func NewPaymentHandler(unlocker CheckoutUnlocker, purchases PurchaseLister, auditLogger *audit.Logger) *PaymentHandler {
	return &PaymentHandler{unlocker: unlocker, purchases: purchases, auditLogger: auditLogger}
}

// CheckSessionStatus verifies a checkout session with the gateway and
// applies whatever it unlocked to the caller's profile.
func (h *PaymentHandler) CheckSessionStatus(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	checkoutID := c.QueryParam("session_id")
	if checkoutID == "" {
		return apperrors.BadRequest("session_id is required")
	}

	result, err := h.unlocker.Apply(c.Request().Context(), session.User.ID, checkoutID)
	if err != nil {
		h.auditLogger.RecordError(c, audit.ResourcePurchase, checkoutID, audit.ActionUnlock, err)
		return err
	}

	h.auditLogger.Record(c, audit.ResourcePurchase, checkoutID, audit.ActionUnlock, audit.StatusSuccess, map[string]any{
		"status": result.Status,
	})

	return c.JSON(http.StatusOK, result)
}

// ListMine returns the caller's one-time purchase history.
func (h *PaymentHandler) ListMine(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	purchases, err := h.purchases.ListByUser(c.Request().Context(), session.User.ID)
	if err != nil {
		return err
	}

	out := make([]map[string]interface{}, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, map[string]interface{}{
			"id":           p.ID,
			"product_id":   p.ProductID,
			"price_id":     p.PriceID,
			"amount_total": p.AmountTotal,
			"currency":     p.Currency,
			"created_at":   p.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"purchases": out})
}
