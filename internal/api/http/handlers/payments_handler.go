package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/slicehouse/pizzeria/internal/api/dto"
	"github.com/slicehouse/pizzeria/internal/service"
)

// SignatureHeader carries the gateway's HMAC of the webhook body.
const SignatureHeader = "X-Razorpay-Signature"

// PaymentsHandler confirms payments and receives gateway callbacks.
type PaymentsHandler struct {
	payments *service.PaymentService
}

func NewPaymentsHandler(payments *service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{payments: payments}
}

// Process POST /api/process-payment.
func (h *PaymentsHandler) Process(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ProcessPaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.payments.ProcessPayment(c.UserContext(), principal.User.ID, req.OrderID, req.PaymentID)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Payment(result)))
}

// Webhook POST /api/razorpay-webhook.
func (h *PaymentsHandler) Webhook(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)
	if err := h.payments.HandleWebhook(c.UserContext(), body, c.Get(SignatureHeader)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
