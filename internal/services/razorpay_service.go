package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"gym-backend/internal/apperror"
	"gym-backend/internal/models"
	"gym-backend/internal/repositories"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayService handles online checkout. A captured payment lands in the
// canonical payments table and reaches the ledger through the next sync pass.
type RazorpayService struct {
	keyID         string
	keySecret     string
	webhookSecret string
	txnRepo       *repositories.OnlineTransactionRepository
	paymentRepo   *repositories.PaymentRepository
	userRepo      *repositories.UserRepository
}

func NewRazorpayService(keyID, keySecret, webhookSecret string,
	txnRepo *repositories.OnlineTransactionRepository,
	paymentRepo *repositories.PaymentRepository,
	userRepo *repositories.UserRepository,
) *RazorpayService {
	return &RazorpayService{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		txnRepo:       txnRepo,
		paymentRepo:   paymentRepo,
		userRepo:      userRepo,
	}
}

func (s *RazorpayService) client() *razorpay.Client {
	if s.keyID == "" || s.keySecret == "" {
		return nil
	}
	return razorpay.NewClient(s.keyID, s.keySecret)
}

// CreateOrder creates a Razorpay order for the member and stores the pending
// transaction.
func (s *RazorpayService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	if req.Amount <= 0 {
		return nil, apperror.Validation("order amount must be positive")
	}
	if _, err := s.userRepo.Get(ctx, req.UserID); err != nil {
		return nil, apperror.NotFound("user %d not found", req.UserID)
	}

	client := s.client()
	if client == nil {
		return nil, apperror.Validation("online payments are not configured")
	}

	orderData := map[string]interface{}{
		"amount":   int(req.Amount * 100), // paise
		"currency": "INR",
		"receipt":  fmt.Sprintf("gym_%d_%d", req.UserID, time.Now().Unix()),
		"notes": map[string]interface{}{
			"user_id": req.UserID,
		},
	}
	order, err := client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}
	orderID, _ := order["id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("razorpay order response missing id")
	}

	txn := &models.OnlineTransaction{
		OrderID: orderID,
		UserID:  req.UserID,
		Amount:  req.Amount,
		Status:  models.TxnCreated,
	}
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("store transaction: %w", err)
	}

	return &models.CreateOrderResponse{
		OrderID: orderID,
		Amount:  req.Amount,
		KeyID:   s.keyID,
	}, nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw body.
func (s *RazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.webhookSecret == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(s.webhookSecret))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ProcessWebhook handles a verified webhook event.
func (s *RazorpayService) ProcessWebhook(ctx context.Context, event string, payload map[string]interface{}) error {
	switch event {
	case "payment.captured":
		return s.handleCaptured(ctx, payload)
	case "payment.failed":
		return s.handleFailed(ctx, payload)
	default:
		log.Printf("[Razorpay] ignoring webhook event %s", event)
		return nil
	}
}

func (s *RazorpayService) handleCaptured(ctx context.Context, payload map[string]interface{}) error {
	entity := paymentEntity(payload)
	orderID, _ := entity["order_id"].(string)
	paymentID, _ := entity["id"].(string)
	if orderID == "" {
		return fmt.Errorf("webhook missing order_id")
	}

	txn, err := s.txnRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("transaction %s not found: %w", orderID, err)
	}
	if txn.Status == models.TxnCaptured {
		// Razorpay retries webhooks; a second delivery is a no-op.
		return nil
	}

	if err := s.txnRepo.MarkCaptured(ctx, orderID, paymentID); err != nil {
		return err
	}

	payment := &models.Payment{
		UserID:      txn.UserID,
		Amount:      txn.Amount,
		PaymentMode: "online",
		Notes:       fmt.Sprintf("Razorpay %s", paymentID),
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return fmt.Errorf("record canonical payment for %s: %w", orderID, err)
	}
	log.Printf("[Razorpay] captured %s for user %d, amount %.2f", orderID, txn.UserID, txn.Amount)
	return nil
}

func (s *RazorpayService) handleFailed(ctx context.Context, payload map[string]interface{}) error {
	entity := paymentEntity(payload)
	orderID, _ := entity["order_id"].(string)
	if orderID == "" {
		return nil
	}
	return s.txnRepo.MarkFailed(ctx, orderID)
}

func paymentEntity(payload map[string]interface{}) map[string]interface{} {
	if p, ok := payload["payment"].(map[string]interface{}); ok {
		if e, ok := p["entity"].(map[string]interface{}); ok {
			return e
		}
		return p
	}
	return payload
}
