// Package httpapi exposes the booking engine over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/moimlab/booking/internal/webhook"
	"github.com/moimlab/booking/pkg/booking"
)

const (
	headerWebhookID        = "X-Webhook-Id"
	headerWebhookTimestamp = "X-Webhook-Timestamp"
	headerWebhookSignature = "X-Webhook-Signature"
)

// Server hosts the booking HTTP surface.
type Server struct {
	logger   *zap.Logger
	service  *booking.Service
	verifier *webhook.Verifier
	cfg      Config
	router   *gin.Engine
}

// New wires the router. The redis client is optional; without it the
// reservation endpoint runs unthrottled.
func New(cfg Config, service *booking.Service, redisClient *redis.Client, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if service == nil {
		return nil, errors.New("booking service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		logger:   logger,
		service:  service,
		verifier: webhook.NewVerifier(cfg.WebhookSecret, cfg.WebhookTolerance, nil),
		cfg:      cfg,
	}
	server.router = server.setupRouter(redisClient)
	return server, nil
}

// Handler exposes the router for tests and embedding.
func (server *Server) Handler() http.Handler { return server.router }

// Run serves until the context is cancelled, then drains in-flight
// requests.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.cfg.ListenAddr,
		Handler: server.router,
	}
	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("http listening", zap.String("addr", server.cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (server *Server) setupRouter(redisClient *redis.Client) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", headerWebhookID, headerWebhookTimestamp, headerWebhookSignature},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/registrations",
		rateLimitMiddleware(server.cfg, redisClient, server.logger),
		server.handleReserve)
	api.POST("/payments/webhook", server.handlePaymentWebhook)
	api.POST("/registrations/:id/confirm-transfer", server.handleConfirmTransfer)
	api.POST("/registrations/:id/cancel", server.handleCancel)
	api.GET("/registrations/:id/refund-preview", server.handleRefundPreview)
	api.GET("/registrations/:id", server.handleGetRegistration)
	api.GET("/meetings/:id/capacity", server.handleCapacity)
	api.POST("/waitlist", server.handleWaitlistJoin)
	api.DELETE("/waitlist", server.handleWaitlistLeave)
	api.POST("/waitlist/accept", server.handleWaitlistAccept)

	return router
}

type reserveRequest struct {
	MeetingID     string `json:"meeting_id"`
	UserID        string `json:"user_id"`
	PaymentMethod string `json:"payment_method"`
	SenderName    string `json:"sender_name"`
}

func (server *Server) handleReserve(ctx *gin.Context) {
	var request reserveRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	method := booking.PaymentMethodInstant
	if request.PaymentMethod != "" {
		parsed, err := booking.ParsePaymentMethod(request.PaymentMethod)
		if err != nil {
			ctx.JSON(http.StatusUnprocessableEntity, errorResponse("invalid_payment_method", request.PaymentMethod))
			return
		}
		method = parsed
	}
	registration, err := server.service.Reserve(ctx.Request.Context(), booking.ReserveRequest{
		MeetingID:           request.MeetingID,
		UserID:              request.UserID,
		PaymentMethod:       method,
		TransferSenderLabel: request.SenderName,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"registration": registrationPayloadFrom(*registration)})
}

type webhookRequest struct {
	PaymentID      string `json:"payment_id"`
	RegistrationID string `json:"registration_id"`
	AmountCents    int64  `json:"amount_cents"`
}

// handlePaymentWebhook authenticates the gateway delivery, then applies it
// idempotently. Retries of an applied payment return 200 with
// status=duplicate so the gateway stops redelivering.
func (server *Server) handlePaymentWebhook(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "unreadable body"))
		return
	}
	verifyErr := server.verifier.Verify(
		ctx.GetHeader(headerWebhookID),
		ctx.GetHeader(headerWebhookTimestamp),
		ctx.GetHeader(headerWebhookSignature),
		body,
	)
	if verifyErr != nil {
		server.logger.Warn("webhook rejected", zap.Error(verifyErr))
		ctx.JSON(http.StatusUnauthorized, errorResponse("invalid_signature", "signature verification failed"))
		return
	}
	var request webhookRequest
	if err := json.Unmarshal(body, &request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	amount, err := booking.NewAmountCents(request.AmountCents)
	if err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, errorResponse("invalid_amount", "amount_cents must be positive"))
		return
	}
	result, err := server.service.ConfirmInstant(ctx.Request.Context(),
		request.RegistrationID, request.PaymentID, amount, string(body))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"registration_id": result.RegistrationID,
		"status":          confirmStatus(result),
	})
}

func confirmStatus(result *booking.ConfirmResult) string {
	switch {
	case result.Duplicate:
		return "duplicate"
	case result.Orphaned:
		return "unmatched"
	default:
		return "applied"
	}
}

func (server *Server) handleConfirmTransfer(ctx *gin.Context) {
	registration, err := server.service.ConfirmManualTransfer(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"registration": registrationPayloadFrom(*registration)})
}

type cancelRequest struct {
	Reason            string             `json:"reason"`
	RefundDestination *refundDestination `json:"refund_destination"`
}

type refundDestination struct {
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	HolderName    string `json:"holder_name"`
}

func (server *Server) handleCancel(ctx *gin.Context) {
	var request cancelRequest
	if err := ctx.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	cancel := booking.CancelRequest{
		RegistrationID: ctx.Param("id"),
		Reason:         request.Reason,
	}
	if request.RefundDestination != nil {
		cancel.RefundDestination = &booking.RefundDestination{
			BankCode:      request.RefundDestination.BankCode,
			AccountNumber: request.RefundDestination.AccountNumber,
			HolderName:    request.RefundDestination.HolderName,
		}
	}
	result, err := server.service.Cancel(ctx.Request.Context(), cancel)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"registration_id":     result.RegistrationID,
		"refund_amount_cents": result.RefundAmountCents.Int64(),
		"refund_percent":      result.RefundPercent,
	})
}

func (server *Server) handleRefundPreview(ctx *gin.Context) {
	quote, err := server.service.PreviewRefund(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"payment_amount_cents": quote.PaymentAmountCents.Int64(),
		"refund_amount_cents":  quote.RefundAmountCents.Int64(),
		"refund_percent":       quote.RefundPercent,
	})
}

func (server *Server) handleGetRegistration(ctx *gin.Context) {
	registration, err := server.service.GetRegistration(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"registration": registrationPayloadFrom(*registration)})
}

func (server *Server) handleCapacity(ctx *gin.Context) {
	snapshot, err := server.service.Capacity(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"meeting_id":           snapshot.MeetingID,
		"capacity":             snapshot.Capacity,
		"current_participants": snapshot.CurrentParticipants,
		"seats_left":           snapshot.SeatsLeft,
		"status":               snapshot.Status.String(),
		"starts_at":            snapshot.StartsAt,
	})
}

type waitlistRequest struct {
	MeetingID string `json:"meeting_id"`
	UserID    string `json:"user_id"`
}

func (server *Server) handleWaitlistJoin(ctx *gin.Context) {
	var request waitlistRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	entry, err := server.service.JoinWaitlist(ctx.Request.Context(), request.MeetingID, request.UserID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"entry_id":   entry.ID,
		"meeting_id": entry.MeetingID,
		"user_id":    entry.UserID,
		"position":   entry.Position,
		"status":     entry.Status.String(),
	})
}

func (server *Server) handleWaitlistLeave(ctx *gin.Context) {
	request := waitlistRequest{
		MeetingID: ctx.Query("meeting_id"),
		UserID:    ctx.Query("user_id"),
	}
	if request.MeetingID == "" || request.UserID == "" {
		if err := ctx.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "meeting_id and user_id are required"))
			return
		}
	}
	if err := server.service.LeaveWaitlist(ctx.Request.Context(), request.MeetingID, request.UserID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "left"})
}

type waitlistAcceptRequest struct {
	MeetingID     string `json:"meeting_id"`
	UserID        string `json:"user_id"`
	PaymentMethod string `json:"payment_method"`
}

func (server *Server) handleWaitlistAccept(ctx *gin.Context) {
	var request waitlistAcceptRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	method := booking.PaymentMethodInstant
	if request.PaymentMethod != "" {
		parsed, err := booking.ParsePaymentMethod(request.PaymentMethod)
		if err != nil {
			ctx.JSON(http.StatusUnprocessableEntity, errorResponse("invalid_payment_method", request.PaymentMethod))
			return
		}
		method = parsed
	}
	registration, err := server.service.AcceptPromotion(ctx.Request.Context(), request.MeetingID, request.UserID, method)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"registration": registrationPayloadFrom(*registration)})
}

type registrationPayload struct {
	ID                  string     `json:"id"`
	MeetingID           string     `json:"meeting_id"`
	UserID              string     `json:"user_id"`
	Status              string     `json:"status"`
	PaymentMethod       string     `json:"payment_method"`
	PaymentStatus       string     `json:"payment_status"`
	PaymentAmountCents  int64      `json:"payment_amount_cents"`
	RefundAmountCents   int64      `json:"refund_amount_cents"`
	TransferSenderLabel string     `json:"transfer_sender_label,omitempty"`
	TransferDeadline    *time.Time `json:"transfer_deadline,omitempty"`
	CancelReason        string     `json:"cancel_reason,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func registrationPayloadFrom(registration booking.Registration) registrationPayload {
	return registrationPayload{
		ID:                  registration.ID,
		MeetingID:           registration.MeetingID,
		UserID:              registration.UserID,
		Status:              registration.Status.String(),
		PaymentMethod:       registration.PaymentMethod.String(),
		PaymentStatus:       registration.PaymentStatus.String(),
		PaymentAmountCents:  registration.PaymentAmountCents.Int64(),
		RefundAmountCents:   registration.RefundAmountCents.Int64(),
		TransferSenderLabel: registration.TransferSenderLabel,
		TransferDeadline:    registration.TransferDeadline,
		CancelReason:        registration.CancelReason,
		CancelledAt:         registration.CancelledAt,
		CreatedAt:           registration.CreatedAt,
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
