package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Palak111111/Scrapify-server/internal/service"
	"github.com/Palak111111/Scrapify-server/pkg/httputil"
	"github.com/Palak111111/Scrapify-server/pkg/validator"
)

// ReviewHandler handles HTTP requests for rating and review endpoints.
type ReviewHandler struct {
	service      *service.ReviewService
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger, maxBodyBytes int64) *ReviewHandler {
	return &ReviewHandler{
		service:      svc,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// --- Request DTOs ---

// RateProductRequest is the JSON body for rating a product.
type RateProductRequest struct {
	ProductID string   `json:"productId" validate:"required,objectid"`
	UserID    string   `json:"userId" validate:"required,objectid"`
	Rating    *float64 `json:"rating" validate:"required,gte=0,lte=5"`
}

// ReviewProductRequest is the JSON body for reviewing a product.
type ReviewProductRequest struct {
	ProductID  string     `json:"productId" validate:"required,objectid"`
	UserID     string     `json:"userId" validate:"required,objectid"`
	UserReview string     `json:"userReview" validate:"required,max=5000"`
	Date       *time.Time `json:"date"`
}

// --- Handlers ---

// RateProduct handles POST /api/v1/products/rating
func (h *ReviewHandler) RateProduct(w http.ResponseWriter, r *http.Request) {
	var req RateProductRequest
	if err := validator.DecodeAndValidate(w, r, &req, h.maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	_, err := h.service.RateProduct(r.Context(), &service.RateInput{
		ProductID: req.ProductID,
		UserID:    req.UserID,
		Rating:    *req.Rating,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "rating added successfully")
}

// ReviewProduct handles POST /api/v1/products/review
func (h *ReviewHandler) ReviewProduct(w http.ResponseWriter, r *http.Request) {
	var req ReviewProductRequest
	if err := validator.DecodeAndValidate(w, r, &req, h.maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	input := &service.ReviewInput{
		ProductID:  req.ProductID,
		UserID:     req.UserID,
		UserReview: req.UserReview,
	}
	if req.Date != nil {
		input.Date = req.Date.UTC()
	}

	if _, err := h.service.ReviewProduct(r.Context(), input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, "review added successfully")
}
