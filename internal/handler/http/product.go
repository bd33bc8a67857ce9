package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Palak111111/Scrapify-server/internal/repository"
	"github.com/Palak111111/Scrapify-server/internal/service"
	"github.com/Palak111111/Scrapify-server/pkg/httputil"
	"github.com/Palak111111/Scrapify-server/pkg/validator"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service      *service.ProductService
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger, maxBodyBytes int64) *ProductHandler {
	return &ProductHandler{
		service:      svc,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// --- Request DTOs ---

// ProductRequest is the JSON body for creating a product.
type ProductRequest struct {
	ProductName        string   `json:"productName" validate:"required,max=500"`
	Description        string   `json:"description" validate:"max=5000"`
	Price              *float64 `json:"price" validate:"required,gte=0"`
	Quantity           *int     `json:"quantity" validate:"required,gte=0"`
	Weight             float64  `json:"weight" validate:"gte=0"`
	SellerID           string   `json:"sellerId" validate:"required,objectid"`
	Category           string   `json:"category" validate:"required,max=200"`
	Brand              string   `json:"brand" validate:"max=200"`
	ShippingCost       float64  `json:"shippingCost" validate:"gte=0"`
	Commission         float64  `json:"commission" validate:"gte=0"`
	DiscountPercentage float64  `json:"discountPercentage" validate:"gte=0,lte=100"`
	Thumbnail          string   `json:"thumbnail" validate:"max=2048"`
	Images             []string `json:"images" validate:"omitempty,dive,max=2048"`
}

// BulkProductRequest is the JSON body for inserting many products at once.
type BulkProductRequest struct {
	Products []ProductRequest `json:"products" validate:"required,min=1,dive"`
}

// UpdateProductRequest is the JSON body for a full product update. The id is
// taken from the path when present, otherwise from the body. A non-empty
// userId carries the single review that replaces the review list.
type UpdateProductRequest struct {
	ID string `json:"id" validate:"omitempty,objectid"`
	ProductRequest
	UserID     string     `json:"userId" validate:"omitempty,objectid"`
	UserReview string     `json:"userReview" validate:"required_with=UserID,max=5000"`
	Date       *time.Time `json:"date"`
	Version    *int64     `json:"version" validate:"omitempty,gte=0"`
}

func (req *ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		ProductName:        req.ProductName,
		Description:        req.Description,
		Price:              *req.Price,
		Quantity:           *req.Quantity,
		Weight:             req.Weight,
		SellerID:           req.SellerID,
		Category:           req.Category,
		Brand:              req.Brand,
		ShippingCost:       req.ShippingCost,
		Commission:         req.Commission,
		DiscountPercentage: req.DiscountPercentage,
		Thumbnail:          req.Thumbnail,
		Images:             req.Images,
	}
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.FindProducts(r.Context(), repository.ProductFilter{})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseObjectID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.findProducts(w, r, repository.ProductFilter{ID: &id})
}

// GetProductsByName handles GET /api/v1/products/name/{name}
func (h *ProductHandler) GetProductsByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.findProducts(w, r, repository.ProductFilter{Name: &name})
}

// GetProductsByCategory handles GET /api/v1/products/category/{category}
func (h *ProductHandler) GetProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	h.findProducts(w, r, repository.ProductFilter{Category: &category})
}

// GetProductsByPrice handles GET /api/v1/products/price/{price}
func (h *ProductHandler) GetProductsByPrice(w http.ResponseWriter, r *http.Request) {
	price, ok := httputil.ParseFloat(w, r, "price", chi.URLParam(r, "price"))
	if !ok {
		return
	}
	h.findProducts(w, r, repository.ProductFilter{Price: &price})
}

// findProducts writes every match under "product"; no match is an empty list.
func (h *ProductHandler) findProducts(w http.ResponseWriter, r *http.Request, filter repository.ProductFilter) {
	products, err := h.service.FindProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"product": products})
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := validator.DecodeAndValidate(w, r, &req, h.maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	input := req.toInput()
	product, err := h.service.CreateProduct(r.Context(), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "product added successfully",
		"id":      product.ID,
	})
}

// CreateProducts handles POST /api/v1/products/bulk
func (h *ProductHandler) CreateProducts(w http.ResponseWriter, r *http.Request) {
	var req BulkProductRequest
	if err := validator.DecodeAndValidate(w, r, &req, h.maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	inputs := make([]service.ProductInput, 0, len(req.Products))
	for i := range req.Products {
		inputs = append(inputs, req.Products[i].toInput())
	}

	ids, err := h.service.CreateProducts(r.Context(), inputs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "products added successfully",
		"result": map[string]any{
			"insertedCount": len(ids),
			"insertedIds":   ids,
		},
	})
}

// UpdateProduct handles PUT /api/v1/products and PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(w, r, &req, h.maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	raw := req.ID
	if param := chi.URLParam(r, "id"); param != "" {
		raw = param
	}
	id, ok := httputil.ParseObjectID(w, r, raw)
	if !ok {
		return
	}

	input := &service.UpdateProductInput{
		ID:           id,
		ProductInput: req.toInput(),
		Version:      req.Version,
	}
	if req.UserID != "" {
		review := &service.InlineReview{UserID: req.UserID, UserReview: req.UserReview}
		if req.Date != nil {
			review.Date = req.Date.UTC()
		} else {
			review.Date = time.Now().UTC()
		}
		input.Review = review
	}

	if _, err := h.service.UpdateProduct(r.Context(), input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "product updated successfully")
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseObjectID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "product deleted successfully")
}

// DeleteProductsByName handles DELETE /api/v1/products/name/{name}
func (h *ProductHandler) DeleteProductsByName(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteProductsByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "products deleted successfully",
		"deleted": deleted,
	})
}
