package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
	"github.com/pizn-01/carmazium-sub000/internal/service"
)

// BidHandler serves the auction surface.
type BidHandler struct {
	bids     *service.BidService
	validate *validator.Validate
}

func NewBidHandler(bids *service.BidService) *BidHandler {
	return &BidHandler{bids: bids, validate: validator.New()}
}

type placeBidInput struct {
	ListingID string  `json:"listingId" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

// POST /bids
func (h *BidHandler) PlaceBid(c *fiber.Ctx) error {
	var in placeBidInput
	if err := c.BodyParser(&in); err != nil {
		return Fail(c, fmt.Errorf("malformed body: %w", apperrors.ErrValidation))
	}
	if err := h.validate.Struct(in); err != nil {
		return Fail(c, fmt.Errorf("%v: %w", err, apperrors.ErrValidation))
	}
	bid, err := h.bids.PlaceBid(c.Context(), in.ListingID, CallerID(c), in.Amount)
	if err != nil {
		return Fail(c, err)
	}
	return Created(c, bid)
}

// GET /bids/my?page&limit
func (h *BidHandler) MyBids(c *fiber.Ctx) error {
	page, limit := service.NormalizePage(c.QueryInt("page", 1), c.QueryInt("limit", 0))
	views, total, err := h.bids.BidsForUser(c.Context(), CallerID(c), page, limit)
	if err != nil {
		return Fail(c, err)
	}
	return Page(c, views, NewPagination(total, page, limit))
}

// GET /bids/listing/:listingId
func (h *BidHandler) ListingBids(c *fiber.Ctx) error {
	bids, err := h.bids.BidsForListing(c.Context(), c.Params("listingId"))
	if err != nil {
		return Fail(c, err)
	}
	return OK(c, bids)
}

// GET /bids/stats
func (h *BidHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.bids.Stats(c.Context(), CallerID(c))
	if err != nil {
		return Fail(c, err)
	}
	return OK(c, stats)
}
