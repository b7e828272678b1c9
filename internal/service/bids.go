package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
	"github.com/pizn-01/carmazium-sub000/internal/events"
	"github.com/pizn-01/carmazium-sub000/internal/models"
	"github.com/pizn-01/carmazium-sub000/internal/repository"
)

// BidService enforces the auction rules: bids on a listing form a strictly
// increasing sequence, with the floor set by the starting bid. The
// check-then-insert step runs inside the repository's per-listing critical
// section, so two concurrent bids can never both pass validation against
// each other.
type BidService struct {
	bids     repository.BidRepository
	listings repository.ListingRepository
	pub      events.Publisher
	logger   *zap.SugaredLogger
}

func NewBidService(bids repository.BidRepository, listings repository.ListingRepository, pub events.Publisher, logger *zap.SugaredLogger) *BidService {
	return &BidService{bids: bids, listings: listings, pub: pub, logger: logger}
}

// BidView annotates a bid with its derived winning status.
type BidView struct {
	models.Bid
	IsWinning bool `json:"isWinning"`
}

// BidStats summarizes a bidder's activity for the stats endpoint.
type BidStats struct {
	TotalBids   int64 `json:"totalBids"`
	WinningBids int   `json:"winningBids"`
}

// PlaceBid validates and records a bid for an auction listing.
func (s *BidService) PlaceBid(ctx context.Context, listingID, bidderID string, amount float64) (*models.Bid, error) {
	if listingID == "" || bidderID == "" {
		return nil, fmt.Errorf("listing and bidder are required: %w", apperrors.ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("bid amount must be positive: %w", apperrors.ErrValidation)
	}

	bid, err := s.bids.PlaceBid(ctx, listingID, func(listing *models.Listing, highest *models.Bid) (*models.Bid, error) {
		if listing.Type != models.ListingTypeAuction {
			return nil, fmt.Errorf("listing %s does not accept bids: %w", listingID, apperrors.ErrValidation)
		}
		if listing.SellerID == bidderID {
			return nil, fmt.Errorf("sellers cannot bid on their own listing: %w", apperrors.ErrForbidden)
		}
		if highest != nil {
			if amount <= highest.Amount {
				return nil, fmt.Errorf("bid must exceed current highest %.2f: %w", highest.Amount, apperrors.ErrValidation)
			}
		} else if amount < listing.BidFloor() {
			return nil, fmt.Errorf("bid is below the starting bid %.2f: %w", listing.BidFloor(), apperrors.ErrValidation)
		}
		return &models.Bid{
			ID:        uuid.New().String(),
			ListingID: listingID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("bid placed", "listingID", listingID, "bidderID", bidderID, "amount", amount)
	if err := s.pub.Publish(ctx, events.TypeBidPlaced, map[string]any{
		"bidId":     bid.ID,
		"listingId": bid.ListingID,
		"bidderId":  bid.BidderID,
		"amount":    bid.Amount,
		"createdAt": bid.CreatedAt,
	}); err != nil {
		s.logger.Warnw("publish bid event", "bidID", bid.ID, "err", err)
	}
	return bid, nil
}

// BidsForUser pages through the bidder's own bids, newest first, each marked
// with whether it currently wins its listing. Winning status is derived at
// read time, never stored.
func (s *BidService) BidsForUser(ctx context.Context, bidderID string, page, limit int) ([]BidView, int64, error) {
	page, limit = NormalizePage(page, limit)
	bids, total, err := s.bids.ListForBidder(ctx, bidderID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	// one highest-bid lookup per distinct listing on the page
	highestByListing := make(map[string]float64)
	for _, b := range bids {
		if _, ok := highestByListing[b.ListingID]; ok {
			continue
		}
		top, err := s.bids.HighestForListing(ctx, b.ListingID)
		if err != nil {
			return nil, 0, err
		}
		if top != nil {
			highestByListing[b.ListingID] = top.Amount
		}
	}

	views := make([]BidView, 0, len(bids))
	for _, b := range bids {
		views = append(views, BidView{Bid: b, IsWinning: b.Amount == highestByListing[b.ListingID]})
	}
	return views, total, nil
}

// BidsForListing returns all live bids for a listing, highest first.
func (s *BidService) BidsForListing(ctx context.Context, listingID string) ([]models.Bid, error) {
	if _, err := s.listings.FindByID(ctx, listingID); err != nil {
		return nil, err
	}
	return s.bids.ListForListing(ctx, listingID)
}

// Stats reports total and currently-winning bid counts for a bidder. Both
// are whole-ledger aggregates computed in the repository.
func (s *BidService) Stats(ctx context.Context, bidderID string) (*BidStats, error) {
	_, total, err := s.bids.ListForBidder(ctx, bidderID, 1, 1)
	if err != nil {
		return nil, err
	}
	winning, err := s.bids.WinningCount(ctx, bidderID)
	if err != nil {
		return nil, err
	}
	return &BidStats{TotalBids: total, WinningBids: int(winning)}, nil
}
