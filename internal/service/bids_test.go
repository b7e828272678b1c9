package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
	"github.com/pizn-01/carmazium-sub000/internal/events"
	"github.com/pizn-01/carmazium-sub000/internal/models"
	"github.com/pizn-01/carmazium-sub000/internal/repository"
)

func newBidFixture(t *testing.T) (*BidService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := NewBidService(store, store.Listings(), events.NopPublisher{}, zap.NewNop().Sugar())
	return svc, store
}

func auctionListing(seller string, startingBid float64) *models.Listing {
	return &models.Listing{
		ID:          uuid.New().String(),
		SellerID:    seller,
		Title:       "vintage roadster",
		Type:        models.ListingTypeAuction,
		Price:       startingBid,
		StartingBid: &startingBid,
	}
}

func TestPlaceBid_AuctionScenario(t *testing.T) {
	svc, store := newBidFixture(t)
	ctx := context.Background()
	listing := auctionListing("seller", 1000)
	store.AddListing(listing)

	// below the starting bid
	_, err := svc.PlaceBid(ctx, listing.ID, "x", 900)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	// exactly the starting bid is acceptable for the first bid
	first, err := svc.PlaceBid(ctx, listing.ID, "x", 1000)
	require.NoError(t, err)

	// equal to the current highest is not strictly greater
	_, err = svc.PlaceBid(ctx, listing.ID, "y", 1000)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	second, err := svc.PlaceBid(ctx, listing.ID, "y", 1500)
	require.NoError(t, err)

	xBids, _, err := svc.BidsForUser(ctx, "x", 1, 10)
	require.NoError(t, err)
	require.Len(t, xBids, 1)
	require.Equal(t, first.ID, xBids[0].ID)
	require.False(t, xBids[0].IsWinning)

	yBids, _, err := svc.BidsForUser(ctx, "y", 1, 10)
	require.NoError(t, err)
	require.Len(t, yBids, 1)
	require.Equal(t, second.ID, yBids[0].ID)
	require.True(t, yBids[0].IsWinning)
}

func TestPlaceBid_Rejections(t *testing.T) {
	svc, store := newBidFixture(t)
	ctx := context.Background()

	fixed := &models.Listing{ID: uuid.New().String(), SellerID: "seller", Type: models.ListingTypeFixed, Price: 500}
	store.AddListing(fixed)
	auction := auctionListing("seller", 100)
	store.AddListing(auction)

	tests := []struct {
		name      string
		listingID string
		bidderID  string
		amount    float64
		wantErr   error
	}{
		{"zero_amount", auction.ID, "x", 0, apperrors.ErrValidation},
		{"negative_amount", auction.ID, "x", -10, apperrors.ErrValidation},
		{"missing_listing", uuid.New().String(), "x", 200, apperrors.ErrNotFound},
		{"fixed_price_listing", fixed.ID, "x", 600, apperrors.ErrValidation},
		{"own_listing", auction.ID, "seller", 200, apperrors.ErrForbidden},
		{"empty_bidder", auction.ID, "", 200, apperrors.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceBid(ctx, tc.listingID, tc.bidderID, tc.amount)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPlaceBid_FloorDefaultsToPrice(t *testing.T) {
	svc, store := newBidFixture(t)
	ctx := context.Background()
	listing := &models.Listing{ID: uuid.New().String(), SellerID: "seller", Type: models.ListingTypeAuction, Price: 750}
	store.AddListing(listing)

	_, err := svc.PlaceBid(ctx, listing.ID, "x", 700)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.PlaceBid(ctx, listing.ID, "x", 750)
	require.NoError(t, err)
}

func TestPlaceBid_ConcurrentEqualBids(t *testing.T) {
	svc, store := newBidFixture(t)
	ctx := context.Background()
	listing := auctionListing("seller", 100)
	store.AddListing(listing)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PlaceBid(ctx, listing.ID, "bidder", 120)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	require.Equal(t, 1, ok, "exactly one of two equal concurrent bids may win")
}

func TestPlaceBid_MonotonicUnderConcurrency(t *testing.T) {
	svc, store := newBidFixture(t)
	ctx := context.Background()
	listing := auctionListing("seller", 100)
	store.AddListing(listing)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// overlapping amounts; only a strictly increasing subset may land
			_, _ = svc.PlaceBid(ctx, listing.ID, "bidder", 100+float64(10*i))
		}(i)
	}
	wg.Wait()

	bids, err := svc.BidsForListing(ctx, listing.ID)
	require.NoError(t, err)
	require.NotEmpty(t, bids)

	seen := make(map[float64]bool)
	for _, b := range bids {
		require.False(t, seen[b.Amount], "accepted amounts must be unique")
		seen[b.Amount] = true
	}

	top, err := svc.bids.HighestForListing(ctx, listing.ID)
	require.NoError(t, err)
	for _, b := range bids {
		require.LessOrEqual(t, b.Amount, top.Amount)
	}
}

func TestStats_LargePortfolio(t *testing.T) {
	svc, store := newBidFixture(t)
	ctx := context.Background()

	// well past any single page of bid history
	const listings = 600
	const outbid = 100
	for i := 0; i < listings; i++ {
		l := auctionListing("seller", 100)
		store.AddListing(l)
		_, err := svc.PlaceBid(ctx, l.ID, "x", 100)
		require.NoError(t, err)
		if i < outbid {
			_, err = svc.PlaceBid(ctx, l.ID, "y", 200)
			require.NoError(t, err)
		}
	}

	stats, err := svc.Stats(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, int64(listings), stats.TotalBids)
	require.Equal(t, listings-outbid, stats.WinningBids)
}

func TestStats(t *testing.T) {
	svc, store := newBidFixture(t)
	ctx := context.Background()

	a := auctionListing("seller", 100)
	b := auctionListing("seller", 100)
	store.AddListing(a)
	store.AddListing(b)

	_, err := svc.PlaceBid(ctx, a.ID, "x", 100)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, a.ID, "y", 200)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, b.ID, "x", 150)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalBids)
	require.Equal(t, 1, stats.WinningBids, "x wins listing b but was outbid on a")
}
