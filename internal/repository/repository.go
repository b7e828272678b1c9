package repository

import (
	"context"

	"github.com/pizn-01/carmazium-sub000/internal/models"
)

// RoomRepository persists chat rooms. Lookups only ever see non-deleted rows.
type RoomRepository interface {
	// FindOrCreate resolves the room for room.PairKey, creating it when
	// absent. The second result reports whether a new room was created.
	// Concurrent first-contact attempts from both sides must resolve to a
	// single room.
	FindOrCreate(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, bool, error)
	FindByID(ctx context.Context, id string) (*models.ChatRoom, error)
	// ListForUser returns the user's rooms ordered by updated_at descending.
	ListForUser(ctx context.Context, userID string) ([]models.ChatRoom, error)
}

// MessageRepository persists room messages.
type MessageRepository interface {
	// Insert writes the message and bumps the room's updated_at in the same
	// logical operation, so most-recently-active ordering stays correct
	// under concurrent sends.
	Insert(ctx context.Context, m *models.Message) error
	// ListPage returns one page in chronological (ascending) order together
	// with the total message count for the room. Pagination is anchored at
	// the newest message.
	ListPage(ctx context.Context, roomID string, page, limit int) ([]models.Message, int64, error)
	// MarkRead flips is_read on every unread message in the room not sent by
	// readerID and returns the number of rows affected.
	MarkRead(ctx context.Context, roomID, readerID string) (int64, error)
	UnreadCount(ctx context.Context, roomID, userID string) (int64, error)
	// UnreadTotal is a single aggregate over all of the user's rooms.
	UnreadTotal(ctx context.Context, userID string) (int64, error)
	LastMessage(ctx context.Context, roomID string) (*models.Message, error)
}

// ListingRepository reads marketplace listings. Listing CRUD lives elsewhere.
type ListingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Listing, error)
}

// BidRepository persists auction bids.
type BidRepository interface {
	// PlaceBid serializes the load-highest/compare/insert sequence per
	// listing. It loads the listing and the current highest non-deleted bid
	// (nil when there is none), passes both to decide, and inserts the bid
	// decide returns inside the same critical section. A decide error aborts
	// without writing.
	PlaceBid(ctx context.Context, listingID string, decide func(listing *models.Listing, highest *models.Bid) (*models.Bid, error)) (*models.Bid, error)
	// HighestForListing returns nil when the listing has no bids.
	HighestForListing(ctx context.Context, listingID string) (*models.Bid, error)
	ListForListing(ctx context.Context, listingID string) ([]models.Bid, error)
	ListForBidder(ctx context.Context, bidderID string, page, limit int) ([]models.Bid, int64, error)
	// WinningCount reports how many listings currently have one of the
	// bidder's bids as their highest non-deleted bid. Computed as a single
	// aggregate over the whole ledger, never a page.
	WinningCount(ctx context.Context, bidderID string) (int64, error)
}

// UserRepository reads user rows for previews.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}
