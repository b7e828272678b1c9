package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
	"github.com/pizn-01/carmazium-sub000/internal/models"
)

// GormStore is the Postgres-backed implementation of all repository
// interfaces. Soft deletes are handled by gorm's DeletedAt scoping; the one
// raw join (UnreadTotal) filters deleted_at explicitly.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates/updates the schema for the chat and bid tables.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.ChatRoom{},
		&models.Message{},
		&models.Bid{},
	)
}

// --- rooms ---

func (s *GormStore) FindOrCreate(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, bool, error) {
	var existing models.ChatRoom
	err := s.db.WithContext(ctx).Where("pair_key = ?", room.PairKey).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find room by pair: %w", err)
	}
	if cerr := s.db.WithContext(ctx).Create(room).Error; cerr != nil {
		// Lost the race against the other side's first contact: the unique
		// index on pair_key rejected the insert, so the room now exists.
		var again models.ChatRoom
		if ferr := s.db.WithContext(ctx).Where("pair_key = ?", room.PairKey).First(&again).Error; ferr == nil {
			return &again, false, nil
		}
		return nil, false, fmt.Errorf("create room: %w", cerr)
	}
	return room, true, nil
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("room %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

func (s *GormStore) ListForUser(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := s.db.WithContext(ctx).
		Where("initiator_id = ? OR participant_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("list rooms for user: %w", err)
	}
	return rooms, nil
}

// --- messages ---

func (s *GormStore) Insert(ctx context.Context, m *models.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", m.ChatRoomID).
			Update("updated_at", m.CreatedAt).Error
	})
}

func (s *GormStore) ListPage(ctx context.Context, roomID string, page, limit int) ([]models.Message, int64, error) {
	// new session so the chain can be reused for Count and Find
	q := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_room_id = ?", roomID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	var msgs []models.Message
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	// newest-first page, reversed for chronological display
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, total, nil
}

func (s *GormStore) MarkRead(ctx context.Context, roomID, readerID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_room_id = ? AND sender_id <> ? AND is_read = ?", roomID, readerID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) UnreadCount(ctx context.Context, roomID, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_room_id = ? AND sender_id <> ? AND is_read = ?", roomID, userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

func (s *GormStore) UnreadTotal(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN chat_rooms ON chat_rooms.id = messages.chat_room_id").
		Where("chat_rooms.deleted_at IS NULL").
		Where("chat_rooms.initiator_id = ? OR chat_rooms.participant_id = ?", userID, userID).
		Where("messages.sender_id <> ? AND messages.is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("unread total: %w", err)
	}
	return n, nil
}

func (s *GormStore) LastMessage(ctx context.Context, roomID string) (*models.Message, error) {
	var m models.Message
	err := s.db.WithContext(ctx).
		Where("chat_room_id = ?", roomID).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last message: %w", err)
	}
	return &m, nil
}

// --- listings ---

func (s *GormStore) FindListingByID(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	err := s.db.WithContext(ctx).First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("listing %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return &l, nil
}

// --- bids ---

func (s *GormStore) PlaceBid(ctx context.Context, listingID string, decide func(listing *models.Listing, highest *models.Bid) (*models.Bid, error)) (*models.Bid, error) {
	var placed *models.Bid
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		// Row lock on the listing serializes concurrent placements so the
		// highest-bid comparison and the insert are one atomic step.
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&listing, "id = ?", listingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("listing %s: %w", listingID, apperrors.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock listing: %w", err)
		}

		var highest *models.Bid
		var top models.Bid
		err = tx.Where("listing_id = ?", listingID).
			Order("amount DESC").
			First(&top).Error
		switch {
		case err == nil:
			highest = &top
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first bid
		default:
			return fmt.Errorf("load highest bid: %w", err)
		}

		bid, err := decide(&listing, highest)
		if err != nil {
			return err
		}
		if err := tx.Create(bid).Error; err != nil {
			return fmt.Errorf("insert bid: %w", err)
		}
		placed = bid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (s *GormStore) HighestForListing(ctx context.Context, listingID string) (*models.Bid, error) {
	var top models.Bid
	err := s.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("amount DESC").
		First(&top).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("highest bid: %w", err)
	}
	return &top, nil
}

func (s *GormStore) ListForListing(ctx context.Context, listingID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("amount DESC").
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("list bids for listing: %w", err)
	}
	return bids, nil
}

func (s *GormStore) ListForBidder(ctx context.Context, bidderID string, page, limit int) ([]models.Bid, int64, error) {
	// new session so the chain can be reused for Count and Find
	q := s.db.WithContext(ctx).Model(&models.Bid{}).
		Where("bidder_id = ?", bidderID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count bids: %w", err)
	}
	var bids []models.Bid
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&bids).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list bids for bidder: %w", err)
	}
	return bids, total, nil
}

func (s *GormStore) WinningCount(ctx context.Context, bidderID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Bid{}).
		Where("bidder_id = ?", bidderID).
		Where("amount = (SELECT MAX(b2.amount) FROM bids b2 WHERE b2.listing_id = bids.listing_id AND b2.deleted_at IS NULL)").
		Distinct("listing_id").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("winning count: %w", err)
	}
	return n, nil
}

// --- users ---

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

var _ RoomRepository = (*GormStore)(nil)
var _ MessageRepository = (*GormStore)(nil)
var _ BidRepository = (*GormStore)(nil)

// listingStore adapts GormStore to ListingRepository without clashing with
// the room FindByID method name.
type listingStore struct{ *GormStore }

func (s listingStore) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	return s.FindListingByID(ctx, id)
}

// Listings returns the ListingRepository view of the store.
func (s *GormStore) Listings() ListingRepository { return listingStore{s} }

// userStore adapts GormStore to UserRepository.
type userStore struct{ *GormStore }

func (s userStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.FindUserByID(ctx, id)
}

// Users returns the UserRepository view of the store.
func (s *GormStore) Users() UserRepository { return userStore{s} }
