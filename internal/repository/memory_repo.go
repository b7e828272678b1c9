package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
	"github.com/pizn-01/carmazium-sub000/internal/models"
)

// MemoryStore is a concurrency-safe in-memory implementation of every
// repository interface, used by tests and local development. One mutex
// guards all maps; PlaceBid's critical section runs under the write lock,
// which serializes bid placement the same way the Postgres row lock does.
type MemoryStore struct {
	mu          sync.RWMutex
	rooms       map[string]*models.ChatRoom
	roomsByPair map[string]string
	messages    map[string][]*models.Message // roomID -> chronological
	listings    map[string]*models.Listing
	bids        map[string][]*models.Bid // listingID -> insertion order
	users       map[string]*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:       make(map[string]*models.ChatRoom),
		roomsByPair: make(map[string]string),
		messages:    make(map[string][]*models.Message),
		listings:    make(map[string]*models.Listing),
		bids:        make(map[string][]*models.Bid),
		users:       make(map[string]*models.User),
	}
}

// AddListing seeds a listing. Intended for tests and local fixtures.
func (s *MemoryStore) AddListing(l *models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
}

// AddUser seeds a user. Intended for tests and local fixtures.
func (s *MemoryStore) AddUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// --- rooms ---

func (s *MemoryStore) FindOrCreate(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.roomsByPair[room.PairKey]; ok {
		if existing, ok := s.rooms[id]; ok && !existing.DeletedAt.Valid {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *room
	s.rooms[cp.ID] = &cp
	s.roomsByPair[cp.PairKey] = cp.ID
	out := cp
	return &out, true, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok || room.DeletedAt.Valid {
		return nil, fmt.Errorf("room %s: %w", id, apperrors.ErrNotFound)
	}
	cp := *room
	return &cp, nil
}

func (s *MemoryStore) ListForUser(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ChatRoom
	for _, r := range s.rooms {
		if r.DeletedAt.Valid || !r.HasParticipant(userID) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// --- messages ---

func (s *MemoryStore) Insert(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.messages[cp.ChatRoomID] = append(s.messages[cp.ChatRoomID], &cp)
	if room, ok := s.rooms[cp.ChatRoomID]; ok {
		room.UpdatedAt = cp.CreatedAt
	}
	return nil
}

func (s *MemoryStore) ListPage(ctx context.Context, roomID string, page, limit int) ([]models.Message, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := s.liveMessages(roomID)
	total := int64(len(live))

	// page 1 is the newest window; returned slice stays chronological
	end := len(live) - (page-1)*limit
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.Message, 0, end-start)
	for _, m := range live[start:end] {
		out = append(out, *m)
	}
	return out, total, nil
}

func (s *MemoryStore) liveMessages(roomID string) []*models.Message {
	msgs := s.messages[roomID]
	live := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.DeletedAt.Valid {
			live = append(live, m)
		}
	}
	return live
}

func (s *MemoryStore) MarkRead(ctx context.Context, roomID, readerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages[roomID] {
		if m.DeletedAt.Valid || m.IsRead || m.SenderID == readerID {
			continue
		}
		m.IsRead = true
		n++
	}
	return n, nil
}

func (s *MemoryStore) UnreadCount(ctx context.Context, roomID, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadLocked(roomID, userID), nil
}

func (s *MemoryStore) unreadLocked(roomID, userID string) int64 {
	var n int64
	for _, m := range s.messages[roomID] {
		if !m.DeletedAt.Valid && !m.IsRead && m.SenderID != userID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) UnreadTotal(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for id, r := range s.rooms {
		if r.DeletedAt.Valid || !r.HasParticipant(userID) {
			continue
		}
		n += s.unreadLocked(id, userID)
	}
	return n, nil
}

func (s *MemoryStore) LastMessage(ctx context.Context, roomID string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := s.liveMessages(roomID)
	if len(live) == 0 {
		return nil, nil
	}
	cp := *live[len(live)-1]
	return &cp, nil
}

// --- listings ---

func (s *MemoryStore) FindListingByID(ctx context.Context, id string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok || l.DeletedAt.Valid {
		return nil, fmt.Errorf("listing %s: %w", id, apperrors.ErrNotFound)
	}
	cp := *l
	return &cp, nil
}

// --- bids ---

func (s *MemoryStore) PlaceBid(ctx context.Context, listingID string, decide func(listing *models.Listing, highest *models.Bid) (*models.Bid, error)) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[listingID]
	if !ok || l.DeletedAt.Valid {
		return nil, fmt.Errorf("listing %s: %w", listingID, apperrors.ErrNotFound)
	}
	listing := *l
	highest := s.highestLocked(listingID)
	bid, err := decide(&listing, highest)
	if err != nil {
		return nil, err
	}
	cp := *bid
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.bids[listingID] = append(s.bids[listingID], &cp)
	out := cp
	return &out, nil
}

func (s *MemoryStore) highestLocked(listingID string) *models.Bid {
	var top *models.Bid
	for _, b := range s.bids[listingID] {
		if b.DeletedAt.Valid {
			continue
		}
		if top == nil || b.Amount > top.Amount {
			top = b
		}
	}
	if top == nil {
		return nil
	}
	cp := *top
	return &cp
}

func (s *MemoryStore) HighestForListing(ctx context.Context, listingID string) (*models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highestLocked(listingID), nil
}

func (s *MemoryStore) ListForListing(ctx context.Context, listingID string) ([]models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Bid
	for _, b := range s.bids[listingID] {
		if !b.DeletedAt.Valid {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out, nil
}

func (s *MemoryStore) ListForBidder(ctx context.Context, bidderID string, page, limit int) ([]models.Bid, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []models.Bid
	for _, bids := range s.bids {
		for _, b := range bids {
			if !b.DeletedAt.Valid && b.BidderID == bidderID {
				all = append(all, *b)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))

	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *MemoryStore) WinningCount(ctx context.Context, bidderID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for listingID := range s.bids {
		if top := s.highestLocked(listingID); top != nil && top.BidderID == bidderID {
			n++
		}
	}
	return n, nil
}

// --- users ---

func (s *MemoryStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok || u.DeletedAt.Valid {
		return nil, fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

var _ RoomRepository = (*MemoryStore)(nil)
var _ MessageRepository = (*MemoryStore)(nil)
var _ BidRepository = (*MemoryStore)(nil)

type memListings struct{ *MemoryStore }

func (s memListings) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	return s.FindListingByID(ctx, id)
}

// Listings returns the ListingRepository view of the store.
func (s *MemoryStore) Listings() ListingRepository { return memListings{s} }

type memUsers struct{ *MemoryStore }

func (s memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.FindUserByID(ctx, id)
}

// Users returns the UserRepository view of the store.
func (s *MemoryStore) Users() UserRepository { return memUsers{s} }
