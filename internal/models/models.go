package models

import (
	"time"

	"gorm.io/gorm"
)

// Listing types. Only auction listings accept bids.
const (
	ListingTypeFixed   = "fixed"
	ListingTypeAuction = "auction"
)

// MaxMessageLength is the upper bound on trimmed message content.
const MaxMessageLength = 2000

// User is referenced by chat and bid rows but its lifecycle is owned by the
// account service; this service only reads it for previews.
type User struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"size:128" json:"name"`
	AvatarURL string         `gorm:"size:512" json:"avatarURL"`
	CreatedAt time.Time      `json:"createdAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Listing struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID    string         `gorm:"type:uuid;not null;index" json:"sellerID"`
	Title       string         `gorm:"size:256;not null" json:"title"`
	Type        string         `gorm:"size:16;not null;default:fixed" json:"type"`
	Price       float64        `gorm:"not null" json:"price"`
	StartingBid *float64       `json:"startingBid,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BidFloor is the minimum acceptable first bid: the configured starting bid,
// falling back to the listing price.
func (l *Listing) BidFloor() float64 {
	if l.StartingBid != nil {
		return *l.StartingBid
	}
	return l.Price
}

// ChatRoom is a durable two-party conversation, optionally tied to a listing.
// PairKey is the order-independent identity of the participant pair; its
// unique index is what prevents duplicate rooms when both sides open a
// conversation at the same time. The index is partial over live rows so a
// soft-deleted room does not block the pair from starting over.
type ChatRoom struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	InitiatorID   string         `gorm:"type:uuid;not null;index" json:"initiatorID"`
	ParticipantID string         `gorm:"type:uuid;not null;index" json:"participantID"`
	ListingID     *string        `gorm:"type:uuid;index" json:"listingID,omitempty"`
	PairKey       string         `gorm:"size:80;not null;uniqueIndex:idx_chat_rooms_pair,where:deleted_at IS NULL" json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasParticipant reports whether userID is one of the two room members.
func (r *ChatRoom) HasParticipant(userID string) bool {
	return r.InitiatorID == userID || r.ParticipantID == userID
}

// OtherParticipant returns the member that is not userID.
func (r *ChatRoom) OtherParticipant(userID string) string {
	if r.InitiatorID == userID {
		return r.ParticipantID
	}
	return r.InitiatorID
}

// PairKey builds the order-independent key for a participant pair.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Message is immutable once written except for the IsRead false→true flip.
type Message struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	ChatRoomID string         `gorm:"type:uuid;not null;index" json:"chatRoomID"`
	SenderID   string         `gorm:"type:uuid;not null;index" json:"senderID"`
	Content    string         `gorm:"size:2000;not null" json:"content"`
	IsRead     bool           `gorm:"not null;default:false" json:"isRead"`
	CreatedAt  time.Time      `json:"createdAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

type Bid struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID string         `gorm:"type:uuid;not null;index" json:"listingID"`
	BidderID  string         `gorm:"type:uuid;not null;index" json:"bidderID"`
	Amount    float64        `gorm:"not null" json:"amount"`
	CreatedAt time.Time      `json:"createdAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
