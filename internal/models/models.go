package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

func ValidRole(role string) bool {
	return role == RoleBuyer || role == RoleSeller || role == RoleAdmin
}

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string     `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string     `gorm:"not null"                 json:"-"`
	Role         string     `gorm:"not null;default:buyer"   json:"role"`
	Active       bool       `gorm:"not null;default:true"    json:"active"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RevokedToken blacklists a session token by its jti. Verification checks
// expiry itself, so rows left behind after expires_at are harmless.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	JTI       string    `gorm:"uniqueIndex;not null" json:"jti"`
	UserID    uint      `gorm:"index;not null"       json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null"       json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type SellerProfile struct {
	ID          uint      `gorm:"primaryKey"           json:"id"`
	UserID      uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	StoreName   string    `gorm:"not null"             json:"store_name"`
	Description string    `json:"description"`
	Earnings    float64   `gorm:"default:0"            json:"earnings"`
	Verified    bool      `gorm:"default:false"        json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p SellerProfile) OwnerID() uint { return p.UserID }

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    uint    `gorm:"index;not null"           json:"seller_id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Description string  `gorm:"not null"                 json:"description"`
	Price       float64 `gorm:"not null"                 json:"price"`
	Count       uint    `json:"count"`
}

func (p Product) OwnerID() uint { return p.SellerID }

type CartItem struct {
	ID        uint `gorm:"primaryKey"                 json:"id"`
	UserID    uint `gorm:"index;not null"             json:"user_id"`
	ProductID uint `gorm:"not null"                   json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0" json:"quantity"`
}

func (i CartItem) OwnerID() uint { return i.UserID }

type Order struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	UserID    uint      `gorm:"index;not null"       json:"user_id"`
	Status    string    `gorm:"not null;default:new" json:"status"`
	Total     float64   `gorm:"not null"             json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

func (o Order) OwnerID() uint { return o.UserID }

type OrderItem struct {
	ID        uint    `gorm:"primaryKey"     json:"id"`
	OrderID   uint    `gorm:"index;not null" json:"order_id"`
	ProductID uint    `gorm:"not null"       json:"product_id"`
	Quantity  uint    `gorm:"not null"       json:"quantity"`
	Price     float64 `gorm:"not null"       json:"price"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	Rating    int       `gorm:"not null"       json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r Review) OwnerID() uint { return r.UserID }

type WishlistItem struct {
	ID        uint `gorm:"primaryKey"                        json:"id"`
	UserID    uint `gorm:"uniqueIndex:idx_wish_user_product" json:"user_id"`
	ProductID uint `gorm:"uniqueIndex:idx_wish_user_product" json:"product_id"`
}

func (i WishlistItem) OwnerID() uint { return i.UserID }

type Message struct {
	ID         uint      `gorm:"primaryKey"     json:"id"`
	SenderID   uint      `gorm:"index;not null" json:"sender_id"`
	ReceiverID uint      `gorm:"index;not null" json:"receiver_id"`
	OrderID    *uint     `json:"order_id,omitempty"`
	Content    string    `gorm:"not null"       json:"content"`
	Read       bool      `gorm:"default:false"  json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m Message) OwnerID() uint { return m.SenderID }

const (
	PayoutPending    = "pending"
	PayoutProcessing = "processing"
	PayoutCompleted  = "completed"
	PayoutFailed     = "failed"
)

type Payout struct {
	ID            uint       `gorm:"primaryKey"               json:"id"`
	SellerID      uint       `gorm:"index;not null"           json:"seller_id"`
	Amount        float64    `gorm:"not null"                 json:"amount"`
	Status        string     `gorm:"not null;default:pending" json:"status"`
	TransactionID string     `gorm:"uniqueIndex;not null"     json:"transaction_id"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

func (p Payout) OwnerID() uint { return p.SellerID }

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RevokedToken{},
		&SellerProfile{},
		&Product{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Review{},
		&WishlistItem{},
		&Message{},
		&Payout{},
	)
}
