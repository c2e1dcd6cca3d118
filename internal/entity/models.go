package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a bakery product in the catalog.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image,omitempty"`
	Featured    bool            `json:"featured"`
	Allergens   []string        `json:"allergens,omitempty"`
}

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentBCA  PaymentMethod = "bca"
)

// IsTransfer reports whether the payment needs a manual proof review.
func (m PaymentMethod) IsTransfer() bool {
	return m == PaymentBCA
}

// DeliveryMethod is how the order leaves the bakery.
type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryDelivery DeliveryMethod = "delivery"
)

// OrderItem is a line item within an order: the order needs Quantity units of ProductID.
type OrderItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Order represents a customer order as seen by staff.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          string          `json:"user_id"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          Status          `json:"status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Paid            bool            `json:"paid"`
	DeliveryMethod  DeliveryMethod  `json:"delivery_method"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	VerifiedBy      string          `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`
	ConsumedAt      *time.Time      `json:"consumed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// VisibleToStaff reports whether the order belongs on the staff board.
// Unpaid transfer orders stay hidden until the payment is verified.
func (o Order) VisibleToStaff() bool {
	return !(o.PaymentMethod.IsTransfer() && !o.Paid)
}

// PreparedStock is the running count of prepared units for one product.
type PreparedStock struct {
	ProductID string    `json:"product_id"`
	Qty       int       `json:"qty"`
	UpdatedAt time.Time `json:"updated_at"`
}
