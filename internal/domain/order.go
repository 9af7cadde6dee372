package domain

import "time"

type OrderStatus string

const (
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusPaid           OrderStatus = "paid"
	StatusFailed         OrderStatus = "failed"
	StatusCanceled       OrderStatus = "canceled"
)

// IsTerminal reports whether no further status transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusCanceled
}

func (s OrderStatus) String() string {
	return string(s)
}

type ItemCategory string

const (
	CategoryStandard ItemCategory = "standard"
	CategoryPair     ItemCategory = "pair"
	CategoryTriple   ItemCategory = "triple"
	CategoryOther    ItemCategory = "other"
)

// CartItem is immutable once embedded in an Order. Price is only consulted
// for the "other" category; canvas categories are priced by ComputeTotals.
type CartItem struct {
	Title    string       `json:"title"`
	Size     string       `json:"size,omitempty"`
	Category ItemCategory `json:"category,omitempty"`
	Quantity int          `json:"quantity"`
	Price    float64      `json:"price"`
	ImageURL string       `json:"imageUrl,omitempty"`
}

// Qty returns the effective quantity, defaulting to 1.
func (i CartItem) Qty() int {
	if i.Quantity < 1 {
		return 1
	}
	return i.Quantity
}

type CustomerDetails struct {
	Fullname    string `json:"fullname"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
	City        string `json:"city"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	Zip         string `json:"zip,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type Totals struct {
	StandardQty      int     `json:"standardQty"`
	PairQty          int     `json:"pairQty"`
	TripleQty        int     `json:"tripleQty"`
	StandardSubtotal float64 `json:"standardSubtotal"`
	PairSubtotal     float64 `json:"pairSubtotal"`
	TripleSubtotal   float64 `json:"tripleSubtotal"`
	OtherSubtotal    float64 `json:"otherSubtotal"`
	Subtotal         float64 `json:"subtotal"`
	Shipping         float64 `json:"shipping"`
	Total            float64 `json:"total"`
}

// PaymentInfo mirrors what the Hyp gateway knows about the order. OrderID is
// assigned before redirecting to the payment page; the rest is filled in by
// the confirmation handler. Raw keeps the gateway's full field set as-is
// because that set is externally defined and grows without notice.
type PaymentInfo struct {
	Provider      string            `json:"provider"`
	OrderID       string            `json:"orderId"`
	CCode         string            `json:"ccode"`
	TransactionID string            `json:"transactionId"`
	Raw           map[string]string `json:"raw,omitempty"`
	VerifiedAt    *time.Time        `json:"verifiedAt,omitempty"`
}

type Order struct {
	ID              uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Source          string          `json:"source"`
	Section         string          `json:"section"`
	CustomerDetails CustomerDetails `json:"customerDetails" gorm:"serializer:json"`
	Cart            []CartItem      `json:"cart" gorm:"serializer:json"`
	Totals          Totals          `json:"totals" gorm:"serializer:json"`
	Payment         PaymentInfo     `json:"payment" gorm:"serializer:json"`

	// PaymentOrderID duplicates Payment.OrderID into an indexed column so
	// the confirmation callback can look the order up.
	PaymentOrderID string `json:"-" gorm:"size:64;uniqueIndex"`

	Status OrderStatus `json:"status" gorm:"type:enum('pending_payment','paid','failed','canceled');default:'pending_payment'"`

	AdminMailSent     bool   `json:"adminMailSent"`
	CustomerMailSent  bool   `json:"customerMailSent"`
	AdminMailError    string `json:"adminMailError"`
	CustomerMailError string `json:"customerMailError"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
