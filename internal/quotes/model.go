package quotes

import "time"

// QuoteStatus tracks the lifecycle of a quotation document.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "DRAFT"
	QuoteStatusSent     QuoteStatus = "SENT"
	QuoteStatusAccepted QuoteStatus = "ACCEPTED"
	QuoteStatusRejected QuoteStatus = "REJECTED"
	QuoteStatusExpired  QuoteStatus = "EXPIRED"
)

// QuoteType distinguishes business and retail customers.
type QuoteType string

const (
	QuoteTypeB2B QuoteType = "B2B"
	QuoteTypeB2C QuoteType = "B2C"
)

const (
	// UnitMM marks dimensions measured in millimetres; areas for MM items
	// are converted to square metres.
	UnitMM = "MM"

	// DefaultChargeableExtra is the fabrication margin added to each cut
	// dimension when the client does not override it.
	DefaultChargeableExtra = 30.0

	squareMMPerSquareMetre = 1_000_000.0
)

// Charges is the fixed set of document-level named charge amounts.
type Charges struct {
	Delivery     float64 `json:"delivery_charges" validate:"gte=0"`
	Installation float64 `json:"installation_charges" validate:"gte=0"`
	Freight      float64 `json:"freight_charges" validate:"gte=0"`
	Transport    float64 `json:"transport_charges" validate:"gte=0"`
	Cutout       float64 `json:"cutout_charges" validate:"gte=0"`
	Holes        float64 `json:"holes_charges" validate:"gte=0"`
	ShapeCutting float64 `json:"shape_cutting_charges" validate:"gte=0"`
	JumboSize    float64 `json:"jumbo_size_charges" validate:"gte=0"`
	Template     float64 `json:"template_charges" validate:"gte=0"`
	Handling     float64 `json:"handling_charges" validate:"gte=0"`
	Polish       float64 `json:"polish_charges" validate:"gte=0"`
	Document     float64 `json:"document_charges" validate:"gte=0"`
	Frosted      float64 `json:"frosted_charges" validate:"gte=0"`
}

// Sum returns the aggregate of all named charges.
func (c Charges) Sum() float64 {
	return c.Delivery + c.Installation + c.Freight + c.Transport +
		c.Cutout + c.Holes + c.ShapeCutting + c.JumboSize +
		c.Template + c.Handling + c.Polish + c.Document + c.Frosted
}

// Quote is one customer quotation document.
type Quote struct {
	ID               int64       `json:"id"`
	QuoteNumber      string      `json:"quote_number"`
	QuoteDate        time.Time   `json:"quote_date"`
	ExpectedDelivery *time.Time  `json:"expected_delivery,omitempty"`
	CustomerName     string      `json:"customer_name"`
	CustomerPhone    string      `json:"customer_phone,omitempty"`
	CustomerEmail    string      `json:"customer_email,omitempty"`
	BillingAddress   string      `json:"billing_address,omitempty"`
	ShippingAddress  string      `json:"shipping_address,omitempty"`
	SelfPickup       bool        `json:"self_pickup"`
	Charges          Charges     `json:"charges"`
	GSTPercentage    float64     `json:"gst_percentage"`
	GSTAmount        float64     `json:"gst_amount"`
	Subtotal         float64     `json:"subtotal"`
	RoundOff         float64     `json:"round_off"`
	Total            float64     `json:"total"`
	Status           QuoteStatus `json:"status"`
	QuoteType        QuoteType   `json:"quote_type"`
	PaymentTerms     string      `json:"payment_terms,omitempty"`
	CreatedBy        int64       `json:"created_by"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	Items            []QuoteItem `json:"items,omitempty"`
}

// QuoteItem is one node of a quote's item tree. Group nodes aggregate
// their children; their total is always derived, never entered.
type QuoteItem struct {
	ID               int64    `json:"id"`
	QuoteID          int64    `json:"quote_id"`
	ParentID         *int64   `json:"parent_id,omitempty"`
	IsGroup          bool     `json:"is_group"`
	SortOrder        int      `json:"sort_order"`
	ItemNumber       int      `json:"item_number"`
	Particular       string   `json:"particular"`
	ActualWidth      *float64 `json:"actual_width,omitempty"`
	ActualHeight     *float64 `json:"actual_height,omitempty"`
	ChargeableExtra  float64  `json:"chargeable_extra"`
	ChargeableWidth  *float64 `json:"chargeable_width,omitempty"`
	ChargeableHeight *float64 `json:"chargeable_height,omitempty"`
	Unit             string   `json:"unit"`
	UnitSquare       *float64 `json:"unit_square,omitempty"`
	Quantity         float64  `json:"quantity"`
	RateSqPer        float64  `json:"rate_sqper"`
	Total            float64  `json:"total"`
	Hole             int      `json:"hole"`
	Cutout           int      `json:"cutout"`
	HolePrice        float64  `json:"hole_price"`
	CutoutPrice      float64  `json:"cutout_price"`
}
