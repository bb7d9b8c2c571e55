package quotes

import "time"

// CreateQuoteRequest carries the fields needed to create a quote together
// with its full item tree in one submission.
type CreateQuoteRequest struct {
	QuoteDate        time.Time `validate:"required"`
	ExpectedDelivery *time.Time
	CustomerName     string `validate:"required,max=255"`
	CustomerPhone    string `validate:"max=50"`
	CustomerEmail    string `validate:"omitempty,email"`
	BillingAddress   string `validate:"max=1000"`
	ShippingAddress  string `validate:"max=1000"`
	SelfPickup       bool
	Charges          Charges
	GSTPercentage    float64   `validate:"gte=0,lte=100"`
	QuoteType        QuoteType `validate:"required,oneof=B2B B2C"`
	PaymentTerms     string    `validate:"max=2000"`
	Items            []ItemRecord
}

// UpdateQuoteRequest updates the document header and, when Items is set,
// atomically replaces the whole item tree.
type UpdateQuoteRequest struct {
	QuoteDate        *time.Time
	ExpectedDelivery *time.Time
	CustomerName     *string `validate:"omitempty,max=255"`
	CustomerPhone    *string `validate:"omitempty,max=50"`
	CustomerEmail    *string `validate:"omitempty,email"`
	BillingAddress   *string
	ShippingAddress  *string
	SelfPickup       *bool
	Charges          *Charges
	GSTPercentage    *float64 `validate:"omitempty,gte=0,lte=100"`
	PaymentTerms     *string
	Items            *[]ItemRecord
}

// ListQuotesRequest filters and paginates the quote listing.
type ListQuotesRequest struct {
	Status    *QuoteStatus `validate:"omitempty,oneof=DRAFT SENT ACCEPTED REJECTED EXPIRED"`
	QuoteType *QuoteType   `validate:"omitempty,oneof=B2B B2C"`
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int `validate:"gte=0,lte=1000"`
	Offset    int `validate:"gte=0"`
}
