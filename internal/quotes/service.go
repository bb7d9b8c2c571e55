package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/glassline-erp/glassline-erp/internal/shared"
)

var (
	// ErrInvalidStatus rejects a disallowed lifecycle transition.
	ErrInvalidStatus = errors.New("quotes: invalid status transition")
)

const numberAssignAttempts = 3

// Service implements the quote operations exposed to the HTTP layer. The
// acting principal is always passed in explicitly; the service never
// reads ambient request state.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// Create builds the item tree from the flat submission, prices it and
// persists the document plus all items in one transaction. Any failure
// rolls back the entire document; no partial quote is ever visible.
func (s *Service) Create(ctx context.Context, req CreateQuoteRequest, createdBy int64) (*Quote, error) {
	forest, unresolved := BuildTree(req.Items)
	s.warnUnresolved(unresolved)

	totals := ComputeDocumentTotals(PriceForest(forest), req.Charges, req.GSTPercentage)

	quote := Quote{
		QuoteDate:        req.QuoteDate,
		ExpectedDelivery: req.ExpectedDelivery,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerEmail:    req.CustomerEmail,
		BillingAddress:   req.BillingAddress,
		ShippingAddress:  req.ShippingAddress,
		SelfPickup:       req.SelfPickup,
		Charges:          req.Charges,
		GSTPercentage:    req.GSTPercentage,
		GSTAmount:        totals.GSTAmount,
		Subtotal:         totals.Subtotal,
		RoundOff:         totals.RoundOff,
		Total:            totals.Total,
		Status:           QuoteStatusDraft,
		QuoteType:        req.QuoteType,
		PaymentTerms:     req.PaymentTerms,
		CreatedBy:        createdBy,
	}

	id, err := s.createWithNumber(ctx, quote, forest)
	if err != nil {
		return nil, err
	}

	s.record(ctx, createdBy, "quote.create", id, map[string]any{"items": len(req.Items)})
	return s.repo.Get(ctx, id)
}

// ReplaceItems deletes every existing item for the document and rebuilds
// the tree and totals from the new records. The replace is atomic: on
// failure the previous items remain untouched.
func (s *Service) ReplaceItems(ctx context.Context, quoteID int64, records []ItemRecord, actorID int64) (*Quote, error) {
	existing, err := s.repo.Get(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}

	forest, unresolved := BuildTree(records)
	s.warnUnresolved(unresolved)

	totals := ComputeDocumentTotals(PriceForest(forest), existing.Charges, existing.GSTPercentage)
	updated := *existing
	updated.Subtotal = totals.Subtotal
	updated.GSTAmount = totals.GSTAmount
	updated.RoundOff = totals.RoundOff
	updated.Total = totals.Total

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteItems(ctx, quoteID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if err := persistForest(ctx, repo, quoteID, forest); err != nil {
			return fmt.Errorf("insert items: %w", err)
		}
		return repo.UpdateHeader(ctx, quoteID, updated)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actorID, "quote.replace_items", quoteID, map[string]any{"items": len(records)})
	return s.repo.Get(ctx, quoteID)
}

// Update modifies header fields of a DRAFT quote and, when Items is set,
// atomically replaces the item tree.
func (s *Service) Update(ctx context.Context, id int64, req UpdateQuoteRequest, actorID int64) (*Quote, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if existing.Status != QuoteStatusDraft {
		return nil, fmt.Errorf("%w: only DRAFT quotes can be edited", ErrInvalidStatus)
	}

	updated := *existing
	applyHeaderUpdates(&updated, req)

	var forest []*TreeNode
	subtotal := existing.Subtotal
	if req.Items != nil {
		var unresolved []string
		forest, unresolved = BuildTree(*req.Items)
		s.warnUnresolved(unresolved)
		subtotal = PriceForest(forest)
	}

	totals := ComputeDocumentTotals(subtotal, updated.Charges, updated.GSTPercentage)
	updated.Subtotal = totals.Subtotal
	updated.GSTAmount = totals.GSTAmount
	updated.RoundOff = totals.RoundOff
	updated.Total = totals.Total

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateHeader(ctx, id, updated); err != nil {
			return err
		}
		if req.Items == nil {
			return nil
		}
		if err := repo.DeleteItems(ctx, id); err != nil {
			return err
		}
		return persistForest(ctx, repo, id, forest)
	})
	if err != nil {
		return nil, fmt.Errorf("update quote: %w", err)
	}

	s.record(ctx, actorID, "quote.update", id, nil)
	return s.repo.Get(ctx, id)
}

// Duplicate creates a fresh DRAFT copy of a quote dated today with a
// newly generated number, carrying over the customer block, charges,
// terms and the full item tree including its group structure.
func (s *Service) Duplicate(ctx context.Context, id int64, createdBy int64) (*Quote, error) {
	source, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get source quote: %w", err)
	}

	forest := ForestFromItems(source.Items)
	totals := ComputeDocumentTotals(PriceForest(forest), source.Charges, source.GSTPercentage)

	copyQuote := Quote{
		QuoteDate:        s.now().Truncate(24 * time.Hour),
		ExpectedDelivery: source.ExpectedDelivery,
		CustomerName:     source.CustomerName,
		CustomerPhone:    source.CustomerPhone,
		CustomerEmail:    source.CustomerEmail,
		BillingAddress:   source.BillingAddress,
		ShippingAddress:  source.ShippingAddress,
		SelfPickup:       source.SelfPickup,
		Charges:          source.Charges,
		GSTPercentage:    source.GSTPercentage,
		GSTAmount:        totals.GSTAmount,
		Subtotal:         totals.Subtotal,
		RoundOff:         totals.RoundOff,
		Total:            totals.Total,
		Status:           QuoteStatusDraft,
		QuoteType:        source.QuoteType,
		PaymentTerms:     source.PaymentTerms,
		CreatedBy:        createdBy,
	}

	newID, err := s.createWithNumber(ctx, copyQuote, forest)
	if err != nil {
		return nil, err
	}

	s.record(ctx, createdBy, "quote.duplicate", newID, map[string]any{"source_id": id})
	return s.repo.Get(ctx, newID)
}

// UpdateStatus applies a lifecycle transition. EXPIRED is only ever set
// by the expiry sweep, never through this path.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status QuoteStatus, actorID int64) (*Quote, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}

	if !transitionAllowed(existing.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, existing.Status, status)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.record(ctx, actorID, "quote.status", id, map[string]any{"from": existing.Status, "to": status})
	return s.repo.Get(ctx, id)
}

// Get returns one quote with its full item set.
func (s *Service) Get(ctx context.Context, id int64) (*Quote, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber looks a quote up by its document number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Quote, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns quotes matching the filters plus the unpaginated count.
func (s *Service) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	return s.repo.List(ctx, req)
}

// Delete removes the quote; items cascade at the database level.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "quote.delete", id, nil)
	return nil
}

// ExpireStale marks SENT quotes older than the validity window as
// EXPIRED and returns the number of affected documents.
func (s *Service) ExpireStale(ctx context.Context, validity time.Duration) (int64, error) {
	cutoff := s.now().Add(-validity)
	n, err := s.repo.ExpireStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire stale quotes: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired stale quotes", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}

// createWithNumber persists the document and its forest in one
// transaction, assigning the quote number inside the same transaction.
// A duplicate-number collision from a concurrent creation is retried
// with a freshly derived number.
func (s *Service) createWithNumber(ctx context.Context, quote Quote, forest []*TreeNode) (int64, error) {
	var id int64
	for attempt := 0; attempt < numberAssignAttempts; attempt++ {
		err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
			number, err := repo.NextQuoteNumber(ctx)
			if err != nil {
				return fmt.Errorf("generate quote number: %w", err)
			}
			quote.QuoteNumber = number

			quoteID, err := repo.Create(ctx, quote)
			if err != nil {
				return fmt.Errorf("create quote: %w", err)
			}
			id = quoteID
			return persistForest(ctx, repo, quoteID, forest)
		})
		if err == nil {
			return id, nil
		}
		if IsUniqueViolation(err) {
			s.logger.Warn("quote number collision, retrying",
				slog.String("number", quote.QuoteNumber), slog.Int("attempt", attempt+1))
			continue
		}
		return 0, err
	}
	return 0, fmt.Errorf("assign quote number: gave up after %d attempts", numberAssignAttempts)
}

// persistForest inserts nodes depth-first, parents before children, so
// every child can reference its parent's real database id. Flatten
// assigns the final sort_order before insertion.
func persistForest(ctx context.Context, repo Repository, quoteID int64, forest []*TreeNode) error {
	Flatten(forest)
	var insert func(node *TreeNode, parentID *int64) error
	insert = func(node *TreeNode, parentID *int64) error {
		item := node.Item
		item.ID = 0
		item.QuoteID = quoteID
		item.ParentID = parentID

		id, err := repo.InsertItem(ctx, item)
		if err != nil {
			return err
		}
		for _, child := range node.Children {
			if err := insert(child, &id); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range forest {
		if err := insert(root, nil); err != nil {
			return err
		}
	}
	return nil
}

func applyHeaderUpdates(q *Quote, req UpdateQuoteRequest) {
	if req.QuoteDate != nil {
		q.QuoteDate = *req.QuoteDate
	}
	if req.ExpectedDelivery != nil {
		q.ExpectedDelivery = req.ExpectedDelivery
	}
	if req.CustomerName != nil {
		q.CustomerName = *req.CustomerName
	}
	if req.CustomerPhone != nil {
		q.CustomerPhone = *req.CustomerPhone
	}
	if req.CustomerEmail != nil {
		q.CustomerEmail = *req.CustomerEmail
	}
	if req.BillingAddress != nil {
		q.BillingAddress = *req.BillingAddress
	}
	if req.ShippingAddress != nil {
		q.ShippingAddress = *req.ShippingAddress
	}
	if req.SelfPickup != nil {
		q.SelfPickup = *req.SelfPickup
	}
	if req.Charges != nil {
		q.Charges = *req.Charges
	}
	if req.GSTPercentage != nil {
		q.GSTPercentage = *req.GSTPercentage
	}
	if req.PaymentTerms != nil {
		q.PaymentTerms = *req.PaymentTerms
	}
}

func transitionAllowed(from, to QuoteStatus) bool {
	switch from {
	case QuoteStatusDraft:
		return to == QuoteStatusSent
	case QuoteStatusSent:
		return to == QuoteStatusAccepted || to == QuoteStatusRejected
	}
	return false
}

func (s *Service) warnUnresolved(tokens []string) {
	if len(tokens) == 0 {
		return
	}
	// Unresolvable parent tokens demote the item to top-level instead of
	// rejecting the submission; surface them so client bugs stay visible.
	s.logger.Warn("unresolved parent tokens, items demoted to top-level",
		slog.String("tokens", strings.Join(tokens, ",")))
}

func (s *Service) record(ctx context.Context, actorID int64, action string, quoteID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "quote",
		EntityID: strconv.FormatInt(quoteID, 10),
		Meta:     meta,
		At:       s.now(),
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
