package quotes

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glassline-erp/glassline-erp/internal/platform/db"
)

// ErrNotFound indicates the requested quote does not exist.
var ErrNotFound = errors.New("quotes: not found")

const (
	quoteNumberPrefix = "QUO-"
	quoteNumberSeed   = 1001
)

var quoteNumberPattern = regexp.MustCompile(`^QUO-(\d+)$`)

// Repository defines persistence operations for quotes and their items.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, q Quote) (int64, error)
	InsertItem(ctx context.Context, item QuoteItem) (int64, error)
	DeleteItems(ctx context.Context, quoteID int64) error
	UpdateHeader(ctx context.Context, id int64, q Quote) error
	UpdateStatus(ctx context.Context, id int64, status QuoteStatus) error
	Get(ctx context.Context, id int64) (*Quote, error)
	GetByNumber(ctx context.Context, number string) (*Quote, error)
	List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error)
	Delete(ctx context.Context, id int64) error
	NextQuoteNumber(ctx context.Context) (string, error)
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed quote repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// WithTx runs fn against a repository bound to a single transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

// IsUniqueViolation reports whether err is a duplicate-key failure, used
// by the service to retry quote number assignment under concurrency.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const quoteColumns = `id, quote_number, quote_date, expected_delivery,
	customer_name, customer_phone, customer_email, billing_address, shipping_address, self_pickup,
	delivery_charges, installation_charges, freight_charges, transport_charges, cutout_charges,
	holes_charges, shape_cutting_charges, jumbo_size_charges, template_charges, handling_charges,
	polish_charges, document_charges, frosted_charges,
	gst_percentage, gst_amount, subtotal, round_off, total,
	status, quote_type, payment_terms, created_by, created_at, updated_at`

func (r *repository) Create(ctx context.Context, q Quote) (int64, error) {
	const query = `
		INSERT INTO quotes (
			quote_number, quote_date, expected_delivery,
			customer_name, customer_phone, customer_email, billing_address, shipping_address, self_pickup,
			delivery_charges, installation_charges, freight_charges, transport_charges, cutout_charges,
			holes_charges, shape_cutting_charges, jumbo_size_charges, template_charges, handling_charges,
			polish_charges, document_charges, frosted_charges,
			gst_percentage, gst_amount, subtotal, round_off, total,
			status, quote_type, payment_terms, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22,
			$23, $24, $25, $26, $27, $28, $29, $30, $31
		) RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		q.QuoteNumber, q.QuoteDate, q.ExpectedDelivery,
		q.CustomerName, q.CustomerPhone, q.CustomerEmail, q.BillingAddress, q.ShippingAddress, q.SelfPickup,
		q.Charges.Delivery, q.Charges.Installation, q.Charges.Freight, q.Charges.Transport, q.Charges.Cutout,
		q.Charges.Holes, q.Charges.ShapeCutting, q.Charges.JumboSize, q.Charges.Template, q.Charges.Handling,
		q.Charges.Polish, q.Charges.Document, q.Charges.Frosted,
		q.GSTPercentage, q.GSTAmount, q.Subtotal, q.RoundOff, q.Total,
		q.Status, q.QuoteType, q.PaymentTerms, q.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) InsertItem(ctx context.Context, item QuoteItem) (int64, error) {
	const query = `
		INSERT INTO quote_items (
			quote_id, parent_id, is_group, sort_order, item_number, particular,
			actual_width, actual_height, chargeable_extra, chargeable_width, chargeable_height,
			unit, unit_square, quantity, rate_sqper, total, hole, cutout, hole_price, cutout_price
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		) RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		item.QuoteID, item.ParentID, item.IsGroup, item.SortOrder, item.ItemNumber, item.Particular,
		item.ActualWidth, item.ActualHeight, item.ChargeableExtra, item.ChargeableWidth, item.ChargeableHeight,
		item.Unit, item.UnitSquare, item.Quantity, item.RateSqPer, item.Total,
		item.Hole, item.Cutout, item.HolePrice, item.CutoutPrice,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) DeleteItems(ctx context.Context, quoteID int64) error {
	// Child rows cascade from their parent group rows, so deleting the
	// full set for the quote is sufficient regardless of nesting.
	_, err := r.db.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, quoteID)
	return err
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, q Quote) error {
	const query = `
		UPDATE quotes SET
			quote_date = $1, expected_delivery = $2,
			customer_name = $3, customer_phone = $4, customer_email = $5,
			billing_address = $6, shipping_address = $7, self_pickup = $8,
			delivery_charges = $9, installation_charges = $10, freight_charges = $11,
			transport_charges = $12, cutout_charges = $13, holes_charges = $14,
			shape_cutting_charges = $15, jumbo_size_charges = $16, template_charges = $17,
			handling_charges = $18, polish_charges = $19, document_charges = $20, frosted_charges = $21,
			gst_percentage = $22, gst_amount = $23, subtotal = $24, round_off = $25, total = $26,
			payment_terms = $27, updated_at = NOW()
		WHERE id = $28`

	tag, err := r.db.Exec(ctx, query,
		q.QuoteDate, q.ExpectedDelivery,
		q.CustomerName, q.CustomerPhone, q.CustomerEmail,
		q.BillingAddress, q.ShippingAddress, q.SelfPickup,
		q.Charges.Delivery, q.Charges.Installation, q.Charges.Freight,
		q.Charges.Transport, q.Charges.Cutout, q.Charges.Holes,
		q.Charges.ShapeCutting, q.Charges.JumboSize, q.Charges.Template,
		q.Charges.Handling, q.Charges.Polish, q.Charges.Document, q.Charges.Frosted,
		q.GSTPercentage, q.GSTAmount, q.Subtotal, q.RoundOff, q.Total,
		q.PaymentTerms, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status QuoteStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE quotes SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quote, error) {
	row := r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
	q, err := scanQuote(row)
	if err != nil {
		return nil, err
	}
	q.Items, err = r.listItems(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Quote, error) {
	row := r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE quote_number = $1`, number)
	q, err := scanQuote(row)
	if err != nil {
		return nil, err
	}
	q.Items, err = r.listItems(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.QuoteType != nil {
		conditions = append(conditions, fmt.Sprintf("quote_type = $%d", argPos))
		args = append(args, *req.QuoteType)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("quote_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("quote_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotes "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM quotes %s ORDER BY quote_date DESC, id DESC LIMIT $%d OFFSET $%d",
		quoteColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NextQuoteNumber derives the next document number from the most recently
// created quote. Numbers follow QUO-<integer>; an empty table or an
// unparseable latest number restarts at the seed. The UNIQUE constraint on
// quote_number plus the service's retry loop closes the race between two
// concurrent creations computing the same next value.
func (r *repository) NextQuoteNumber(ctx context.Context) (string, error) {
	var latest string
	err := r.db.QueryRow(ctx,
		`SELECT quote_number FROM quotes ORDER BY id DESC LIMIT 1`).Scan(&latest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quoteNumberPrefix + strconv.Itoa(quoteNumberSeed), nil
		}
		return "", err
	}

	match := quoteNumberPattern.FindStringSubmatch(latest)
	if match == nil {
		return quoteNumberPrefix + strconv.Itoa(quoteNumberSeed), nil
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return quoteNumberPrefix + strconv.Itoa(quoteNumberSeed), nil
	}
	return quoteNumberPrefix + strconv.Itoa(n+1), nil
}

func (r *repository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE quotes SET status = $1, updated_at = NOW() WHERE status = $2 AND quote_date < $3`,
		QuoteStatusExpired, QuoteStatusSent, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) listItems(ctx context.Context, quoteID int64) ([]QuoteItem, error) {
	const query = `
		SELECT id, quote_id, parent_id, is_group, sort_order, item_number, particular,
			actual_width, actual_height, chargeable_extra, chargeable_width, chargeable_height,
			unit, unit_square, quantity, rate_sqper, total, hole, cutout, hole_price, cutout_price
		FROM quote_items WHERE quote_id = $1 ORDER BY sort_order`

	rows, err := r.db.Query(ctx, query, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QuoteItem
	for rows.Next() {
		var item QuoteItem
		if err := rows.Scan(
			&item.ID, &item.QuoteID, &item.ParentID, &item.IsGroup, &item.SortOrder, &item.ItemNumber,
			&item.Particular, &item.ActualWidth, &item.ActualHeight, &item.ChargeableExtra,
			&item.ChargeableWidth, &item.ChargeableHeight, &item.Unit, &item.UnitSquare,
			&item.Quantity, &item.RateSqPer, &item.Total, &item.Hole, &item.Cutout,
			&item.HolePrice, &item.CutoutPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.QuoteNumber, &q.QuoteDate, &q.ExpectedDelivery,
		&q.CustomerName, &q.CustomerPhone, &q.CustomerEmail, &q.BillingAddress, &q.ShippingAddress, &q.SelfPickup,
		&q.Charges.Delivery, &q.Charges.Installation, &q.Charges.Freight, &q.Charges.Transport, &q.Charges.Cutout,
		&q.Charges.Holes, &q.Charges.ShapeCutting, &q.Charges.JumboSize, &q.Charges.Template, &q.Charges.Handling,
		&q.Charges.Polish, &q.Charges.Document, &q.Charges.Frosted,
		&q.GSTPercentage, &q.GSTAmount, &q.Subtotal, &q.RoundOff, &q.Total,
		&q.Status, &q.QuoteType, &q.PaymentTerms, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}
