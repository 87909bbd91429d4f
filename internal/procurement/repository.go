package procurement

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quarry-erp/quarry-erp/internal/platform/db"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// RepositoryPort describes the ledger store operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequisition(ctx context.Context, id int64) (Requisition, []RequisitionItem, error)
	GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, []PurchaseOrderItem, error)
	ListRequisitions(ctx context.Context, filters ListFilters) ([]Requisition, int, error)
	ListPurchaseOrders(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error)
}

// TxRepository exposes the operations valid inside one transaction. Writes to
// requisition rows are guarded by the optimistic version the caller read.
type TxRepository interface {
	GetRequisition(ctx context.Context, id int64) (Requisition, []RequisitionItem, error)
	NextRequisitionNumber(ctx context.Context) (string, error)
	NextPONumber(ctx context.Context) (string, error)
	CreateRequisition(ctx context.Context, req Requisition) (int64, error)
	// UpdateRequisition writes the row only when the stored version equals
	// req.Version; it bumps the version by one. A stale version yields
	// shared.ErrConflict.
	UpdateRequisition(ctx context.Context, req Requisition) error
	ReplaceItems(ctx context.Context, requisitionID int64, items []RequisitionItem) error
	PurchaseOrderByRequisition(ctx context.Context, requisitionID int64) (PurchaseOrder, []PurchaseOrderItem, error)
	CreatePurchaseOrder(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertPOItem(ctx context.Context, item PurchaseOrderItem) error
	// UpdatePOStatus progresses a purchase order, guarded by the expected
	// current status.
	UpdatePOStatus(ctx context.Context, id int64, from, to POStatus) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const requisitionColumns = `id, number, project_id, supplier_id, requester_id, request_date,
	delivery_date, deliver_to, instructions, total_amount::text, status,
	COALESCE(reject_reason, ''), COALESCE(cancel_reason, ''), COALESCE(po_id, 0),
	version, created_at, updated_at`

func scanRequisition(row pgx.Row) (Requisition, error) {
	var req Requisition
	var total string
	err := row.Scan(&req.ID, &req.Number, &req.ProjectID, &req.SupplierID, &req.RequesterID,
		&req.RequestDate, &req.DeliveryDate, &req.DeliverTo, &req.Instructions, &total,
		&req.Status, &req.RejectReason, &req.CancelReason, &req.POID,
		&req.Version, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return Requisition{}, err
	}
	req.TotalAmount, err = decimal.NewFromString(total)
	return req, err
}

// GetRequisition returns the requisition and its ordered items.
func (r *Repository) GetRequisition(ctx context.Context, id int64) (Requisition, []RequisitionItem, error) {
	return getRequisition(ctx, r.pool, id)
}

func (tx *txRepo) GetRequisition(ctx context.Context, id int64) (Requisition, []RequisitionItem, error) {
	return getRequisition(ctx, tx.tx, id)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func getRequisition(ctx context.Context, q querier, id int64) (Requisition, []RequisitionItem, error) {
	req, err := scanRequisition(q.QueryRow(ctx,
		`SELECT `+requisitionColumns+` FROM requisitions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Requisition{}, nil, fmt.Errorf("requisition %d: %w", id, shared.ErrNotFound)
		}
		return Requisition{}, nil, err
	}

	rows, err := q.Query(ctx, `SELECT id, requisition_id, description, quantity, unit,
		unit_price::text, line_total::text
	FROM requisition_items WHERE requisition_id = $1 ORDER BY id`, id)
	if err != nil {
		return Requisition{}, nil, err
	}
	defer rows.Close()

	var items []RequisitionItem
	for rows.Next() {
		var it RequisitionItem
		var price, lineTotal string
		if err := rows.Scan(&it.ID, &it.RequisitionID, &it.Description, &it.Quantity, &it.Unit, &price, &lineTotal); err != nil {
			return Requisition{}, nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return Requisition{}, nil, err
		}
		if it.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
			return Requisition{}, nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return Requisition{}, nil, err
	}
	return req, items, nil
}

// NextRequisitionNumber allocates the next requisition number. The sequence
// is global and never reused.
func (tx *txRepo) NextRequisitionNumber(ctx context.Context) (string, error) {
	var n int64
	if err := tx.tx.QueryRow(ctx, `SELECT nextval('requisition_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("REQ-%06d", n), nil
}

// NextPONumber allocates the next purchase order number. nextval is a single
// serialized mutation point, so concurrent conversions never share a number.
func (tx *txRepo) NextPONumber(ctx context.Context) (string, error) {
	var n int64
	if err := tx.tx.QueryRow(ctx, `SELECT nextval('po_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%06d", n), nil
}

func (tx *txRepo) CreateRequisition(ctx context.Context, req Requisition) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO requisitions
		(number, project_id, supplier_id, requester_id, request_date, delivery_date,
		 deliver_to, instructions, total_amount, status, version, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, NOW(), NOW())
	RETURNING id`,
		req.Number, req.ProjectID, req.SupplierID, req.RequesterID, req.RequestDate,
		req.DeliveryDate, req.DeliverTo, req.Instructions, req.TotalAmount.String(), string(req.Status)).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateRequisition(ctx context.Context, req Requisition) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE requisitions SET
		project_id = $1, supplier_id = $2, delivery_date = $3, deliver_to = $4,
		instructions = $5, total_amount = $6, status = $7,
		reject_reason = NULLIF($8, ''), cancel_reason = NULLIF($9, ''),
		po_id = NULLIF($10, 0), version = version + 1, updated_at = NOW()
	WHERE id = $11 AND version = $12`,
		req.ProjectID, req.SupplierID, req.DeliveryDate, req.DeliverTo,
		req.Instructions, req.TotalAmount.String(), string(req.Status),
		req.RejectReason, req.CancelReason, req.POID, req.ID, req.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.tx.QueryRow(ctx, `SELECT true FROM requisitions WHERE id = $1`, req.ID).Scan(&exists); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("requisition %d: %w", req.ID, shared.ErrNotFound)
			}
			return err
		}
		return fmt.Errorf("requisition %d version %d: %w", req.ID, req.Version, shared.ErrConflict)
	}
	return nil
}

func (tx *txRepo) ReplaceItems(ctx context.Context, requisitionID int64, items []RequisitionItem) error {
	if _, err := tx.tx.Exec(ctx, `DELETE FROM requisition_items WHERE requisition_id = $1`, requisitionID); err != nil {
		return err
	}
	for _, it := range items {
		_, err := tx.tx.Exec(ctx, `INSERT INTO requisition_items
			(requisition_id, description, quantity, unit, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)`,
			requisitionID, it.Description, it.Quantity, it.Unit, it.UnitPrice.String(), it.LineTotal.String())
		if err != nil {
			return err
		}
	}
	return nil
}

const poColumns = `id, number, requisition_id, project_id, supplier_id, total_amount::text, status, created_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var total string
	err := row.Scan(&po.ID, &po.Number, &po.RequisitionID, &po.ProjectID, &po.SupplierID, &total, &po.Status, &po.CreatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.TotalAmount, err = decimal.NewFromString(total)
	return po, err
}

// GetPurchaseOrder returns the purchase order and its frozen items.
func (r *Repository) GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, fmt.Errorf("purchase order %d: %w", id, shared.ErrNotFound)
		}
		return PurchaseOrder{}, nil, err
	}
	items, err := poItems(ctx, r.pool, po.ID)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, items, nil
}

func (tx *txRepo) PurchaseOrderByRequisition(ctx context.Context, requisitionID int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	po, err := scanPO(tx.tx.QueryRow(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE requisition_id = $1`, requisitionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, fmt.Errorf("purchase order for requisition %d: %w", requisitionID, shared.ErrNotFound)
		}
		return PurchaseOrder{}, nil, err
	}
	items, err := poItems(ctx, tx.tx, po.ID)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, items, nil
}

func poItems(ctx context.Context, q querier, poID int64) ([]PurchaseOrderItem, error) {
	rows, err := q.Query(ctx, `SELECT id, po_id, description, quantity, unit,
		unit_price::text, line_total::text
	FROM purchase_order_items WHERE po_id = $1 ORDER BY id`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PurchaseOrderItem
	for rows.Next() {
		var it PurchaseOrderItem
		var price, lineTotal string
		if err := rows.Scan(&it.ID, &it.POID, &it.Description, &it.Quantity, &it.Unit, &price, &lineTotal); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if it.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (tx *txRepo) CreatePurchaseOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders
		(number, requisition_id, project_id, supplier_id, total_amount, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	RETURNING id`,
		po.Number, po.RequisitionID, po.ProjectID, po.SupplierID, po.TotalAmount.String(), string(po.Status)).Scan(&id)
	if err != nil {
		// The unique index on requisition_id enforces the one-PO-per-requisition
		// invariant; a concurrent conversion surfaces as a conflict the caller
		// can retry, at which point the idempotent path returns the winner's PO.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("requisition %d already converted: %w", po.RequisitionID, shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (tx *txRepo) InsertPOItem(ctx context.Context, item PurchaseOrderItem) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO purchase_order_items
		(po_id, description, quantity, unit, unit_price, line_total)
	VALUES ($1, $2, $3, $4, $5, $6)`,
		item.POID, item.Description, item.Quantity, item.Unit, item.UnitPrice.String(), item.LineTotal.String())
	return err
}

func (tx *txRepo) UpdatePOStatus(ctx context.Context, id int64, from, to POStatus) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase order %d is no longer %s: %w", id, from, shared.ErrConflict)
	}
	return nil
}

// ListRequisitions returns requisitions matching the filters plus the total count.
func (r *Repository) ListRequisitions(ctx context.Context, filters ListFilters) ([]Requisition, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		where += ` AND status = $` + strconv.Itoa(argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.ProjectID > 0 {
		where += ` AND project_id = $` + strconv.Itoa(argNum)
		args = append(args, filters.ProjectID)
		argNum++
	}
	if filters.SupplierID > 0 {
		where += ` AND supplier_id = $` + strconv.Itoa(argNum)
		args = append(args, filters.SupplierID)
		argNum++
	}
	if filters.Requester > 0 {
		where += ` AND requester_id = $` + strconv.Itoa(argNum)
		args = append(args, filters.Requester)
		argNum++
	}
	if filters.Search != "" {
		where += ` AND number ILIKE $` + strconv.Itoa(argNum)
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requisitions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + requisitionColumns + ` FROM requisitions` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argNum) + ` OFFSET $` + strconv.Itoa(argNum+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reqs []Requisition
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, 0, err
		}
		reqs = append(reqs, req)
	}
	return reqs, total, rows.Err()
}

// ListPurchaseOrders returns purchase orders matching the filters plus the total count.
func (r *Repository) ListPurchaseOrders(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		where += ` AND status = $` + strconv.Itoa(argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.ProjectID > 0 {
		where += ` AND project_id = $` + strconv.Itoa(argNum)
		args = append(args, filters.ProjectID)
		argNum++
	}
	if filters.SupplierID > 0 {
		where += ` AND supplier_id = $` + strconv.Itoa(argNum)
		args = append(args, filters.SupplierID)
		argNum++
	}
	if filters.Search != "" {
		where += ` AND number ILIKE $` + strconv.Itoa(argNum)
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + poColumns + ` FROM purchase_orders` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argNum) + ` OFFSET $` + strconv.Itoa(argNum+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var pos []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		pos = append(pos, po)
	}
	return pos, total, rows.Err()
}
