package db

import (
	"context"
	"fmt"
	"strings"

	"repair-desk/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL core.Store.
type Store struct {
	reader
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// NewStore wraps pool. The schema in migrations/ must be applied.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{reader: reader{q: pool}, pool: pool}
}

// WithTx runs fn inside a database transaction, committing when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &core.StoreUnavailableError{Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback(ctx)

	if err := fn(&writer{reader: reader{q: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

type reader struct {
	q querier
}

const customerColumns = `id, name, phone, email, address, created_at, updated_at`

func scanCustomer(row pgx.Row) (*core.Customer, error) {
	c := &core.Customer{}
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r reader) GetCustomer(ctx context.Context, id int) (*core.Customer, error) {
	c, err := scanCustomer(r.q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "customer", id)
	}
	return c, nil
}

func (r reader) ListCustomers(ctx context.Context, filter core.CustomerFilter) ([]core.Customer, int, error) {
	where := ""
	var args []any
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, likePattern(s))
		where = `WHERE name ILIKE $1 OR phone ILIKE $1 OR email ILIKE $1`
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM customers `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapError(fmt.Errorf("failed to count customers: %w", err))
	}

	query := `SELECT ` + customerColumns + ` FROM customers ` + where + ` ORDER BY created_at DESC, id DESC`
	query, args = withPage(query, args, filter.Page)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(fmt.Errorf("failed to list customers: %w", err))
	}
	defer rows.Close()

	var out []core.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

const serviceColumns = `si.id, si.customer_id, c.name, c.phone, si.device_type, si.brand, si.model,
	si.serial_number, si.problem_description, si.accessories_received, si.estimated_cost, si.actual_cost,
	si.status, si.payment_status, si.received_date, si.completed_date, si.delivered_date,
	si.technician_notes, si.problem_resolved, si.created_at, si.updated_at`

const serviceFrom = ` FROM service_items si JOIN customers c ON c.id = si.customer_id `

func scanServiceItem(row pgx.Row) (*core.ServiceItem, error) {
	s := &core.ServiceItem{}
	err := row.Scan(&s.ID, &s.CustomerID, &s.CustomerName, &s.CustomerPhone, &s.DeviceType, &s.Brand, &s.Model,
		&s.SerialNumber, &s.ProblemDescription, &s.AccessoriesReceived, &s.EstimatedCost, &s.ActualCost,
		&s.Status, &s.PaymentStatus, &s.ReceivedDate, &s.CompletedDate, &s.DeliveredDate,
		&s.TechnicianNotes, &s.ProblemResolved, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r reader) GetServiceItem(ctx context.Context, id int) (*core.ServiceItem, error) {
	s, err := scanServiceItem(r.q.QueryRow(ctx, `SELECT `+serviceColumns+serviceFrom+`WHERE si.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "service item", id)
	}
	return s, nil
}

// serviceWhere renders filter as a WHERE clause over service_items si joined
// with customers c.
func serviceWhere(f core.ServiceFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, likePattern(s))
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(c.name ILIKE $%[1]d OR si.brand ILIKE $%[1]d OR si.model ILIKE $%[1]d OR si.serial_number ILIKE $%[1]d)", n))
	}
	if f.CustomerID != 0 {
		add("si.customer_id = $%d", f.CustomerID)
	}
	if f.DeviceType != "" {
		add("si.device_type = $%d", string(f.DeviceType))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("si.status = ANY($%d)", statuses)
	}
	if !f.ReceivedFrom.IsZero() {
		add("si.received_date >= $%d", f.ReceivedFrom)
	}
	if !f.ReceivedBefore.IsZero() {
		add("si.received_date < $%d", f.ReceivedBefore)
	}
	if !f.CompletedFrom.IsZero() {
		add("si.completed_date >= $%d", f.CompletedFrom)
	}
	if !f.CompletedUntil.IsZero() {
		add("si.completed_date < $%d", f.CompletedUntil)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r reader) ListServiceItems(ctx context.Context, filter core.ServiceFilter) ([]core.ServiceItem, int, error) {
	where, args := serviceWhere(filter)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*)`+serviceFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, mapError(fmt.Errorf("failed to count service items: %w", err))
	}

	query := `SELECT ` + serviceColumns + serviceFrom + where + ` ORDER BY si.received_date DESC, si.id DESC`
	query, args = withPage(query, args, filter.Page)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(fmt.Errorf("failed to list service items: %w", err))
	}
	defer rows.Close()

	var out []core.ServiceItem
	for rows.Next() {
		s, err := scanServiceItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan service item: %w", err)
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

func (r reader) SummarizeServices(ctx context.Context, filter core.ServiceFilter) (*core.ServiceStats, error) {
	where, args := serviceWhere(filter)
	rows, err := r.q.Query(ctx, `
		SELECT si.status, si.payment_status, si.device_type, COUNT(*), COALESCE(SUM(si.actual_cost), 0)`+
		serviceFrom+where+`
		GROUP BY si.status, si.payment_status, si.device_type`, args...)
	if err != nil {
		return nil, mapError(fmt.Errorf("failed to summarize service items: %w", err))
	}
	defer rows.Close()

	stats := core.NewServiceStats()
	for rows.Next() {
		var (
			status  core.ServiceStatus
			payment core.PaymentStatus
			device  core.DeviceType
			count   int
			sum     decimal.Decimal
		)
		if err := rows.Scan(&status, &payment, &device, &count, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan service summary: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPayment[payment] += count
		stats.ByDevice[device] += count
		stats.ActualCost = stats.ActualCost.Add(sum)
		switch payment {
		case core.PaymentPending, core.PaymentPartial:
			stats.Outstanding = stats.Outstanding.Add(sum)
		case core.PaymentReceived:
		}
	}
	return stats, rows.Err()
}

const inwardColumns = `id, service_item_id, inward_number, received_by, condition_on_receipt, estimated_delivery_date, created_at`

func scanInward(row pgx.Row) (*core.ServiceInward, error) {
	in := &core.ServiceInward{}
	err := row.Scan(&in.ID, &in.ServiceItemID, &in.InwardNumber, &in.ReceivedBy, &in.ConditionOnReceipt,
		&in.EstimatedDeliveryDate, &in.CreatedAt)
	return in, err
}

func (r reader) GetInwardByServiceItem(ctx context.Context, serviceItemID int) (*core.ServiceInward, error) {
	in, err := scanInward(r.q.QueryRow(ctx, `SELECT `+inwardColumns+` FROM service_inwards WHERE service_item_id = $1`, serviceItemID))
	if err != nil {
		return nil, notFound(err, "inward for service item", serviceItemID)
	}
	return in, nil
}

func (r reader) LatestInward(ctx context.Context) (*core.ServiceInward, error) {
	in, err := scanInward(r.q.QueryRow(ctx, `SELECT `+inwardColumns+` FROM service_inwards ORDER BY id DESC LIMIT 1`))
	if err != nil {
		return nil, notFound(err, "inward", "latest")
	}
	return in, nil
}

const ledgerColumns = `id, service_item_id, transaction_type, description, amount, date, notes, created_by`

func scanLedgerRows(rows pgx.Rows) ([]core.LedgerEntry, error) {
	defer rows.Close()
	out := []core.LedgerEntry{}
	for rows.Next() {
		var e core.LedgerEntry
		if err := rows.Scan(&e.ID, &e.ServiceItemID, &e.TransactionType, &e.Description, &e.Amount,
			&e.Date, &e.Notes, &e.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r reader) ListLedgerEntries(ctx context.Context, serviceItemID int) ([]core.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, `SELECT `+ledgerColumns+` FROM service_ledger
		WHERE service_item_id = $1 ORDER BY date, id`, serviceItemID)
	if err != nil {
		return nil, mapError(fmt.Errorf("failed to list ledger entries: %w", err))
	}
	return scanLedgerRows(rows)
}

func (r reader) ListAllLedgerEntries(ctx context.Context, page core.Page) ([]core.LedgerEntry, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM service_ledger`).Scan(&total); err != nil {
		return nil, 0, mapError(fmt.Errorf("failed to count ledger entries: %w", err))
	}
	query, args := withPage(`SELECT `+ledgerColumns+` FROM service_ledger ORDER BY date DESC, id DESC`, nil, page)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(fmt.Errorf("failed to list ledger: %w", err))
	}
	entries, err := scanLedgerRows(rows)
	return entries, total, err
}

func (r reader) ListExpenses(ctx context.Context, serviceItemID int) ([]core.ServiceExpense, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, service_item_id, expense_type, description, amount, date, created_at
		FROM service_expenses WHERE service_item_id = $1 ORDER BY date, id`, serviceItemID)
	if err != nil {
		return nil, mapError(fmt.Errorf("failed to list expenses: %w", err))
	}
	defer rows.Close()

	out := []core.ServiceExpense{}
	for rows.Next() {
		var e core.ServiceExpense
		if err := rows.Scan(&e.ID, &e.ServiceItemID, &e.ExpenseType, &e.Description, &e.Amount, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const userColumns = `id, username, email, password_hash, is_staff, created_at`

func scanUser(row pgx.Row) (*core.User, error) {
	u := &core.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsStaff, &u.CreatedAt)
	return u, err
}

func (r reader) GetUser(ctx context.Context, id int) (*core.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (r reader) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, notFound(err, "user", username)
	}
	return u, nil
}

// ── Writes ───────────────────────────────────────────────────────────────────

type writer struct {
	reader
}

func (w *writer) FindCustomerByPhone(ctx context.Context, phone string) (*core.Customer, error) {
	c, err := scanCustomer(w.q.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE phone = $1 ORDER BY id LIMIT 1`, phone))
	if err != nil {
		return nil, notFound(err, "customer with phone", phone)
	}
	return c, nil
}

func (w *writer) CreateCustomer(ctx context.Context, c *core.Customer) error {
	err := w.q.QueryRow(ctx, `
		INSERT INTO customers (name, phone, email, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		c.Name, c.Phone, c.Email, c.Address, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return mapError(fmt.Errorf("failed to insert customer: %w", err))
	}
	return nil
}

func (w *writer) DeleteCustomer(ctx context.Context, id int) error {
	tag, err := w.q.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Errorf("failed to delete customer %d: %w", id, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (w *writer) CreateServiceItem(ctx context.Context, s *core.ServiceItem) error {
	err := w.q.QueryRow(ctx, `
		INSERT INTO service_items (customer_id, device_type, brand, model, serial_number, problem_description,
			accessories_received, estimated_cost, actual_cost, status, payment_status, received_date,
			completed_date, delivered_date, technician_notes, problem_resolved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`,
		s.CustomerID, string(s.DeviceType), s.Brand, s.Model, s.SerialNumber, s.ProblemDescription,
		s.AccessoriesReceived, s.EstimatedCost, s.ActualCost, string(s.Status), string(s.PaymentStatus), s.ReceivedDate,
		s.CompletedDate, s.DeliveredDate, s.TechnicianNotes, s.ProblemResolved, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return mapError(fmt.Errorf("failed to insert service item: %w", err))
	}
	return nil
}

// UpdateServiceItem writes every mutable column. customer_id, received_date
// and created_at are never rewritten.
func (w *writer) UpdateServiceItem(ctx context.Context, s *core.ServiceItem) error {
	tag, err := w.q.Exec(ctx, `
		UPDATE service_items SET
			device_type = $2, brand = $3, model = $4, serial_number = $5, problem_description = $6,
			accessories_received = $7, estimated_cost = $8, actual_cost = $9, status = $10,
			payment_status = $11, completed_date = $12, delivered_date = $13, technician_notes = $14,
			problem_resolved = $15, updated_at = $16
		WHERE id = $1`,
		s.ID, string(s.DeviceType), s.Brand, s.Model, s.SerialNumber, s.ProblemDescription,
		s.AccessoriesReceived, s.EstimatedCost, s.ActualCost, string(s.Status),
		string(s.PaymentStatus), s.CompletedDate, s.DeliveredDate, s.TechnicianNotes,
		s.ProblemResolved, s.UpdatedAt,
	)
	if err != nil {
		return mapError(fmt.Errorf("failed to update service item %d: %w", s.ID, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("service item %d: %w", s.ID, core.ErrNotFound)
	}
	return nil
}

func (w *writer) DeleteServiceItem(ctx context.Context, id int) error {
	tag, err := w.q.Exec(ctx, `DELETE FROM service_items WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Errorf("failed to delete service item %d: %w", id, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("service item %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (w *writer) CreateInward(ctx context.Context, in *core.ServiceInward) error {
	err := w.q.QueryRow(ctx, `
		INSERT INTO service_inwards (service_item_id, inward_number, received_by, condition_on_receipt,
			estimated_delivery_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		in.ServiceItemID, in.InwardNumber, in.ReceivedBy, in.ConditionOnReceipt, in.EstimatedDeliveryDate, in.CreatedAt,
	).Scan(&in.ID)
	if err != nil {
		err = mapError(err)
		if conflict, ok := err.(*core.UniquenessConflictError); ok {
			conflict.Value = in.InwardNumber
			return conflict
		}
		return fmt.Errorf("failed to insert inward %s: %w", in.InwardNumber, err)
	}
	return nil
}

func (w *writer) InsertLedgerEntry(ctx context.Context, e *core.LedgerEntry) error {
	err := w.q.QueryRow(ctx, `
		INSERT INTO service_ledger (service_item_id, transaction_type, description, amount, date, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		e.ServiceItemID, string(e.TransactionType), e.Description, e.Amount, e.Date, e.Notes, e.CreatedBy,
	).Scan(&e.ID)
	if err != nil {
		return mapError(fmt.Errorf("failed to insert ledger entry: %w", err))
	}
	return nil
}

func (w *writer) InsertExpense(ctx context.Context, e *core.ServiceExpense) error {
	err := w.q.QueryRow(ctx, `
		INSERT INTO service_expenses (service_item_id, expense_type, description, amount, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.ServiceItemID, e.ExpenseType, e.Description, e.Amount, e.Date, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return mapError(fmt.Errorf("failed to insert expense: %w", err))
	}
	return nil
}

func (w *writer) CreateUser(ctx context.Context, u *core.User) error {
	err := w.q.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, is_staff, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		u.Username, u.Email, u.PasswordHash, u.IsStaff, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		err = mapError(err)
		if conflict, ok := err.(*core.UniquenessConflictError); ok {
			conflict.Value = u.Username
			return conflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (w *writer) UpdateUserPassword(ctx context.Context, userID int, passwordHash string) error {
	tag, err := w.q.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return mapError(fmt.Errorf("failed to update password: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, core.ErrNotFound)
	}
	return nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// likePattern escapes LIKE metacharacters in s and wraps it in wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// withPage appends LIMIT/OFFSET placeholders to query.
func withPage(query string, args []any, p core.Page) (string, []any) {
	if p.Limit > 0 {
		args = append(args, p.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if p.Offset > 0 {
		args = append(args, p.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
