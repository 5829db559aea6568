// Package memstore is an in-memory implementation of core.Store. Each
// transaction works on a copy of the state that replaces the live state only
// when the transaction function succeeds, so a failed operation leaves
// nothing behind. Transactions are serialised by a single mutex.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"repair-desk/internal/core"
)

type state struct {
	customers map[int]core.Customer
	items     map[int]core.ServiceItem
	inwards   map[int]core.ServiceInward
	ledger    map[int]core.LedgerEntry
	expenses  map[int]core.ServiceExpense
	users     map[int]core.User

	lastCustomerID int
	lastItemID     int
	lastInwardID   int
	lastLedgerID   int
	lastExpenseID  int
	lastUserID     int
}

func newState() *state {
	return &state{
		customers: map[int]core.Customer{},
		items:     map[int]core.ServiceItem{},
		inwards:   map[int]core.ServiceInward{},
		ledger:    map[int]core.LedgerEntry{},
		expenses:  map[int]core.ServiceExpense{},
		users:     map[int]core.User{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	c := *s
	c.customers = cloneMap(s.customers)
	c.items = cloneMap(s.items)
	c.inwards = cloneMap(s.inwards)
	c.ledger = cloneMap(s.ledger)
	c.expenses = cloneMap(s.expenses)
	c.users = cloneMap(s.users)
	return &c
}

// Store is a goroutine-safe in-memory core.Store.
type Store struct {
	mu    sync.RWMutex
	state *state
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{state: newState()}
}

// WithTx runs fn against a private copy of the state and publishes the copy
// only if fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&tx{view{st: next}}); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) read() view {
	return view{st: s.state}
}

func (s *Store) GetCustomer(ctx context.Context, id int) (*core.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetCustomer(ctx, id)
}

func (s *Store) ListCustomers(ctx context.Context, filter core.CustomerFilter) ([]core.Customer, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListCustomers(ctx, filter)
}

func (s *Store) GetServiceItem(ctx context.Context, id int) (*core.ServiceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetServiceItem(ctx, id)
}

func (s *Store) ListServiceItems(ctx context.Context, filter core.ServiceFilter) ([]core.ServiceItem, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListServiceItems(ctx, filter)
}

func (s *Store) SummarizeServices(ctx context.Context, filter core.ServiceFilter) (*core.ServiceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().SummarizeServices(ctx, filter)
}

func (s *Store) GetInwardByServiceItem(ctx context.Context, serviceItemID int) (*core.ServiceInward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetInwardByServiceItem(ctx, serviceItemID)
}

func (s *Store) LatestInward(ctx context.Context) (*core.ServiceInward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().LatestInward(ctx)
}

func (s *Store) ListLedgerEntries(ctx context.Context, serviceItemID int) ([]core.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListLedgerEntries(ctx, serviceItemID)
}

func (s *Store) ListAllLedgerEntries(ctx context.Context, page core.Page) ([]core.LedgerEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListAllLedgerEntries(ctx, page)
}

func (s *Store) ListExpenses(ctx context.Context, serviceItemID int) ([]core.ServiceExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListExpenses(ctx, serviceItemID)
}

func (s *Store) GetUser(ctx context.Context, id int) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetUser(ctx, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetUserByUsername(ctx, username)
}

// ── Reads ────────────────────────────────────────────────────────────────────

type view struct {
	st *state
}

func notFound(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, core.ErrNotFound)
}

func (v view) GetCustomer(_ context.Context, id int) (*core.Customer, error) {
	c, ok := v.st.customers[id]
	if !ok {
		return nil, notFound("customer", id)
	}
	return &c, nil
}

func (v view) ListCustomers(_ context.Context, filter core.CustomerFilter) ([]core.Customer, int, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []core.Customer
	for _, c := range v.st.customers {
		if search != "" && !containsAny(search, c.Name, c.Phone, c.Email) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	total := len(out)
	return paginate(out, filter.Page), total, nil
}

func (v view) GetServiceItem(_ context.Context, id int) (*core.ServiceItem, error) {
	item, ok := v.st.items[id]
	if !ok {
		return nil, notFound("service item", id)
	}
	v.joinCustomer(&item)
	return &item, nil
}

func (v view) joinCustomer(item *core.ServiceItem) {
	if c, ok := v.st.customers[item.CustomerID]; ok {
		item.CustomerName = c.Name
		item.CustomerPhone = c.Phone
	}
}

func (v view) matchServices(filter core.ServiceFilter) []core.ServiceItem {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []core.ServiceItem
	for _, item := range v.st.items {
		v.joinCustomer(&item)
		if !matchesService(item, filter, search) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedDate.Equal(out[j].ReceivedDate) {
			return out[i].ReceivedDate.After(out[j].ReceivedDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func matchesService(item core.ServiceItem, f core.ServiceFilter, search string) bool {
	if search != "" && !containsAny(search, item.CustomerName, item.Brand, item.Model, item.SerialNumber) {
		return false
	}
	if f.CustomerID != 0 && item.CustomerID != f.CustomerID {
		return false
	}
	if f.DeviceType != "" && item.DeviceType != f.DeviceType {
		return false
	}
	if len(f.Statuses) > 0 && !hasStatus(f.Statuses, item.Status) {
		return false
	}
	if !f.ReceivedFrom.IsZero() && item.ReceivedDate.Before(f.ReceivedFrom) {
		return false
	}
	if !f.ReceivedBefore.IsZero() && !item.ReceivedDate.Before(f.ReceivedBefore) {
		return false
	}
	if !f.CompletedFrom.IsZero() || !f.CompletedUntil.IsZero() {
		if item.CompletedDate == nil {
			return false
		}
		if !f.CompletedFrom.IsZero() && item.CompletedDate.Before(f.CompletedFrom) {
			return false
		}
		if !f.CompletedUntil.IsZero() && !item.CompletedDate.Before(f.CompletedUntil) {
			return false
		}
	}
	return true
}

func hasStatus(statuses []core.ServiceStatus, s core.ServiceStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, p core.Page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

func (v view) ListServiceItems(_ context.Context, filter core.ServiceFilter) ([]core.ServiceItem, int, error) {
	out := v.matchServices(filter)
	total := len(out)
	return paginate(out, filter.Page), total, nil
}

func (v view) SummarizeServices(_ context.Context, filter core.ServiceFilter) (*core.ServiceStats, error) {
	stats := core.NewServiceStats()
	for _, item := range v.matchServices(filter) {
		stats.Add(item)
	}
	return stats, nil
}

func (v view) GetInwardByServiceItem(_ context.Context, serviceItemID int) (*core.ServiceInward, error) {
	for _, in := range v.st.inwards {
		if in.ServiceItemID == serviceItemID {
			return &in, nil
		}
	}
	return nil, notFound("inward for service item", serviceItemID)
}

func (v view) LatestInward(_ context.Context) (*core.ServiceInward, error) {
	var latest *core.ServiceInward
	for _, in := range v.st.inwards {
		if latest == nil || in.ID > latest.ID {
			in := in
			latest = &in
		}
	}
	if latest == nil {
		return nil, notFound("inward", "latest")
	}
	return latest, nil
}

func sortLedger(entries []core.LedgerEntry, newestFirst bool) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if newestFirst {
			a, b = b, a
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
}

func (v view) ListLedgerEntries(_ context.Context, serviceItemID int) ([]core.LedgerEntry, error) {
	out := []core.LedgerEntry{}
	for _, e := range v.st.ledger {
		if e.ServiceItemID == serviceItemID {
			out = append(out, e)
		}
	}
	sortLedger(out, false)
	return out, nil
}

func (v view) ListAllLedgerEntries(_ context.Context, page core.Page) ([]core.LedgerEntry, int, error) {
	out := make([]core.LedgerEntry, 0, len(v.st.ledger))
	for _, e := range v.st.ledger {
		out = append(out, e)
	}
	sortLedger(out, true)
	return paginate(out, page), len(out), nil
}

func (v view) ListExpenses(_ context.Context, serviceItemID int) ([]core.ServiceExpense, error) {
	out := []core.ServiceExpense{}
	for _, e := range v.st.expenses {
		if e.ServiceItemID == serviceItemID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v view) GetUser(_ context.Context, id int) (*core.User, error) {
	u, ok := v.st.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (v view) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	for _, u := range v.st.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, notFound("user", username)
}

// ── Writes ───────────────────────────────────────────────────────────────────

type tx struct {
	view
}

func (t *tx) FindCustomerByPhone(_ context.Context, phone string) (*core.Customer, error) {
	var match *core.Customer
	for _, c := range t.st.customers {
		if c.Phone == phone && (match == nil || c.ID < match.ID) {
			c := c
			match = &c
		}
	}
	if match == nil {
		return nil, notFound("customer with phone", phone)
	}
	return match, nil
}

func (t *tx) CreateCustomer(_ context.Context, c *core.Customer) error {
	t.st.lastCustomerID++
	c.ID = t.st.lastCustomerID
	t.st.customers[c.ID] = *c
	return nil
}

func (t *tx) DeleteCustomer(ctx context.Context, id int) error {
	if _, ok := t.st.customers[id]; !ok {
		return notFound("customer", id)
	}
	for itemID, item := range t.st.items {
		if item.CustomerID == id {
			if err := t.DeleteServiceItem(ctx, itemID); err != nil {
				return err
			}
		}
	}
	delete(t.st.customers, id)
	return nil
}

func (t *tx) CreateServiceItem(_ context.Context, item *core.ServiceItem) error {
	if _, ok := t.st.customers[item.CustomerID]; !ok {
		return notFound("customer", item.CustomerID)
	}
	t.st.lastItemID++
	item.ID = t.st.lastItemID
	t.st.items[item.ID] = *item
	return nil
}

func (t *tx) UpdateServiceItem(_ context.Context, item *core.ServiceItem) error {
	existing, ok := t.st.items[item.ID]
	if !ok {
		return notFound("service item", item.ID)
	}
	updated := *item
	updated.CustomerID = existing.CustomerID
	updated.ReceivedDate = existing.ReceivedDate
	updated.CreatedAt = existing.CreatedAt
	t.st.items[item.ID] = updated
	return nil
}

func (t *tx) DeleteServiceItem(_ context.Context, id int) error {
	if _, ok := t.st.items[id]; !ok {
		return notFound("service item", id)
	}
	for k, in := range t.st.inwards {
		if in.ServiceItemID == id {
			delete(t.st.inwards, k)
		}
	}
	for k, e := range t.st.ledger {
		if e.ServiceItemID == id {
			delete(t.st.ledger, k)
		}
	}
	for k, e := range t.st.expenses {
		if e.ServiceItemID == id {
			delete(t.st.expenses, k)
		}
	}
	delete(t.st.items, id)
	return nil
}

func (t *tx) CreateInward(_ context.Context, inward *core.ServiceInward) error {
	if _, ok := t.st.items[inward.ServiceItemID]; !ok {
		return notFound("service item", inward.ServiceItemID)
	}
	for _, in := range t.st.inwards {
		if in.InwardNumber == inward.InwardNumber {
			return &core.UniquenessConflictError{Constraint: "service_inwards_inward_number_key", Value: inward.InwardNumber}
		}
		if in.ServiceItemID == inward.ServiceItemID {
			return &core.UniquenessConflictError{Constraint: "service_inwards_service_item_id_key", Value: fmt.Sprint(inward.ServiceItemID)}
		}
	}
	t.st.lastInwardID++
	inward.ID = t.st.lastInwardID
	t.st.inwards[inward.ID] = *inward
	return nil
}

func (t *tx) InsertLedgerEntry(_ context.Context, entry *core.LedgerEntry) error {
	if _, ok := t.st.items[entry.ServiceItemID]; !ok {
		return notFound("service item", entry.ServiceItemID)
	}
	t.st.lastLedgerID++
	entry.ID = t.st.lastLedgerID
	t.st.ledger[entry.ID] = *entry
	return nil
}

func (t *tx) InsertExpense(_ context.Context, expense *core.ServiceExpense) error {
	if _, ok := t.st.items[expense.ServiceItemID]; !ok {
		return notFound("service item", expense.ServiceItemID)
	}
	t.st.lastExpenseID++
	expense.ID = t.st.lastExpenseID
	t.st.expenses[expense.ID] = *expense
	return nil
}

func (t *tx) CreateUser(_ context.Context, u *core.User) error {
	for _, existing := range t.st.users {
		if existing.Username == u.Username {
			return &core.UniquenessConflictError{Constraint: "users_username_key", Value: u.Username}
		}
	}
	t.st.lastUserID++
	u.ID = t.st.lastUserID
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) UpdateUserPassword(_ context.Context, userID int, passwordHash string) error {
	u, ok := t.st.users[userID]
	if !ok {
		return notFound("user", userID)
	}
	u.PasswordHash = passwordHash
	t.st.users[userID] = u
	return nil
}
