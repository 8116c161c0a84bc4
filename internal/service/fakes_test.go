package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/notify"
	"rental-escrow-backend/internal/repository"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory database. WithinTx snapshots it and restores the
// snapshot when the callback fails.
type memStore struct {
	mu sync.Mutex

	nextID      int32
	users       map[int32]domain.User
	listings    map[int32]domain.Listing
	rentals     map[int32]domain.Rental
	payments    map[int32]domain.PaymentRequest
	overdue     map[int32]domain.OverduePayment
	completions []domain.CompletionPayment
	schedules   map[int32]domain.Schedule
	noShows     map[int32]domain.HandoverDispute
	proofs      []domain.Proof
	disputes    map[int32]domain.RentalDispute
	deductions  []domain.DepositDeduction
	adjustments []domain.LenderEarningsAdjustment
	timeline    []domain.TimelineEvent
	reasons     []domain.ReasonAttachment
	notes       []domain.Notification

	// failOn makes the named operation return errInjected.
	failOn string
}

func newMemStore() *memStore {
	return &memStore{
		nextID:    100,
		users:     map[int32]domain.User{},
		listings:  map[int32]domain.Listing{},
		rentals:   map[int32]domain.Rental{},
		payments:  map[int32]domain.PaymentRequest{},
		overdue:   map[int32]domain.OverduePayment{},
		schedules: map[int32]domain.Schedule{},
		noShows:   map[int32]domain.HandoverDispute{},
		disputes:  map[int32]domain.RentalDispute{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice[V any](s []V) []V {
	return append([]V(nil), s...)
}

func (m *memStore) snapshot() *memStore {
	return &memStore{
		nextID:      m.nextID,
		users:       cloneMap(m.users),
		listings:    cloneMap(m.listings),
		rentals:     cloneMap(m.rentals),
		payments:    cloneMap(m.payments),
		overdue:     cloneMap(m.overdue),
		completions: cloneSlice(m.completions),
		schedules:   cloneMap(m.schedules),
		noShows:     cloneMap(m.noShows),
		proofs:      cloneSlice(m.proofs),
		disputes:    cloneMap(m.disputes),
		deductions:  cloneSlice(m.deductions),
		adjustments: cloneSlice(m.adjustments),
		timeline:    cloneSlice(m.timeline),
		reasons:     cloneSlice(m.reasons),
		notes:       cloneSlice(m.notes),
	}
}

func (m *memStore) restore(s *memStore) {
	m.nextID = s.nextID
	m.users, m.listings, m.rentals = s.users, s.listings, s.rentals
	m.payments, m.overdue, m.completions = s.payments, s.overdue, s.completions
	m.schedules, m.noShows, m.proofs = s.schedules, s.noShows, s.proofs
	m.disputes, m.deductions, m.adjustments = s.disputes, s.deductions, s.adjustments
	m.timeline, m.reasons, m.notes = s.timeline, s.reasons, s.notes
}

func (m *memStore) id() int32 {
	m.nextID++
	return m.nextID
}

func (m *memStore) fail(op string) error {
	if m.failOn == op {
		return errInjected
	}
	return nil
}

func (m *memStore) Repos() repository.Repos {
	return repository.Repos{
		Rentals:       memRentals{m},
		Listings:      memListings{m},
		Users:         memUsers{m},
		Payments:      memPayments{m},
		Schedules:     memSchedules{m},
		Proofs:        memProofs{m},
		Disputes:      memDisputes{m},
		Timeline:      memTimeline{m},
		Reasons:       memReasons{m},
		Notifications: memNotifications{m},
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := m.snapshot()
	if err := fn(ctx, m.Repos()); err != nil {
		m.restore(saved)
		return err
	}
	return nil
}

func notFoundErr(entity string, id int32) error {
	return fmt.Errorf("%s %d: %w", entity, id, domain.ErrNotFound)
}

type memRentals struct{ m *memStore }

func (r memRentals) Create(_ context.Context, rt *domain.Rental) error {
	rt.ID = r.m.id()
	rt.CreatedAt = time.Now().UTC()
	rt.UpdatedAt = rt.CreatedAt
	r.m.rentals[rt.ID] = *rt
	return nil
}

func (r memRentals) GetByID(_ context.Context, id int32) (*domain.Rental, error) {
	rt, ok := r.m.rentals[id]
	if !ok {
		return nil, notFoundErr("rental", id)
	}
	return &rt, nil
}

func (r memRentals) GetForUpdate(ctx context.Context, id int32) (*domain.Rental, error) {
	return r.GetByID(ctx, id)
}

func (r memRentals) Update(_ context.Context, rt *domain.Rental) error {
	if err := r.m.fail("rentals.update"); err != nil {
		return err
	}
	if _, ok := r.m.rentals[rt.ID]; !ok {
		return notFoundErr("rental", rt.ID)
	}
	if !rt.PriceConsistent() {
		return &domain.ConsistencyViolation{Invariant: "total_price matches its components"}
	}
	r.m.rentals[rt.ID] = *rt
	return nil
}

func (r memRentals) sorted(keep func(domain.Rental) bool) []domain.Rental {
	var out []domain.Rental
	for _, rt := range r.m.rentals {
		if keep(rt) {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memRentals) ListPendingByListingForUpdate(_ context.Context, listingID, excludeID int32) ([]domain.Rental, error) {
	return r.sorted(func(rt domain.Rental) bool {
		return rt.ListingID == listingID && rt.ID != excludeID && rt.Status == domain.RentalStatusPending
	}), nil
}

func (r memRentals) CountHoldingUnit(_ context.Context, listingID, excludeID int32) (int32, error) {
	return int32(len(r.sorted(func(rt domain.Rental) bool {
		return rt.ListingID == listingID && rt.ID != excludeID && rt.Status.HoldsUnit()
	}))), nil
}

func (r memRentals) List(_ context.Context, userID int32, role domain.Role, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	all := r.sorted(func(rt domain.Rental) bool {
		if status != "" && string(rt.Status) != status {
			return false
		}
		switch role {
		case domain.RoleRenter:
			return rt.RenterID == userID
		case domain.RoleLender:
			return rt.LenderID == userID
		case domain.RoleAdmin:
			return true
		}
		return rt.RenterID == userID || rt.LenderID == userID
	})
	start := int((page - 1) * pageSize)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(pageSize)
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int32(len(all)), nil
}

func (r memRentals) ListOverdue(_ context.Context, today string) ([]domain.Rental, error) {
	return r.sorted(func(rt domain.Rental) bool {
		return rt.Status == domain.RentalStatusActive && rt.EndDate < today
	}), nil
}

func (r memRentals) ListExpiredPending(_ context.Context, today string) ([]domain.Rental, error) {
	return r.sorted(func(rt domain.Rental) bool {
		return rt.Status == domain.RentalStatusPending && rt.StartDate < today
	}), nil
}

type memListings struct{ m *memStore }

func (l memListings) GetByID(_ context.Context, id int32) (*domain.Listing, error) {
	listing, ok := l.m.listings[id]
	if !ok {
		return nil, notFoundErr("listing", id)
	}
	return &listing, nil
}

func (l memListings) GetForUpdate(ctx context.Context, id int32) (*domain.Listing, error) {
	return l.GetByID(ctx, id)
}

func (l memListings) SetAvailability(_ context.Context, id int32, available bool) error {
	listing, ok := l.m.listings[id]
	if !ok {
		return notFoundErr("listing", id)
	}
	listing.IsAvailable = available
	l.m.listings[id] = listing
	return nil
}

func (l memListings) SetExclusivelyRented(_ context.Context, id int32, exclusive bool) error {
	listing, ok := l.m.listings[id]
	if !ok {
		return notFoundErr("listing", id)
	}
	listing.ExclusivelyRented = exclusive
	l.m.listings[id] = listing
	return nil
}

type memUsers struct{ m *memStore }

func (u memUsers) GetByID(_ context.Context, id int32) (*domain.User, error) {
	user, ok := u.m.users[id]
	if !ok {
		return nil, notFoundErr("user", id)
	}
	return &user, nil
}

func (u memUsers) IsVerified(_ context.Context, id int32) (bool, error) {
	return u.m.users[id].IsVerified, nil
}

type memPayments struct{ m *memStore }

func (p memPayments) CreateRequest(_ context.Context, pr *domain.PaymentRequest) error {
	for _, existing := range p.m.payments {
		if existing.RentalID == pr.RentalID && existing.Type == pr.Type && existing.Status == domain.PaymentStatusPending {
			return &domain.ConsistencyViolation{Invariant: "one pending payment request per rental and type"}
		}
	}
	pr.ID = p.m.id()
	pr.CreatedAt = time.Now().UTC()
	p.m.payments[pr.ID] = *pr
	return nil
}

func (p memPayments) GetRequest(_ context.Context, id int32) (*domain.PaymentRequest, error) {
	pr, ok := p.m.payments[id]
	if !ok {
		return nil, notFoundErr("payment request", id)
	}
	return &pr, nil
}

func (p memPayments) GetRequestForUpdate(ctx context.Context, id int32) (*domain.PaymentRequest, error) {
	return p.GetRequest(ctx, id)
}

func (p memPayments) UpdateRequest(_ context.Context, pr *domain.PaymentRequest) error {
	if _, ok := p.m.payments[pr.ID]; !ok {
		return notFoundErr("payment request", pr.ID)
	}
	p.m.payments[pr.ID] = *pr
	return nil
}

func (p memPayments) ListRequests(_ context.Context, rentalID int32) ([]domain.PaymentRequest, error) {
	var out []domain.PaymentRequest
	for _, pr := range p.m.payments {
		if pr.RentalID == rentalID {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p memPayments) HasRequestWithStatus(_ context.Context, rentalID int32, paymentType domain.PaymentType, status domain.PaymentStatus) (bool, error) {
	for _, pr := range p.m.payments {
		if pr.RentalID == rentalID && pr.Type == paymentType && pr.Status == status {
			return true, nil
		}
	}
	return false, nil
}

func (p memPayments) CreateOverduePayment(_ context.Context, op *domain.OverduePayment) error {
	if _, ok := p.m.overdue[op.RentalID]; ok {
		return &domain.ConsistencyViolation{Invariant: "one overdue payment per rental"}
	}
	op.ID = p.m.id()
	p.m.overdue[op.RentalID] = *op
	return nil
}

func (p memPayments) GetOverduePayment(_ context.Context, rentalID int32) (*domain.OverduePayment, error) {
	op, ok := p.m.overdue[rentalID]
	if !ok {
		return nil, notFoundErr("overdue payment", rentalID)
	}
	return &op, nil
}

func (p memPayments) CreateCompletion(_ context.Context, c *domain.CompletionPayment) error {
	for _, existing := range p.m.completions {
		if existing.RentalID == c.RentalID && existing.Type == c.Type {
			return &domain.ConsistencyViolation{Invariant: "one completion payment per rental and type"}
		}
	}
	c.ID = p.m.id()
	p.m.completions = append(p.m.completions, *c)
	return nil
}

func (p memPayments) ListCompletions(_ context.Context, rentalID int32) ([]domain.CompletionPayment, error) {
	var out []domain.CompletionPayment
	for _, c := range p.m.completions {
		if c.RentalID == rentalID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memSchedules struct{ m *memStore }

func (s memSchedules) Create(_ context.Context, sc *domain.Schedule) error {
	sc.ID = s.m.id()
	s.m.schedules[sc.ID] = *sc
	return nil
}

func (s memSchedules) GetByID(_ context.Context, id int32) (*domain.Schedule, error) {
	sc, ok := s.m.schedules[id]
	if !ok {
		return nil, notFoundErr("schedule", id)
	}
	return &sc, nil
}

func (s memSchedules) Update(_ context.Context, sc *domain.Schedule) error {
	if sc.IsSelected {
		for _, other := range s.m.schedules {
			if other.ID != sc.ID && other.RentalID == sc.RentalID && other.Kind == sc.Kind && other.IsSelected {
				return &domain.ConsistencyViolation{Invariant: "one selected schedule per rental and kind"}
			}
		}
	}
	if _, ok := s.m.schedules[sc.ID]; !ok {
		return notFoundErr("schedule", sc.ID)
	}
	s.m.schedules[sc.ID] = *sc
	return nil
}

func (s memSchedules) Delete(_ context.Context, id int32) error {
	if _, ok := s.m.schedules[id]; !ok {
		return notFoundErr("schedule", id)
	}
	delete(s.m.schedules, id)
	return nil
}

func (s memSchedules) DeleteSiblings(_ context.Context, rentalID int32, kind domain.ScheduleKind, keepID int32) (int64, error) {
	var n int64
	for id, sc := range s.m.schedules {
		if sc.RentalID == rentalID && sc.Kind == kind && id != keepID {
			delete(s.m.schedules, id)
			n++
		}
	}
	return n, nil
}

func (s memSchedules) DeleteByRental(_ context.Context, rentalID int32, kind domain.ScheduleKind) (int64, error) {
	var n int64
	for id, sc := range s.m.schedules {
		if sc.RentalID == rentalID && sc.Kind == kind {
			delete(s.m.schedules, id)
			n++
		}
	}
	return n, nil
}

func (s memSchedules) ListByRental(_ context.Context, rentalID int32) ([]domain.Schedule, error) {
	var out []domain.Schedule
	for _, sc := range s.m.schedules {
		if sc.RentalID == rentalID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memSchedules) CreateNoShow(_ context.Context, d *domain.HandoverDispute) error {
	for _, existing := range s.m.noShows {
		if existing.RentalID == d.RentalID && existing.Status == domain.NoShowStatusPending {
			return &domain.ConsistencyViolation{Invariant: "one pending no-show report per rental"}
		}
	}
	d.ID = s.m.id()
	s.m.noShows[d.ID] = *d
	return nil
}

func (s memSchedules) GetNoShow(_ context.Context, id int32) (*domain.HandoverDispute, error) {
	d, ok := s.m.noShows[id]
	if !ok {
		return nil, notFoundErr("no-show report", id)
	}
	return &d, nil
}

func (s memSchedules) GetNoShowForUpdate(ctx context.Context, id int32) (*domain.HandoverDispute, error) {
	return s.GetNoShow(ctx, id)
}

func (s memSchedules) UpdateNoShow(_ context.Context, d *domain.HandoverDispute) error {
	s.m.noShows[d.ID] = *d
	return nil
}

func (s memSchedules) ListNoShows(_ context.Context, rentalID int32) ([]domain.HandoverDispute, error) {
	var out []domain.HandoverDispute
	for _, d := range s.m.noShows {
		if d.RentalID == rentalID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memProofs struct{ m *memStore }

func (p memProofs) Create(_ context.Context, proof *domain.Proof) error {
	if err := p.m.fail("proofs.create"); err != nil {
		return err
	}
	proof.ID = p.m.id()
	p.m.proofs = append(p.m.proofs, *proof)
	return nil
}

func (p memProofs) ListByRental(_ context.Context, rentalID int32) ([]domain.Proof, error) {
	var out []domain.Proof
	for _, proof := range p.m.proofs {
		if proof.RentalID == rentalID {
			out = append(out, proof)
		}
	}
	return out, nil
}

type memDisputes struct{ m *memStore }

func (d memDisputes) Create(_ context.Context, dispute *domain.RentalDispute) error {
	for _, existing := range d.m.disputes {
		if existing.RentalID == dispute.RentalID && existing.IsOpen() {
			return &domain.ConsistencyViolation{Invariant: "one open dispute per rental"}
		}
	}
	dispute.ID = d.m.id()
	d.m.disputes[dispute.ID] = *dispute
	return nil
}

func (d memDisputes) GetByID(_ context.Context, id int32) (*domain.RentalDispute, error) {
	dispute, ok := d.m.disputes[id]
	if !ok {
		return nil, notFoundErr("dispute", id)
	}
	return &dispute, nil
}

func (d memDisputes) GetForUpdate(ctx context.Context, id int32) (*domain.RentalDispute, error) {
	return d.GetByID(ctx, id)
}

func (d memDisputes) Update(_ context.Context, dispute *domain.RentalDispute) error {
	d.m.disputes[dispute.ID] = *dispute
	return nil
}

func (d memDisputes) ListByRental(_ context.Context, rentalID int32) ([]domain.RentalDispute, error) {
	var out []domain.RentalDispute
	for _, dispute := range d.m.disputes {
		if dispute.RentalID == rentalID {
			out = append(out, dispute)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d memDisputes) CreateDeduction(_ context.Context, ded *domain.DepositDeduction) error {
	ded.ID = d.m.id()
	d.m.deductions = append(d.m.deductions, *ded)
	return nil
}

func (d memDisputes) SumDeductions(_ context.Context, rentalID int32) (int64, error) {
	var sum int64
	for _, ded := range d.m.deductions {
		if ded.RentalID == rentalID {
			sum += ded.Amount
		}
	}
	return sum, nil
}

func (d memDisputes) CreateEarningsAdjustment(_ context.Context, a *domain.LenderEarningsAdjustment) error {
	a.ID = d.m.id()
	d.m.adjustments = append(d.m.adjustments, *a)
	return nil
}

func (d memDisputes) SumEarningsAdjustments(_ context.Context, rentalID int32) (int64, error) {
	var sum int64
	for _, a := range d.m.adjustments {
		if a.RentalID == rentalID {
			sum += a.Amount
		}
	}
	return sum, nil
}

type memTimeline struct{ m *memStore }

func (t memTimeline) Append(_ context.Context, e *domain.TimelineEvent) error {
	if err := t.m.fail("timeline.append"); err != nil {
		return err
	}
	e.ID = t.m.id()
	t.m.timeline = append(t.m.timeline, *e)
	return nil
}

func (t memTimeline) ListByRental(_ context.Context, rentalID int32) ([]domain.TimelineEvent, error) {
	var out []domain.TimelineEvent
	for _, e := range t.m.timeline {
		if e.RentalID == rentalID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memReasons struct{ m *memStore }

func (r memReasons) Attach(_ context.Context, a *domain.ReasonAttachment) error {
	a.ID = r.m.id()
	r.m.reasons = append(r.m.reasons, *a)
	return nil
}

func (r memReasons) ListByRental(_ context.Context, rentalID int32) ([]domain.ReasonAttachment, error) {
	var out []domain.ReasonAttachment
	for _, a := range r.m.reasons {
		if a.RentalID == rentalID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memNotifications struct{ m *memStore }

func (n memNotifications) Create(_ context.Context, note *domain.Notification) error {
	note.ID = n.m.id()
	n.m.notes = append(n.m.notes, *note)
	return nil
}

func (n memNotifications) List(_ context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error) {
	var out []domain.Notification
	for _, note := range n.m.notes {
		if note.UserID == userID {
			out = append(out, note)
		}
	}
	total := int32(len(out))
	if int(offset) >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if int(limit) < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (n memNotifications) MarkAsRead(_ context.Context, id, userID int32) error {
	for i, note := range n.m.notes {
		if note.ID == id && note.UserID == userID {
			n.m.notes[i].IsRead = true
			return nil
		}
	}
	return fmt.Errorf("notification not found or access denied")
}

// memBlobs records stored and deleted paths.
type memBlobs struct {
	mu       sync.Mutex
	stored   map[string][]byte
	deleted  []string
	storeErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{stored: map[string][]byte{}}
}

func (b *memBlobs) Store(_ context.Context, directory, filename string, content []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.storeErr != nil {
		return "", b.storeErr
	}
	path := fmt.Sprintf("%s/%d-%s", directory, len(b.stored)+len(b.deleted), filename)
	b.stored[path] = content
	return path, nil
}

func (b *memBlobs) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.stored, path)
	b.deleted = append(b.deleted, path)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Event)
	}
	return out
}
