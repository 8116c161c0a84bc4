package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rental-escrow-backend/internal/cache"
	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/metrics"
	"rental-escrow-backend/internal/notify"
	"rental-escrow-backend/internal/repository"
	"rental-escrow-backend/internal/storage"
	"rental-escrow-backend/internal/utils"
)

// core is embedded by every lifecycle service. It owns the transaction
// boundary and the effects that only happen after a commit.
type core struct {
	tx       repository.Transactor
	blobs    storage.BlobStore
	notifier notify.Dispatcher
	timeline *cache.TimelineCache
	policy   Policy
	now      func() time.Time

	notifyTimeout time.Duration
}

func newCore(deps Dependencies) *core {
	c := &core{
		tx:       deps.Tx,
		blobs:    deps.Blobs,
		notifier: deps.Notifier,
		timeline: deps.Timeline,
		policy:   deps.Policy,
		now:      deps.Now,

		notifyTimeout: deps.NotifyTimeout,
	}
	if c.notifyTimeout <= 0 {
		c.notifyTimeout = DefaultNotifyTimeout
	}
	if c.notifier == nil {
		c.notifier = notify.Nop{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.policy.MinFeedbackLength == 0 {
		c.policy.MinFeedbackLength = DefaultPolicy().MinFeedbackLength
	}
	if c.policy.DefaultPageSize == 0 {
		c.policy.DefaultPageSize = DefaultPolicy().DefaultPageSize
	}
	if c.policy.MaxPageSize == 0 {
		c.policy.MaxPageSize = DefaultPolicy().MaxPageSize
	}
	return c
}

// outcome collects what a committed command has to announce.
type outcome struct {
	rentals     []int32
	messages    []notify.Message
	transitions []domain.Command
	statuses    []domain.RentalStatus
}

func (o *outcome) touch(rentalID int32) {
	for _, id := range o.rentals {
		if id == rentalID {
			return
		}
	}
	o.rentals = append(o.rentals, rentalID)
}

func (o *outcome) notify(userID int32, r *domain.Rental, event domain.TimelineEventType, title, body string) {
	o.messages = append(o.messages, notify.Message{
		UserID:     userID,
		RentalID:   r.ID,
		Event:      string(event),
		Title:      title,
		Body:       body,
		Attributes: map[string]string{"status": string(r.Status)},
	})
}

type txFunc func(ctx context.Context, repos repository.Repos, out *outcome) error

// run executes fn in one transaction and, only after it committed,
// invalidates cached timelines and dispatches notifications.
func (c *core) run(ctx context.Context, operation string, fn txFunc) error {
	out := &outcome{}
	err := c.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		return fn(ctx, repos, out)
	})
	if err != nil {
		metrics.CommandErrors.WithLabelValues(operation, errorKind(err)).Inc()
		return err
	}

	for i, cmd := range out.transitions {
		metrics.Transitions.WithLabelValues(string(cmd), string(out.statuses[i])).Inc()
	}
	c.timeline.Invalidate(ctx, out.rentals...)
	c.dispatch(ctx, out.messages)
	return nil
}

// dispatch delivers the messages of a committed command. The caller's
// cancellation is ignored but the whole batch shares one deadline, so a
// stuck channel delays the response by at most notifyTimeout.
func (c *core) dispatch(ctx context.Context, messages []notify.Message) {
	if len(messages) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.notifyTimeout)
	defer cancel()
	for _, msg := range messages {
		if err := c.notifier.Notify(ctx, msg); err != nil {
			metrics.NotificationFailures.WithLabelValues(msg.Event).Inc()
			logger.WarnContext(ctx, "Failed to deliver notification", "event", msg.Event, "userID", msg.UserID, "rentalID", msg.RentalID, "error", err)
		}
	}
}

// transition moves the rental through the transition table, persists it and
// appends the matching timeline event in the same transaction.
func (c *core) transition(ctx context.Context, repos repository.Repos, out *outcome, r *domain.Rental, actor domain.Actor, cmd domain.Command, event domain.TimelineEventType, metadata map[string]any) error {
	next, err := domain.Transition(r.Status, cmd)
	if err != nil {
		return err
	}
	previous := r.Status
	r.Status = next
	if err := repos.Rentals.Update(ctx, r); err != nil {
		r.Status = previous
		return err
	}
	out.transitions = append(out.transitions, cmd)
	out.statuses = append(out.statuses, next)

	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["from_status"] = string(previous)
	return c.record(ctx, repos, out, r, actor, event, metadata)
}

// record appends a timeline event for the rental's current status.
func (c *core) record(ctx context.Context, repos repository.Repos, out *outcome, r *domain.Rental, actor domain.Actor, event domain.TimelineEventType, metadata map[string]any) error {
	meta := "{}"
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to encode timeline metadata: %w", err)
		}
		meta = string(b)
	}
	out.touch(r.ID)
	return repos.Timeline.Append(ctx, &domain.TimelineEvent{
		RentalID:        r.ID,
		ActorUserID:     actor.UserIDPtr(),
		EventType:       event,
		ResultingStatus: r.Status,
		Metadata:        meta,
		CreatedAt:       c.now().UTC(),
	})
}

// lockRentalWithListing locks the listing row before the rental row. Every
// command that writes listing flags takes the locks in this order.
func lockRentalWithListing(ctx context.Context, repos repository.Repos, rentalID int32) (*domain.Rental, *domain.Listing, error) {
	snapshot, err := repos.Rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, nil, err
	}
	listing, err := repos.Listings.GetForUpdate(ctx, snapshot.ListingID)
	if err != nil {
		return nil, nil, err
	}
	r, err := repos.Rentals.GetForUpdate(ctx, rentalID)
	if err != nil {
		return nil, nil, err
	}
	return r, listing, nil
}

// overdueRate is the daily rate overdue days are charged at: the listing's
// current rate, not the one quoted when the request was made.
func overdueRate(ctx context.Context, repos repository.Repos, r *domain.Rental) (int64, error) {
	listing, err := repos.Listings.GetByID(ctx, r.ListingID)
	if err != nil {
		return 0, err
	}
	return listing.DailyRate, nil
}

// storeBlob saves an upload before the transaction starts. The returned path
// must be released with discardBlob if the transaction fails.
func (c *core) storeBlob(ctx context.Context, directory string, up *Upload) (string, error) {
	if up.empty() {
		return "", nil
	}
	path, err := c.blobs.Store(ctx, directory, up.Filename, up.Content)
	if err != nil {
		logger.Error("Failed to store image", "directory", directory, "error", err)
		return "", &domain.ExternalDependencyError{Dependency: "image storage", Err: err}
	}
	return path, nil
}

func (c *core) discardBlob(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := c.blobs.Delete(context.WithoutCancel(ctx), path); err != nil {
		metrics.StorageCleanupFailures.Inc()
		logger.Error("Failed to delete orphaned image", "path", path, "error", err)
	}
}

// withBlob stores the upload, runs the transaction and removes the blob again
// when the transaction did not commit.
func (c *core) withBlob(ctx context.Context, operation, directory string, up *Upload, fn func(path string) txFunc) error {
	path, err := c.storeBlob(ctx, directory, up)
	if err != nil {
		metrics.CommandErrors.WithLabelValues(operation, errorKind(err)).Inc()
		return err
	}
	if err := c.run(ctx, operation, fn(path)); err != nil {
		c.discardBlob(ctx, path)
		return err
	}
	return nil
}

func (c *core) today() time.Time {
	return utils.Today(c.now())
}

func (c *core) validFeedback(feedback string) bool {
	return len([]rune(strings.TrimSpace(feedback))) >= c.policy.MinFeedbackLength
}

func (c *core) feedbackMessage() string {
	return fmt.Sprintf("must be at least %d characters", c.policy.MinFeedbackLength)
}

// counterparty returns the other participant of the rental.
func counterparty(actor domain.Actor, r *domain.Rental) int32 {
	if actor.UserID == r.RenterID {
		return r.LenderID
	}
	return r.RenterID
}

func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func errorKind(err error) string {
	var (
		authErr       *domain.AuthorizationError
		transitionErr *domain.InvalidTransitionError
		validationErr *domain.ValidationError
		externalErr   *domain.ExternalDependencyError
		consistency   *domain.ConsistencyViolation
	)
	switch {
	case errors.As(err, &authErr):
		return "authorization"
	case errors.As(err, &transitionErr):
		return "invalid_transition"
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &externalErr):
		return "external_dependency"
	case errors.As(err, &consistency):
		return "consistency"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "internal"
}

func (c *core) paging(page, pageSize int32) (int32, int32) {
	return pageBounds(c.policy, page, pageSize)
}

func pageBounds(p Policy, page, pageSize int32) (int32, int32) {
	if p.DefaultPageSize <= 0 {
		p.DefaultPageSize = DefaultPolicy().DefaultPageSize
	}
	if p.MaxPageSize <= 0 {
		p.MaxPageSize = DefaultPolicy().MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = p.DefaultPageSize
	}
	if pageSize > p.MaxPageSize {
		pageSize = p.MaxPageSize
	}
	return page, pageSize
}
