package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	appErrors "github.com/alabenkhlifa/opauto-core/pkg/errors"
)

// DecisionNote is an optional comment attached while processing an action. The
// Internal flag is independent of the action taken.
type DecisionNote struct {
	Content  string
	Internal bool
}

// ApprovalStore owns the authoritative in-memory collection of approval
// requests. All access goes through a single lock; callers receive deep
// copies, never interior pointers.
type ApprovalStore struct {
	mu        sync.RWMutex
	byID      map[string]*models.ApprovalRequest
	order     []string
	now       func() time.Time
	listeners []func()
}

// ApprovalStoreOption configures the store.
type ApprovalStoreOption func(*ApprovalStore)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) ApprovalStoreOption {
	return func(s *ApprovalStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewApprovalStore constructs an empty store.
func NewApprovalStore(opts ...ApprovalStoreOption) *ApprovalStore {
	s := &ApprovalStore{
		byID: make(map[string]*models.ApprovalRequest),
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Subscribe registers a callback invoked after every successful mutation. The
// engine works identically with zero subscribers.
func (s *ApprovalStore) Subscribe(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *ApprovalStore) notify() {
	s.mu.RLock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// Create stamps identity and timestamps on the request, assigns an id, and
// prepends it so the default read order stays most-recent-first.
func (s *ApprovalStore) Create(req *models.ApprovalRequest, actor models.Identity) (*models.ApprovalRequest, error) {
	if req == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approval request is required")
	}

	s.mu.Lock()
	now := s.now()
	rec := req.Clone()
	rec.ID = uuid.NewString()
	rec.Status = models.StatusPending
	rec.RequestedBy = actor
	rec.RequestedAt = now
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.ApprovedBy, rec.ApprovedAt = nil, nil
	rec.RejectedBy, rec.RejectedAt = nil, nil
	rec.Comments = nil

	s.byID[rec.ID] = rec
	s.order = append([]string{rec.ID}, s.order...)
	out := rec.Clone()
	s.mu.Unlock()

	s.notify()
	return out, nil
}

// GetByID returns a copy of the request or ErrNotFound.
func (s *ApprovalStore) GetByID(id string) (*models.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "approval not found")
	}
	return rec.Clone(), nil
}

// Query returns all requests matching the filter, preserving store order.
// Every clause is optional; present clauses are AND-ed.
func (s *ApprovalStore) Query(filter models.ApprovalFilter) []models.ApprovalRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.ApprovalRequest, 0, len(s.order))
	for _, id := range s.order {
		rec := s.byID[id]
		if !matches(rec, filter) {
			continue
		}
		result = append(result, *rec.Clone())
	}
	return result
}

func matches(rec *models.ApprovalRequest, filter models.ApprovalFilter) bool {
	if len(filter.Status) > 0 && !containsStatus(filter.Status, rec.Status) {
		return false
	}
	if len(filter.Type) > 0 && !containsType(filter.Type, rec.Type) {
		return false
	}
	if len(filter.Priority) > 0 && !containsPriority(filter.Priority, rec.Priority) {
		return false
	}
	if len(filter.RequestedBy) > 0 && !containsString(filter.RequestedBy, rec.RequestedBy.ID) {
		return false
	}
	if filter.DateRange != nil {
		if rec.RequestedAt.Before(filter.DateRange.Start) || rec.RequestedAt.After(filter.DateRange.End) {
			return false
		}
	}
	if q := strings.TrimSpace(filter.SearchQuery); q != "" {
		haystack := strings.ToLower(strings.Join([]string{rec.Title, rec.Description, rec.RequestedBy.Name}, " "))
		if !strings.Contains(haystack, strings.ToLower(q)) {
			return false
		}
	}
	return true
}

// ProcessAction applies a reviewer decision. Acting on a terminal request
// returns ErrResolved; unknown ids return ErrNotFound.
func (s *ApprovalStore) ProcessAction(id string, action models.ApprovalAction, note *DecisionNote, actor models.Identity) (*models.ApprovalRequest, error) {
	s.mu.Lock()
	rec, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "approval not found")
	}
	if rec.Status.Terminal() {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrResolved, fmt.Sprintf("approval already %s", rec.Status))
	}

	now := s.now()
	switch action {
	case models.ActionApprove:
		rec.Status = models.StatusApproved
		by := actor
		at := now
		rec.ApprovedBy = &by
		rec.ApprovedAt = &at
	case models.ActionReject:
		rec.Status = models.StatusRejected
		by := actor
		at := now
		rec.RejectedBy = &by
		rec.RejectedAt = &at
	case models.ActionRequestInfo:
		rec.Status = models.StatusInfoRequested
	default:
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported action: %s", action))
	}

	if note != nil && strings.TrimSpace(note.Content) != "" {
		rec.Comments = append(rec.Comments, models.ApprovalComment{
			ID:        uuid.NewString(),
			Content:   note.Content,
			Author:    actor,
			CreatedAt: now,
			Internal:  note.Internal,
		})
	}
	rec.UpdatedAt = now
	assertResolutionInvariant(rec)
	out := rec.Clone()
	s.mu.Unlock()

	s.notify()
	return out, nil
}

// AddComment appends to the discussion log regardless of status.
func (s *ApprovalStore) AddComment(id, content string, internal bool, actor models.Identity) (*models.ApprovalRequest, error) {
	s.mu.Lock()
	rec, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "approval not found")
	}
	now := s.now()
	rec.Comments = append(rec.Comments, models.ApprovalComment{
		ID:        uuid.NewString(),
		Content:   content,
		Author:    actor,
		CreatedAt: now,
		Internal:  internal,
	})
	rec.UpdatedAt = now
	out := rec.Clone()
	s.mu.Unlock()

	s.notify()
	return out, nil
}

// Delete removes the request entirely. Returns false when the id is unknown;
// deletes are idempotent, not errors.
func (s *ApprovalStore) Delete(id string) bool {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify()
	return true
}

// BulkAction applies the per-item operation to each id independently. Missing
// or already-resolved ids are skipped; there is no cross-item atomicity.
func (s *ApprovalStore) BulkAction(ids []string, action models.ApprovalAction, actor models.Identity) error {
	switch action {
	case models.ActionApprove, models.ActionReject, models.ActionDelete:
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported bulk action: %s", action))
	}

	for _, id := range ids {
		if action == models.ActionDelete {
			s.Delete(id)
			continue
		}
		if _, err := s.ProcessAction(id, action, nil, actor); err != nil {
			if appErrors.HasCode(err, appErrors.ErrNotFound) || appErrors.HasCode(err, appErrors.ErrResolved) {
				continue
			}
			return err
		}
	}
	return nil
}

// Stats recomputes the aggregate by a full scan of the collection.
func (s *ApprovalStore) Stats() models.ApprovalStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	stats := models.ApprovalStats{
		ByPriority: make(map[models.ApprovalPriority]int, len(models.ApprovalPriorities)),
		ByType:     make(map[models.ApprovalType]int, len(models.ApprovalTypes)),
	}
	for _, p := range models.ApprovalPriorities {
		stats.ByPriority[p] = 0
	}
	for _, t := range models.ApprovalTypes {
		stats.ByType[t] = 0
	}

	var resolved int
	var responseTotal time.Duration
	for _, rec := range s.byID {
		stats.Total++
		switch rec.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved:
			stats.Approved++
		case models.StatusRejected:
			stats.Rejected++
		case models.StatusInfoRequested:
			stats.InfoRequested++
		case models.StatusCancelled:
			stats.Cancelled++
		}
		if rec.Overdue(now) {
			stats.Overdue++
		}
		stats.ByPriority[rec.Priority]++
		stats.ByType[rec.Type]++
		if at, ok := rec.Resolved(); ok {
			resolved++
			responseTotal += at.Sub(rec.CreatedAt)
		}
	}
	if resolved > 0 {
		stats.AvgResponseDays = responseTotal.Hours() / 24 / float64(resolved)
	}
	return stats
}

// Count returns the size of the live collection.
func (s *ApprovalStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// OpenCount returns the number of unresolved requests, used for tier gating.
func (s *ApprovalStore) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.byID {
		if rec.Status == models.StatusPending || rec.Status == models.StatusInfoRequested {
			n++
		}
	}
	return n
}

// assertResolutionInvariant panics when approver/rejecter bookkeeping drifts
// from the status field. Reaching it is a programming error, never input.
func assertResolutionInvariant(rec *models.ApprovalRequest) {
	approvedSet := rec.ApprovedBy != nil || rec.ApprovedAt != nil
	rejectedSet := rec.RejectedBy != nil || rec.RejectedAt != nil
	if approvedSet && rejectedSet {
		panic(fmt.Sprintf("approval %s has both approver and rejecter set", rec.ID))
	}
	if approvedSet != (rec.Status == models.StatusApproved) {
		panic(fmt.Sprintf("approval %s approver fields inconsistent with status %s", rec.ID, rec.Status))
	}
	if rejectedSet != (rec.Status == models.StatusRejected) {
		panic(fmt.Sprintf("approval %s rejecter fields inconsistent with status %s", rec.ID, rec.Status))
	}
}

func containsStatus(set []models.ApprovalStatus, v models.ApprovalStatus) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsType(set []models.ApprovalType, v models.ApprovalType) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(set []models.ApprovalPriority, v models.ApprovalPriority) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
