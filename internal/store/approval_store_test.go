package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	appErrors "github.com/alabenkhlifa/opauto-core/pkg/errors"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

var (
	mechanic = models.Identity{ID: "user-1", Name: "Karim Jebali", Role: models.RoleMechanic}
	owner    = models.Identity{ID: "user-2", Name: "Ala Ben Khlifa", Role: models.RoleOwner}
)

func newRequest(t models.ApprovalType, title string, priority models.ApprovalPriority) *models.ApprovalRequest {
	return &models.ApprovalRequest{
		Type:     t,
		Title:    title,
		Priority: priority,
		Currency: "TND",
	}
}

func TestCreateAssignsUniqueIDsNewestFirst(t *testing.T) {
	s := NewApprovalStore()

	seen := make(map[string]bool)
	var last string
	for i := 0; i < 50; i++ {
		created, err := s.Create(newRequest(models.ApprovalTypeOther, "req", models.PriorityLow), mechanic)
		require.NoError(t, err)
		require.False(t, seen[created.ID])
		seen[created.ID] = true
		last = created.ID
	}

	all := s.Query(models.ApprovalFilter{})
	require.Len(t, all, 50)
	require.Equal(t, last, all[0].ID)
}

func TestCreateStampsRequesterAndTimestamps(t *testing.T) {
	clk := newTestClock()
	s := NewApprovalStore(WithClock(clk.Now))

	cost := decimal.NewFromFloat(285.00)
	created, err := s.Create(&models.ApprovalRequest{
		Type:          models.ApprovalTypePartPurchase,
		Title:         "Restock brake pads",
		Priority:      models.PriorityHigh,
		Currency:      "TND",
		EstimatedCost: &cost,
	}, mechanic)
	require.NoError(t, err)

	require.Equal(t, models.StatusPending, created.Status)
	require.Equal(t, mechanic, created.RequestedBy)
	require.Equal(t, clk.Now(), created.CreatedAt)
	require.Equal(t, created.CreatedAt, created.RequestedAt)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)
	require.Nil(t, created.ApprovedBy)
	require.Nil(t, created.RejectedBy)
}

func TestApproveStampsResolutionFields(t *testing.T) {
	clk := newTestClock()
	s := NewApprovalStore(WithClock(clk.Now))
	created, err := s.Create(newRequest(models.ApprovalTypePartPurchase, "approve me", models.PriorityHigh), mechanic)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	updated, err := s.ProcessAction(created.ID, models.ActionApprove, nil, owner)
	require.NoError(t, err)

	require.Equal(t, models.StatusApproved, updated.Status)
	require.NotNil(t, updated.ApprovedBy)
	require.Equal(t, owner, *updated.ApprovedBy)
	require.NotNil(t, updated.ApprovedAt)
	require.Nil(t, updated.RejectedBy)
	require.Nil(t, updated.RejectedAt)
	require.True(t, updated.UpdatedAt.After(updated.CreatedAt))
}

func TestTerminalStateRefusesFurtherActions(t *testing.T) {
	s := NewApprovalStore()
	created, err := s.Create(newRequest(models.ApprovalTypeExpenseClaim, "one shot", models.PriorityMedium), mechanic)
	require.NoError(t, err)

	_, err = s.ProcessAction(created.ID, models.ActionApprove, nil, owner)
	require.NoError(t, err)

	_, err = s.ProcessAction(created.ID, models.ActionReject, nil, owner)
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrResolved))

	// Resolution fields stay exclusively those of the approval.
	got, err := s.GetByID(created.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	require.Nil(t, got.RejectedBy)
}

func TestRequestInfoLoopAndResolution(t *testing.T) {
	s := NewApprovalStore()
	created, err := s.Create(newRequest(models.ApprovalTypeCustomerCredit, "needs detail", models.PriorityLow), mechanic)
	require.NoError(t, err)

	updated, err := s.ProcessAction(created.ID, models.ActionRequestInfo, nil, owner)
	require.NoError(t, err)
	require.Equal(t, models.StatusInfoRequested, updated.Status)

	// request_info from info_requested is an allowed self-loop.
	updated, err = s.ProcessAction(created.ID, models.ActionRequestInfo, nil, owner)
	require.NoError(t, err)
	require.Equal(t, models.StatusInfoRequested, updated.Status)

	updated, err = s.ProcessAction(created.ID, models.ActionReject, nil, owner)
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, updated.Status)
	require.NotNil(t, updated.RejectedBy)
	require.Nil(t, updated.ApprovedBy)
}

func TestProcessActionUnknownIDAndAction(t *testing.T) {
	s := NewApprovalStore()

	_, err := s.ProcessAction("nope", models.ActionApprove, nil, owner)
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	created, err := s.Create(newRequest(models.ApprovalTypeOther, "x", models.PriorityLow), mechanic)
	require.NoError(t, err)
	_, err = s.ProcessAction(created.ID, models.ApprovalAction("escalate"), nil, owner)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestDecisionNoteAppendsComment(t *testing.T) {
	s := NewApprovalStore()
	created, err := s.Create(newRequest(models.ApprovalTypeRefundRequest, "refund", models.PriorityMedium), mechanic)
	require.NoError(t, err)

	note := &DecisionNote{Content: "missing invoice reference", Internal: true}
	updated, err := s.ProcessAction(created.ID, models.ActionRequestInfo, note, owner)
	require.NoError(t, err)

	require.Len(t, updated.Comments, 1)
	require.Equal(t, "missing invoice reference", updated.Comments[0].Content)
	require.Equal(t, owner, updated.Comments[0].Author)
	require.True(t, updated.Comments[0].Internal)
}

func TestCommentsAppendOnly(t *testing.T) {
	s := NewApprovalStore()
	created, err := s.Create(newRequest(models.ApprovalTypeOther, "talkative", models.PriorityLow), mechanic)
	require.NoError(t, err)

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		updated, err := s.AddComment(created.ID, c, false, owner)
		require.NoError(t, err)
		require.True(t, updated.UpdatedAt.Equal(updated.CreatedAt) || updated.UpdatedAt.After(updated.CreatedAt))
	}

	got, err := s.GetByID(created.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 3)
	for i, c := range contents {
		require.Equal(t, c, got.Comments[i].Content)
	}

	_, err = s.AddComment("missing", "hello", false, owner)
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestQueryFilterClauses(t *testing.T) {
	clk := newTestClock()
	s := NewApprovalStore(WithClock(clk.Now))

	_, err := s.Create(newRequest(models.ApprovalTypePartPurchase, "Order brake pads", models.PriorityHigh), mechanic)
	require.NoError(t, err)
	clk.Advance(24 * time.Hour)
	second, err := s.Create(newRequest(models.ApprovalTypeExpenseClaim, "Diagnostic tablet", models.PriorityLow), owner)
	require.NoError(t, err)
	clk.Advance(24 * time.Hour)
	third, err := s.Create(newRequest(models.ApprovalTypePartPurchase, "Order oil filters", models.PriorityUrgent), mechanic)
	require.NoError(t, err)

	_, err = s.ProcessAction(second.ID, models.ActionApprove, nil, owner)
	require.NoError(t, err)

	byStatus := s.Query(models.ApprovalFilter{Status: []models.ApprovalStatus{models.StatusApproved}})
	require.Len(t, byStatus, 1)
	require.Equal(t, second.ID, byStatus[0].ID)

	byType := s.Query(models.ApprovalFilter{Type: []models.ApprovalType{models.ApprovalTypePartPurchase}})
	require.Len(t, byType, 2)

	byPriority := s.Query(models.ApprovalFilter{Priority: []models.ApprovalPriority{models.PriorityUrgent, models.PriorityHigh}})
	require.Len(t, byPriority, 2)

	byRequester := s.Query(models.ApprovalFilter{RequestedBy: []string{owner.ID}})
	require.Len(t, byRequester, 1)

	byRange := s.Query(models.ApprovalFilter{DateRange: &models.DateRange{
		Start: third.RequestedAt.Add(-time.Hour),
		End:   third.RequestedAt,
	}})
	require.Len(t, byRange, 1)
	require.Equal(t, third.ID, byRange[0].ID)

	// Case-insensitive substring across title, description, requester name.
	bySearch := s.Query(models.ApprovalFilter{SearchQuery: "ORDER"})
	require.Len(t, bySearch, 2)
	byName := s.Query(models.ApprovalFilter{SearchQuery: "khlifa"})
	require.Len(t, byName, 1)
}

func TestQueryConjunctionEqualsIntersection(t *testing.T) {
	s := NewApprovalStore()
	for i := 0; i < 10; i++ {
		typ := models.ApprovalTypeOther
		if i%2 == 0 {
			typ = models.ApprovalTypePartPurchase
		}
		priority := models.PriorityLow
		if i%3 == 0 {
			priority = models.PriorityHigh
		}
		_, err := s.Create(newRequest(typ, "bulk", priority), mechanic)
		require.NoError(t, err)
	}

	f1 := models.ApprovalFilter{Type: []models.ApprovalType{models.ApprovalTypePartPurchase}}
	f2 := models.ApprovalFilter{Priority: []models.ApprovalPriority{models.PriorityHigh}}
	both := models.ApprovalFilter{
		Type:     f1.Type,
		Priority: f2.Priority,
	}

	ids := func(list []models.ApprovalRequest) map[string]bool {
		set := make(map[string]bool, len(list))
		for _, a := range list {
			set[a.ID] = true
		}
		return set
	}

	first := ids(s.Query(f1))
	second := ids(s.Query(f2))
	intersection := make(map[string]bool)
	for id := range first {
		if second[id] {
			intersection[id] = true
		}
	}
	require.Equal(t, intersection, ids(s.Query(both)))
}

func TestDeleteIdempotent(t *testing.T) {
	s := NewApprovalStore()
	created, err := s.Create(newRequest(models.ApprovalTypeOther, "temp", models.PriorityLow), mechanic)
	require.NoError(t, err)

	require.True(t, s.Delete(created.ID))
	require.False(t, s.Delete(created.ID))
	_, err = s.GetByID(created.ID)
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	require.Empty(t, s.Query(models.ApprovalFilter{}))
}

func TestBulkActionPartialSuccess(t *testing.T) {
	s := NewApprovalStore()
	valid, err := s.Create(newRequest(models.ApprovalTypeServiceApproval, "bulk ok", models.PriorityMedium), mechanic)
	require.NoError(t, err)
	resolved, err := s.Create(newRequest(models.ApprovalTypeServiceApproval, "already done", models.PriorityMedium), mechanic)
	require.NoError(t, err)
	_, err = s.ProcessAction(resolved.ID, models.ActionReject, nil, owner)
	require.NoError(t, err)

	err = s.BulkAction([]string{valid.ID, "nonexistent", resolved.ID}, models.ActionApprove, owner)
	require.NoError(t, err)

	got, err := s.GetByID(valid.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, got.Status)

	still, err := s.GetByID(resolved.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, still.Status)
}

func TestBulkDeleteSkipsMissing(t *testing.T) {
	s := NewApprovalStore()
	a, err := s.Create(newRequest(models.ApprovalTypeOther, "a", models.PriorityLow), mechanic)
	require.NoError(t, err)
	b, err := s.Create(newRequest(models.ApprovalTypeOther, "b", models.PriorityLow), mechanic)
	require.NoError(t, err)

	require.NoError(t, s.BulkAction([]string{a.ID, "ghost", b.ID}, models.ActionDelete, owner))
	require.Equal(t, 0, s.Count())

	err = s.BulkAction([]string{a.ID}, models.ApprovalAction("merge"), owner)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestStatsBucketsBalance(t *testing.T) {
	s := NewApprovalStore()

	_, err := s.Create(newRequest(models.ApprovalTypePartPurchase, "p", models.PriorityHigh), mechanic)
	require.NoError(t, err)
	approved, err := s.Create(newRequest(models.ApprovalTypeExpenseClaim, "a", models.PriorityLow), mechanic)
	require.NoError(t, err)
	rejected, err := s.Create(newRequest(models.ApprovalTypeDiscountRequest, "r", models.PriorityMedium), mechanic)
	require.NoError(t, err)
	info, err := s.Create(newRequest(models.ApprovalTypeOther, "i", models.PriorityUrgent), mechanic)
	require.NoError(t, err)

	_, err = s.ProcessAction(approved.ID, models.ActionApprove, nil, owner)
	require.NoError(t, err)
	_, err = s.ProcessAction(rejected.ID, models.ActionReject, nil, owner)
	require.NoError(t, err)
	_, err = s.ProcessAction(info.ID, models.ActionRequestInfo, nil, owner)
	require.NoError(t, err)

	stats := s.Stats()
	require.Equal(t, 4, stats.Total)
	require.Equal(t, stats.Total, stats.Pending+stats.Approved+stats.Rejected+stats.InfoRequested+stats.Cancelled)
	require.Equal(t, 1, stats.Pending)
	require.Equal(t, 1, stats.Approved)
	require.Equal(t, 1, stats.Rejected)
	require.Equal(t, 1, stats.InfoRequested)

	// Buckets are zero-filled for every enumeration value.
	require.Len(t, stats.ByPriority, len(models.ApprovalPriorities))
	require.Len(t, stats.ByType, len(models.ApprovalTypes))
	require.Equal(t, 0, stats.ByType[models.ApprovalTypeOvertimeRequest])
	require.Equal(t, 1, stats.ByType[models.ApprovalTypePartPurchase])
	require.Equal(t, 1, stats.ByPriority[models.PriorityUrgent])
}

func TestOverdueIsDerivedFromClock(t *testing.T) {
	clk := newTestClock()
	s := NewApprovalStore(WithClock(clk.Now))

	due := clk.Now().Add(24 * time.Hour)
	created, err := s.Create(&models.ApprovalRequest{
		Type:     models.ApprovalTypePartPurchase,
		Title:    "due tomorrow",
		Priority: models.PriorityHigh,
		Currency: "TND",
		DueDate:  &due,
	}, mechanic)
	require.NoError(t, err)

	require.Equal(t, 0, s.Stats().Overdue)

	clk.Advance(48 * time.Hour)
	require.Equal(t, 1, s.Stats().Overdue)

	// Resolving removes it from overdue on the next scan.
	_, err = s.ProcessAction(created.ID, models.ActionApprove, nil, owner)
	require.NoError(t, err)
	require.Equal(t, 0, s.Stats().Overdue)
}

func TestAvgResponseDaysComputedFromTimestamps(t *testing.T) {
	clk := newTestClock()
	s := NewApprovalStore(WithClock(clk.Now))

	require.Zero(t, s.Stats().AvgResponseDays)

	first, err := s.Create(newRequest(models.ApprovalTypeOther, "fast", models.PriorityLow), mechanic)
	require.NoError(t, err)
	second, err := s.Create(newRequest(models.ApprovalTypeOther, "slow", models.PriorityLow), mechanic)
	require.NoError(t, err)
	_, err = s.Create(newRequest(models.ApprovalTypeOther, "open", models.PriorityLow), mechanic)
	require.NoError(t, err)

	clk.Advance(24 * time.Hour)
	_, err = s.ProcessAction(first.ID, models.ActionApprove, nil, owner)
	require.NoError(t, err)

	clk.Advance(48 * time.Hour)
	_, err = s.ProcessAction(second.ID, models.ActionReject, nil, owner)
	require.NoError(t, err)

	// (1 day + 3 days) / 2 resolved = 2 days; the open request is excluded.
	require.InDelta(t, 2.0, s.Stats().AvgResponseDays, 1e-9)
}

func TestSubscribersNotifiedOnMutationsOnly(t *testing.T) {
	s := NewApprovalStore()
	var notifications int
	s.Subscribe(func() { notifications++ })

	created, err := s.Create(newRequest(models.ApprovalTypeOther, "watched", models.PriorityLow), mechanic)
	require.NoError(t, err)
	require.Equal(t, 1, notifications)

	s.Query(models.ApprovalFilter{})
	s.Stats()
	require.Equal(t, 1, notifications)

	_, err = s.AddComment(created.ID, "note", true, owner)
	require.NoError(t, err)
	require.Equal(t, 2, notifications)

	require.True(t, s.Delete(created.ID))
	require.Equal(t, 3, notifications)
}

func TestCallersReceiveCopies(t *testing.T) {
	s := NewApprovalStore()
	created, err := s.Create(newRequest(models.ApprovalTypeOther, "immutable", models.PriorityLow), mechanic)
	require.NoError(t, err)

	created.Title = "tampered"
	created.Status = models.StatusCancelled

	got, err := s.GetByID(created.ID)
	require.NoError(t, err)
	require.Equal(t, "immutable", got.Title)
	require.Equal(t, models.StatusPending, got.Status)
}
