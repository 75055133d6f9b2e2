package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	"github.com/alabenkhlifa/opauto-core/internal/store"
	appErrors "github.com/alabenkhlifa/opauto-core/pkg/errors"
)

type gateStub struct {
	err   error
	calls int
}

func (g *gateStub) Allow(resource models.LimitedResource, current int) error {
	g.calls++
	return g.err
}

type metricsStub struct {
	created int
	actions int
	deleted int
	scans   int
}

func (m *metricsStub) RecordApprovalCreated(models.ApprovalType)  { m.created++ }
func (m *metricsStub) RecordApprovalAction(models.ApprovalAction) { m.actions++ }
func (m *metricsStub) RecordApprovalDeleted(count int)            { m.deleted += count }
func (m *metricsStub) SetApprovalGauges(pending, overdue int)     {}
func (m *metricsStub) ObserveStatsScan(duration time.Duration)    { m.scans++ }

var reviewer = models.Identity{ID: "owner-1", Name: "Ala Ben Khlifa", Role: models.RoleOwner}

func validCreateRequest() CreateApprovalRequest {
	cost := decimal.NewFromFloat(285.00)
	return CreateApprovalRequest{
		Type:          models.ApprovalTypePartPurchase,
		Title:         "Restock timing belts",
		Description:   "TB-3300 out of stock",
		Priority:      models.PriorityHigh,
		Currency:      "TND",
		EstimatedCost: &cost,
	}
}

func TestApprovalServiceCreateValidatesPayload(t *testing.T) {
	svc := NewApprovalService(store.NewApprovalStore(), nil, nil)

	_, err := svc.Create(CreateApprovalRequest{Title: "no type"}, reviewer)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	req := validCreateRequest()
	req.Priority = models.ApprovalPriority("critical")
	_, err = svc.Create(req, reviewer)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = svc.Create(validCreateRequest(), models.Identity{})
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestApprovalServiceCreateStampsDefaults(t *testing.T) {
	svc := NewApprovalService(store.NewApprovalStore(), nil, nil, WithDefaultCurrency("EUR"))

	req := validCreateRequest()
	req.Currency = ""
	created, err := svc.Create(req, reviewer)
	require.NoError(t, err)
	require.Equal(t, "EUR", created.Currency)
	require.Equal(t, models.StatusPending, created.Status)
	require.Equal(t, reviewer, created.RequestedBy)
}

func TestApprovalServiceCreateRespectsGate(t *testing.T) {
	gate := &gateStub{err: appErrors.Clone(appErrors.ErrLimitExceeded, "solo tier allows at most 25 open_approvals")}
	svc := NewApprovalService(store.NewApprovalStore(), gate, nil)

	_, err := svc.Create(validCreateRequest(), reviewer)
	require.True(t, appErrors.HasCode(err, appErrors.ErrLimitExceeded))
	require.Equal(t, 1, gate.calls)
}

func TestApprovalServiceLifecycleRecordsMetrics(t *testing.T) {
	metrics := &metricsStub{}
	svc := NewApprovalService(store.NewApprovalStore(), &gateStub{}, nil, WithApprovalMetrics(metrics))

	created, err := svc.Create(validCreateRequest(), reviewer)
	require.NoError(t, err)

	updated, err := svc.ProcessAction(created.ID, models.ActionApprove, nil, reviewer)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, updated.Status)

	svc.Stats()
	require.True(t, svc.Delete(created.ID))
	require.False(t, svc.Delete(created.ID))

	require.Equal(t, 1, metrics.created)
	require.Equal(t, 1, metrics.actions)
	require.Equal(t, 1, metrics.deleted)
	require.Equal(t, 1, metrics.scans)
}

func TestWithNoteKeepsLegacyVisibilityRule(t *testing.T) {
	note := WithNote(models.ActionRequestInfo, "need the invoice")
	require.NotNil(t, note)
	require.True(t, note.Internal)

	note = WithNote(models.ActionApprove, "looks good")
	require.NotNil(t, note)
	require.False(t, note.Internal)

	require.Nil(t, WithNote(models.ActionApprove, "   "))
}

func TestApprovalServiceProcessActionAppendsExplicitNote(t *testing.T) {
	svc := NewApprovalService(store.NewApprovalStore(), nil, nil)
	created, err := svc.Create(validCreateRequest(), reviewer)
	require.NoError(t, err)

	// An approve comment can be internal when the caller says so; visibility
	// is not tied to the action anymore.
	updated, err := svc.ProcessAction(created.ID, models.ActionApprove,
		&store.DecisionNote{Content: "budget check passed", Internal: true}, reviewer)
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	require.True(t, updated.Comments[0].Internal)
}

func TestApprovalServiceAddCommentRequiresContent(t *testing.T) {
	svc := NewApprovalService(store.NewApprovalStore(), nil, nil)
	created, err := svc.Create(validCreateRequest(), reviewer)
	require.NoError(t, err)

	_, err = svc.AddComment(created.ID, "  ", true, reviewer)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	updated, err := svc.AddComment(created.ID, "ordered", false, reviewer)
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
}

func TestApprovalServiceBulkActionRequiresActor(t *testing.T) {
	svc := NewApprovalService(store.NewApprovalStore(), nil, nil)
	err := svc.BulkAction([]string{"any"}, models.ActionApprove, models.Identity{})
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestApprovalServiceBulkActionCapsBatchSize(t *testing.T) {
	svc := NewApprovalService(store.NewApprovalStore(), nil, nil, WithMaxBulkSize(2))

	err := svc.BulkAction([]string{"a", "b", "c"}, models.ActionDelete, reviewer)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	require.NoError(t, svc.BulkAction([]string{"a", "b"}, models.ActionDelete, reviewer))
}
