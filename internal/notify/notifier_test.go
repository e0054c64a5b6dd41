package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/gateway/push"
	"service-master-dispatch/internal/notify"
	testlog "service-master-dispatch/internal/testutil"
)

func TestNotifier_DeliversOfferAndOutcome(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	sender := NewMockSender(ctrl)
	n := notify.New(sender, notify.Config{QueueSize: 4, Workers: 1}, nil, nil)

	id := uuid.New()
	expires := time.Date(2025, 3, 1, 10, 3, 0, 0, time.UTC)
	masterID := int64(3)
	gomock.InOrder(
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, m push.Message) error {
			_, ok := ctx.Deadline()
			require.True(t, ok)
			require.Equal(t, int64(3), m.RecipientID)
			require.Equal(t, push.KindOffer, m.Kind)
			require.Equal(t, id.String(), m.Payload["assignment_id"])
			require.Equal(t, expires, m.Payload["expires_at"])
			return nil
		}),
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m push.Message) error {
			require.Equal(t, int64(900), m.RecipientID)
			require.Equal(t, push.KindOutcome, m.Kind)
			require.Equal(t, "assigned", m.Payload["status"])
			require.Equal(t, int64(3), m.Payload["master_id"])
			return nil
		}),
	)

	n.Start(context.Background())
	n.NotifyOffer(context.Background(), 3, domain.OfferNotice{AssignmentID: id, JobID: 1, ExpiresAt: expires})
	n.NotifyOutcome(context.Background(), 900, domain.OutcomeNotice{JobID: 1, Status: domain.JobStatusAssigned, MasterID: &masterID})
	n.Close()
}

func TestNotifier_DropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	sender := NewMockSender(ctrl)
	dropped := NewMockcounter(ctrl)
	rec := testlog.New()
	n := notify.New(sender, notify.Config{QueueSize: 1, Workers: 1}, rec.Logger(), dropped)

	dropped.EXPECT().Inc().Times(1)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	n.NotifyOutcome(context.Background(), 1, domain.OutcomeNotice{JobID: 1, Status: domain.JobStatusUnassigned})
	n.NotifyOutcome(context.Background(), 2, domain.OutcomeNotice{JobID: 2, Status: domain.JobStatusUnassigned})
	require.Equal(t, []string{"notification dropped"}, rec.Messages("warn"))

	n.Start(context.Background())
	n.Close()
}

func TestNotifier_DropsAfterClose(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	dropped := NewMockcounter(ctrl)
	n := notify.New(NewMockSender(ctrl), notify.Config{}, nil, dropped)

	dropped.EXPECT().Inc().Times(1)

	n.Close()
	n.Close()
	n.NotifyOffer(context.Background(), 1, domain.OfferNotice{})
}

func TestNotifier_SendErrorIsLogged(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	sender := NewMockSender(ctrl)
	rec := testlog.New()
	n := notify.New(sender, notify.Config{Workers: 1}, rec.Logger(), nil)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("unavailable"))

	n.Start(context.Background())
	n.NotifyOutcome(context.Background(), 1, domain.OutcomeNotice{JobID: 1})
	n.Close()

	require.Equal(t, []string{"notification failed"}, rec.Messages("error"))
}
