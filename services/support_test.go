package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/testutil"
)

func TestSupportThread(t *testing.T) {
	_, db, n := newTestLedger(t)
	svc := NewSupportService(db, n)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, models.RoleStudent, "0")
	admin := testutil.CreateUser(t, db, models.RoleUnset, "0")
	admin.IsAdmin = true
	stranger := testutil.CreateUser(t, db, models.RoleStudent, "0")

	ticket, err := svc.Open(ctx, owner.ID, "Refund", "I was charged twice")
	require.NoError(t, err)
	assert.Equal(t, models.TicketOpen, ticket.Status)

	msg, err := svc.Reply(ctx, ticket.ID, admin, "Looking into it")
	require.NoError(t, err)
	assert.True(t, msg.FromAdmin)
	assert.Equal(t, []string{notifications.KindTicketReply}, n.kinds())

	got, err := svc.Get(ctx, ticket.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.TicketAnswered, got.Status)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "I was charged twice", got.Messages[0].Body)

	_, err = svc.Reply(ctx, ticket.ID, owner, "Thanks")
	require.NoError(t, err)
	got, err = svc.Get(ctx, ticket.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.TicketOpen, got.Status)
	assert.Len(t, n.kinds(), 1, "owner replies notify nobody")

	_, err = svc.Get(ctx, ticket.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Reply(ctx, ticket.ID, stranger, "hi")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Close(ctx, ticket.ID, owner))
	assert.ErrorIs(t, svc.Close(ctx, ticket.ID, admin), ErrInvalidState)
	_, err = svc.Reply(ctx, ticket.ID, owner, "one more thing")
	assert.ErrorIs(t, err, ErrInvalidState)

	all, err := svc.ListAll(ctx, models.TicketClosed, 1, 20)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, owner.Email, all[0].User.Email)
}
