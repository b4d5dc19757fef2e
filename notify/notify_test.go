package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"food-marketplace-api/dbtest"
	"food-marketplace-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingSink) Deliver(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestRender(t *testing.T) {
	text := Render(KindCartCheckout, Payload{
		OrderCount:  2,
		TotalAmount: decimal.RequireFromString("26.6"),
		Restaurant:  "Roma",
	})
	assert.Contains(t, text, "2 order(s)")
	assert.Contains(t, text, "$26.60")
	assert.Contains(t, text, "Roma")

	assert.Contains(t, Render(KindOrderRejected, Payload{FoodName: "Pizza"}), "Not specified")
	assert.Equal(t, "custom", Render(Kind("custom"), Payload{}))
}

func TestDispatcherDeliversQueuedEvents(t *testing.T) {
	sink := &recordingSink{}
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDispatcher(sink, 4, WithClock(func() time.Time { return fixed }))

	d.Notify(context.Background(), "u1", KindOrderReady, Payload{OrderID: "o1", FoodName: "Pizza"})
	d.Notify(context.Background(), "", KindOrderReady, Payload{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(sink.Events()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	ev := sink.Events()[0]
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, KindOrderReady, ev.Kind)
	assert.Equal(t, fixed, ev.At)
	assert.Contains(t, ev.Text, "Pizza")
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 1)

	d.Notify(context.Background(), "u1", KindWelcome, Payload{})
	d.Notify(context.Background(), "u2", KindWelcome, Payload{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "u1", events[0].UserID)
}

func TestDispatcherSwallowsSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	d := NewDispatcher(sink, 2)
	d.Notify(context.Background(), "u1", KindWelcome, Payload{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, d.Run(ctx))
	assert.Len(t, sink.Events(), 1)
}

func TestFanoutJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("boom")}

	err := Fanout{bad, ok}.Deliver(context.Background(), Event{UserID: "u1"})
	assert.EqualError(t, err, "boom")
	assert.Len(t, ok.Events(), 1)
}

func TestStoreSinkPersistsMessages(t *testing.T) {
	db := dbtest.New(t)
	sink := NewStoreSink(db)
	ctx := context.Background()

	customer := models.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "x", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&customer).Error)

	require.NoError(t, sink.Deliver(ctx, Event{
		UserID:  customer.ID,
		Kind:    KindOrderAccepted,
		Payload: Payload{OrderID: "order-1"},
		Text:    "accepted",
		At:      time.Now(),
	}))
	require.NoError(t, sink.Deliver(ctx, Event{UserID: customer.ID, Kind: KindWelcome, Text: "hi", At: time.Now()}))

	var systemUsers int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", SystemEmail).Count(&systemUsers).Error)
	assert.Equal(t, int64(1), systemUsers)

	inbox, err := sink.Inbox(ctx, customer.ID, 10)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	for _, m := range inbox {
		assert.Equal(t, models.ConversationID(sink.systemID, customer.ID), m.ConversationID)
		assert.False(t, m.IsRead)
	}

	unread, err := sink.UnreadCount(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	require.NoError(t, sink.MarkRead(ctx, customer.ID, inbox[0].ID))
	unread, err = sink.UnreadCount(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	assert.Error(t, sink.MarkRead(ctx, "someone-else", inbox[1].ID))
}

func TestEncodeEvent(t *testing.T) {
	ev := Event{UserID: "u1", Kind: KindOrderDelivered, Text: "done", At: time.Now()}

	msg, err := encodeEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "notification.order_delivered", RoutingKey(ev.Kind))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "u1", decoded.UserID)
	assert.Equal(t, KindOrderDelivered, decoded.Kind)
}
