package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkforge/linkforge-api/internal/domain/model"
)

type stubWaiter struct {
	calls   chan struct{}
	payload string
	err     error
	sleep   time.Duration
}

func (s *stubWaiter) WaitForNotification(ctx context.Context) (string, error) {
	select {
	case s.calls <- struct{}{}:
	default:
	}

	if s.sleep > 0 {
		timer := time.NewTimer(s.sleep)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if s.err != nil {
		return "", s.err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return s.payload, nil
}

func changePayload(t *testing.T, change model.JobChange) string {
	t.Helper()
	data, err := json.Marshal(change)
	require.NoError(t, err)
	return string(data)
}

func TestNewNotifierRequiresWaiter(t *testing.T) {
	notifier, err := NewNotifier(NotifierOptions{})
	require.ErrorIs(t, err, ErrWaiterRequired)
	assert.Nil(t, notifier)
}

func TestNotifier_SubscribeReceivesChanges(t *testing.T) {
	waiter := &stubWaiter{
		calls: make(chan struct{}, 4),
		payload: changePayload(t, model.JobChange{
			ID:        "job-1",
			ProjectID: "project-1",
			UserID:    "user-1",
			Status:    model.JobStatusDone,
		}),
		sleep: 10 * time.Millisecond,
	}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)
	defer notifier.StopAll()

	unsub, ch := notifier.Subscribe()
	defer unsub()

	select {
	case <-waiter.calls:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected waiter to be invoked")
	}

	select {
	case change := <-ch:
		assert.Equal(t, "job-1", change.ID)
		assert.Equal(t, "project-1", change.ProjectID)
		assert.Equal(t, model.JobStatusDone, change.Status)
	case <-time.After(time.Second):
		t.Fatal("expected job change to be delivered")
	}
}

func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	waiter := &stubWaiter{
		calls: make(chan struct{}, 1),
		sleep: time.Minute,
	}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)

	unsub, ch := notifier.Subscribe()

	// Allow the listener goroutine to start.
	select {
	case <-waiter.calls:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected waiter to be invoked")
	}

	unsub()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected channel to close after unsubscribe")
	}
}

func TestNotifier_StopAllClosesChannels(t *testing.T) {
	waiter := &stubWaiter{
		calls: make(chan struct{}, 2),
		err:   errors.New("boom"),
		sleep: 10 * time.Millisecond,
	}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)

	unsubA, chA := notifier.Subscribe()
	unsubB, chB := notifier.Subscribe()

	// Ensure the listener has started.
	select {
	case <-waiter.calls:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected waiter to be invoked")
	}

	notifier.StopAll()

	for _, ch := range []<-chan model.JobChange{chA, chB} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channels should be closed after StopAll")
		case <-time.After(200 * time.Millisecond):
			t.Fatal("expected channel to close after StopAll")
		}
	}

	// Unsubscribes should remain safe post-stop.
	unsubA()
	unsubB()
}

func TestNotifier_MalformedPayloadIgnored(t *testing.T) {
	waiter := &stubWaiter{
		calls:   make(chan struct{}, 4),
		payload: "{not json",
		sleep:   10 * time.Millisecond,
	}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)
	defer notifier.StopAll()

	unsub, ch := notifier.Subscribe()
	defer unsub()

	select {
	case <-waiter.calls:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected waiter to be invoked")
	}

	select {
	case change := <-ch:
		t.Fatalf("expected no delivery for malformed payload, got %+v", change)
	case <-time.After(100 * time.Millisecond):
	}
}
