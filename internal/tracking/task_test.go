package tracking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchCall struct {
	pincode string
	date    string
	mode    FetchMode
}

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []fetchCall
	respond func(pincode string, mode FetchMode) ([]Center, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, pincode, date string, mode FetchMode) ([]Center, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{pincode: pincode, date: date, mode: mode})
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return nil, nil
	}
	return respond(pincode, mode)
}

func (f *fakeFetcher) recorded() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.calls...)
}

type sentMessage struct {
	userID int64
	text   string
	silent bool
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, userID int64, text string, silent bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{userID: userID, text: text, silent: silent})
	return n.err
}

func (n *fakeNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *fakeNotifier) containsText(substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.sent {
		if strings.Contains(m.text, substr) {
			return true
		}
	}
	return false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTask_SilentRunReportsFoundSlots(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(pincode string, mode FetchMode) ([]Center, error) {
		return []Center{testCenter(availableSession(3))}, nil
	}}
	notifier := &fakeNotifier{}
	task := NewTask(7, []string{"560001"}, fetcher, notifier, discardLogger())

	err := task.Run(context.Background(), false)

	require.NoError(t, err)
	msgs := notifier.messages()
	require.Len(t, msgs, 1, "silent run: only the finding itself")
	assert.Contains(t, msgs[0].text, "3 Available")
	assert.False(t, msgs[0].silent, "a found slot rings the bell")
	assert.EqualValues(t, 7, msgs[0].userID)
}

func TestTask_SilentRunQuietWhenNothingFound(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(pincode string, mode FetchMode) ([]Center, error) {
		return []Center{testCenter(bookedSession())}, nil
	}}
	notifier := &fakeNotifier{}
	task := NewTask(7, []string{"560001"}, fetcher, notifier, discardLogger())

	err := task.Run(context.Background(), false)

	require.NoError(t, err)
	assert.Zero(t, notifier.count(), "silent run with nothing found sends nothing")
}

func TestTask_VerboseRunAnnouncesAndReportsMiss(t *testing.T) {
	fetcher := &fakeFetcher{}
	notifier := &fakeNotifier{}
	task := NewTask(7, []string{"560001"}, fetcher, notifier, discardLogger())

	err := task.Run(context.Background(), true)

	require.NoError(t, err)
	msgs := notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Searching for vaccine slots...", msgs[0].text)
	assert.Equal(t, "Couldn't find any session", msgs[1].text)
}

func TestTask_UsesCurrentDateAndAuthenticatedMode(t *testing.T) {
	fetcher := &fakeFetcher{}
	notifier := &fakeNotifier{}
	task := NewTask(7, []string{"560001", "110001"}, fetcher, notifier, discardLogger())

	require.NoError(t, task.Run(context.Background(), false))

	calls := fetcher.recorded()
	require.Len(t, calls, 2)
	today := time.Now().Format("02-01-2006")
	for _, c := range calls {
		assert.Equal(t, today, c.date)
		assert.Equal(t, ModeAuthenticated, c.mode)
	}
	assert.Equal(t, "560001", calls[0].pincode)
	assert.Equal(t, "110001", calls[1].pincode)
}

func TestTask_FallsBackToPublicEndpoint(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(pincode string, mode FetchMode) ([]Center, error) {
		if mode == ModeAuthenticated {
			return nil, errors.New("401 unauthorized")
		}
		return []Center{testCenter(availableSession(2))}, nil
	}}
	notifier := &fakeNotifier{}
	task := NewTask(7, []string{"560001"}, fetcher, notifier, discardLogger())

	require.NoError(t, task.Run(context.Background(), true))

	calls := fetcher.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, ModeAuthenticated, calls[0].mode)
	assert.Equal(t, ModePublic, calls[1].mode)

	assert.True(t, notifier.containsText("Showing cached data for pincode 560001"),
		"verbose run reports the fallback")
	assert.True(t, notifier.containsText("2 Available"))
}

func TestTask_SilentFallbackWithoutNotice(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(pincode string, mode FetchMode) ([]Center, error) {
		if mode == ModeAuthenticated {
			return nil, errors.New("401 unauthorized")
		}
		return []Center{testCenter(availableSession(2))}, nil
	}}
	notifier := &fakeNotifier{}
	task := NewTask(7, []string{"560001"}, fetcher, notifier, discardLogger())

	require.NoError(t, task.Run(context.Background(), false))

	assert.False(t, notifier.containsText("cached data"),
		"silent run does not mention the fallback")
	assert.True(t, notifier.containsText("2 Available"))
}

func TestTask_PerPincodeFailureIsolation(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(pincode string, mode FetchMode) ([]Center, error) {
		if pincode == "560001" {
			return nil, errors.New("connection refused")
		}
		return []Center{testCenter(availableSession(1))}, nil
	}}
	notifier := &fakeNotifier{}
	task := NewTask(7, []string{"560001", "110001"}, fetcher, notifier, discardLogger())

	err := task.Run(context.Background(), false)

	require.NoError(t, err, "a failing pincode never fails the tick")
	msgs := notifier.messages()
	require.Len(t, msgs, 2)

	assert.Contains(t, msgs[0].text, "Availability check failed for pincode 560001")
	assert.True(t, msgs[0].silent, "failure notices do not ring the bell")
	assert.Contains(t, msgs[1].text, "1 Available")
	assert.False(t, msgs[1].silent)
}

func TestTask_FailureNoticeOnSilentTick(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(pincode string, mode FetchMode) ([]Center, error) {
		return nil, errors.New("connection refused")
	}}
	notifier := &fakeNotifier{}
	task := NewTask(7, []string{"560001"}, fetcher, notifier, discardLogger())

	require.NoError(t, task.Run(context.Background(), false))

	msgs := notifier.messages()
	require.Len(t, msgs, 1, "exhausted data source is reported even on silent ticks")
	assert.Contains(t, msgs[0].text, "Availability check failed for pincode 560001")
	assert.True(t, msgs[0].silent)
}

func TestTask_RecoversFromPanic(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(pincode string, mode FetchMode) ([]Center, error) {
		panic("boom")
	}}
	notifier := &fakeNotifier{}
	task := NewTask(7, []string{"560001"}, fetcher, notifier, discardLogger())

	err := task.Run(context.Background(), true)

	require.NoError(t, err, "a panicking tick must not take the schedule down")
	assert.True(t, notifier.containsText("Error occurred: boom"))
}

func TestTask_PanicSilentTickStaysQuiet(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(pincode string, mode FetchMode) ([]Center, error) {
		panic("boom")
	}}
	notifier := &fakeNotifier{}
	task := NewTask(7, []string{"560001"}, fetcher, notifier, discardLogger())

	require.NoError(t, task.Run(context.Background(), false))
	assert.Zero(t, notifier.count())
}

func TestTask_NotificationFailureDoesNotAbortTick(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(pincode string, mode FetchMode) ([]Center, error) {
		return []Center{testCenter(availableSession(1))}, nil
	}}
	notifier := &fakeNotifier{err: errors.New("chat not found")}
	task := NewTask(7, []string{"560001", "110001"}, fetcher, notifier, discardLogger())

	err := task.Run(context.Background(), false)

	require.NoError(t, err)
	assert.Len(t, fetcher.recorded(), 2, "both pincodes fetched despite delivery failures")
	assert.Equal(t, 2, notifier.count())
}
