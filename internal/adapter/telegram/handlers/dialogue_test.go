package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaxbot/internal/tracking"
)

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{in: "300", want: 300 * time.Second, ok: true},
		{in: "10", want: 10 * time.Second, ok: true},
		{in: "5", want: 5 * time.Second, ok: true}, // floor is enforced later
		{in: "0", want: 0, ok: true},
		{in: "", ok: false},
		{in: "abc", ok: false},
		{in: "-30", ok: false},
		{in: "30s", ok: false},
		{in: "3.5", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseSeconds(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParsePincodes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
		ok   bool
	}{
		{name: "single", in: "560001", want: []string{"560001"}, ok: true},
		{name: "multiple", in: "560001,110001", want: []string{"560001", "110001"}, ok: true},
		{name: "spaces tolerated", in: "560001, 110001", want: []string{"560001", "110001"}, ok: true},
		{name: "short code", in: "1234", ok: false},
		{name: "mixed valid and invalid", in: "1234,560001", ok: false},
		{name: "letters", in: "56000a", ok: false},
		{name: "trailing comma", in: "560001,", ok: false},
		{name: "empty", in: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parsePincodes(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDialogues_Lifecycle(t *testing.T) {
	d := newDialogues()

	_, ok := d.get(1)
	assert.False(t, ok, "no dialogue before begin")

	d.begin(1)
	dl, ok := d.get(1)
	require.True(t, ok)
	assert.Equal(t, stepAwaitingInterval, dl.step)
	assert.Equal(t, tracking.DefaultInterval, dl.interval, "interval pre-seeded with the default")

	dl.interval = 30 * time.Second
	dl.step = stepAwaitingPincodes

	dl, ok = d.get(1)
	require.True(t, ok)
	assert.Equal(t, stepAwaitingPincodes, dl.step)
	assert.Equal(t, 30*time.Second, dl.interval)

	assert.True(t, d.clear(1))
	assert.False(t, d.clear(1), "clearing twice reports absence")
	_, ok = d.get(1)
	assert.False(t, ok)
}

func TestDialogues_BeginReplacesInFlight(t *testing.T) {
	d := newDialogues()

	d.begin(1)
	dl, _ := d.get(1)
	dl.step = stepAwaitingPincodes
	dl.interval = 30 * time.Second

	// /start in the middle of a dialogue restarts it from scratch.
	d.begin(1)
	dl, ok := d.get(1)
	require.True(t, ok)
	assert.Equal(t, stepAwaitingInterval, dl.step)
	assert.Equal(t, tracking.DefaultInterval, dl.interval)
}

func TestDialogues_IndependentChats(t *testing.T) {
	d := newDialogues()

	d.begin(1)
	d.begin(2)

	dl1, _ := d.get(1)
	dl1.step = stepAwaitingPincodes

	dl2, ok := d.get(2)
	require.True(t, ok)
	assert.Equal(t, stepAwaitingInterval, dl2.step, "chats advance independently")
}

func TestRegisterErrorText(t *testing.T) {
	assert.Equal(t, "Time interval too short", registerErrorText(tracking.ErrIntervalTooShort))
	assert.Contains(t, registerErrorText(tracking.ErrInvalidPostalCodes), "Invalid pincodes")
	assert.Equal(t, "Vaccine tracker registration failed", registerErrorText(errOpaque{}))
}

type errOpaque struct{}

func (errOpaque) Error() string { return "boom" }
