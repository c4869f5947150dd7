package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestACL_IsAllowed(t *testing.T) {
	acl := NewACL([]int64{1, 42})

	assert.True(t, acl.IsAllowed(1))
	assert.True(t, acl.IsAllowed(42))
	assert.False(t, acl.IsAllowed(2))
	assert.False(t, acl.IsAllowed(0))
}

func TestACL_Empty(t *testing.T) {
	acl := NewACL(nil)

	assert.False(t, acl.IsAllowed(1))
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []int64
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "42", want: []int64{42}},
		{name: "comma separated", in: "1,2,3", want: []int64{1, 2, 3}},
		{name: "with spaces", in: " 1 , 2 ", want: []int64{1, 2}},
		{name: "newlines", in: "1\n2", want: []int64{1, 2}},
		{name: "garbage skipped", in: "1,abc,2", want: []int64{1, 2}},
		{name: "negative chat id", in: "-100200", want: []int64{-100200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIDs(tt.in))
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(time.Second)

	assert.True(t, rl.Allow(1), "first request passes")
	assert.False(t, rl.Allow(1), "second immediate request is limited")
	assert.True(t, rl.Allow(2), "another user is not affected")
}
