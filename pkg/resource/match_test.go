package resource

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func describe(s RequestState[int]) string {
	return Match(s,
		WhenLoading[int](func() string { return "loading" }),
		WhenError[int](func(msg string) string { return "error: " + msg }),
		WhenReady(func(n int) string { return strconv.Itoa(n) }),
		WhenIdle[int](func() string { return "idle" }),
	)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name  string
		state RequestState[int]
		want  string
	}{
		{name: "idle", state: RequestState[int]{Status: Idle}, want: "idle"},
		{name: "loading", state: RequestState[int]{Status: Loading, Loading: true}, want: "loading"},
		{name: "loading with stale data", state: RequestState[int]{Status: Loading, Loading: true, Data: 3, HasData: true}, want: "loading"},
		{name: "error", state: RequestState[int]{Status: Error, Error: "boom"}, want: "error: boom"},
		{name: "error keeps data", state: RequestState[int]{Status: Error, Error: "boom", Data: 1, HasData: true}, want: "error: boom"},
		{name: "ready", state: RequestState[int]{Status: Success, Data: 42, HasData: true}, want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.state))
		})
	}
}

func TestMatchNoHandler(t *testing.T) {
	got := Match(RequestState[int]{Status: Success, Data: 1, HasData: true},
		WhenLoadingOrIdle[int](func() string { return "waiting" }),
	)
	assert.Empty(t, got)

	got = Match(RequestState[int]{Status: Idle},
		WhenLoadingOrIdle[int](func() string { return "waiting" }),
	)
	assert.Equal(t, "waiting", got)
}
