package presence

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/relay/internal/domain"
)

type fakeHandle struct {
	name string
}

func (f *fakeHandle) PushMessage(*domain.Message) bool { return true }
func (f *fakeHandle) PushRead(*domain.Message) bool    { return true }
func (f *fakeHandle) Close(string)                     {}

func Test_Register_Then_Lookup(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	userID := uuid.New()
	h := &fakeHandle{name: "h1"}

	req.Nil(r.Register(userID, h))

	got, ok := r.Lookup(userID)
	req.True(ok)
	req.Same(h, got)
	req.Equal(1, r.Count())
}

func Test_Lookup_Absent(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	_, ok := r.Lookup(uuid.New())
	req.False(ok)
}

func Test_Unregister(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	userID := uuid.New()
	r.Register(userID, &fakeHandle{})

	r.Unregister(userID)
	_, ok := r.Lookup(userID)
	req.False(ok)
	req.Equal(0, r.Count())

	// Removing an absent entry is a no-op.
	r.Unregister(userID)
}

func Test_Register_Overwrites_And_Returns_Displaced(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	userID := uuid.New()
	h1 := &fakeHandle{name: "h1"}
	h2 := &fakeHandle{name: "h2"}

	req.Nil(r.Register(userID, h1))
	displaced := r.Register(userID, h2)
	req.Same(h1, displaced)

	got, ok := r.Lookup(userID)
	req.True(ok)
	req.Same(h2, got)
	req.Equal(1, r.Count())
}

func Test_UnregisterHandle_Stale_Does_Not_Evict_Replacement(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	userID := uuid.New()
	h1 := &fakeHandle{name: "h1"}
	h2 := &fakeHandle{name: "h2"}

	r.Register(userID, h1)
	r.Register(userID, h2)

	// h1 was displaced; its late disconnect must not remove h2.
	_, ok := r.UnregisterHandle(h1)
	req.False(ok)

	got, ok := r.Lookup(userID)
	req.True(ok)
	req.Same(h2, got)

	gotID, ok := r.UnregisterHandle(h2)
	req.True(ok)
	req.Equal(userID, gotID)
	_, ok = r.Lookup(userID)
	req.False(ok)
}

func Test_Concurrent_Distinct_Users_Do_Not_Cross_Contaminate(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	const n = 64
	users := make([]uuid.UUID, n)
	handles := make([]*fakeHandle, n)
	for i := range users {
		users[i] = uuid.New()
		handles[i] = &fakeHandle{}
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register(users[i], handles[i])
			r.Lookup(users[i])
			r.Unregister(users[i])
			r.Register(users[i], handles[i])
		}()
	}
	wg.Wait()

	req.Equal(n, r.Count())
	for i := range n {
		got, ok := r.Lookup(users[i])
		req.True(ok)
		req.Same(handles[i], got)
	}
}
