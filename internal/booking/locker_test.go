package booking

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_Serializes(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "show:1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(ctx, "show:1")
		if err == nil {
			close(acquired)
			u()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}

	assert.Eventually(t, func() bool { return l.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()
	a, err := l.Lock(ctx, "show:a")
	require.NoError(t, err)
	b, err := l.Lock(ctx, "show:b")
	require.NoError(t, err)
	a()
	b()
	a() // double unlock is harmless
	assert.Equal(t, 0, l.size())
}

func TestLocalLocker_HonoursContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewRedisLocker(db, "cinema", 5*time.Second, time.Millisecond, nil)
	l.token = func() string { return "tok" }

	mock.ExpectSetNX("cinema:lock:show:1", "tok", 5*time.Second).SetVal(false)
	mock.ExpectSetNX("cinema:lock:show:1", "tok", 5*time.Second).SetVal(true)
	mock.ExpectEvalSha(releaseScript.Hash(), []string{"cinema:lock:show:1"}, "tok").SetVal(int64(1))

	unlock, err := l.Lock(context.Background(), "show:1")
	require.NoError(t, err)
	unlock()
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_ContextCancelled(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewRedisLocker(db, "cinema", time.Second, 200*time.Millisecond, nil)
	l.token = func() string { return "tok" }

	ctx, cancel := context.WithCancel(context.Background())
	mock.ExpectSetNX("cinema:lock:k", "tok", time.Second).SetVal(false)
	go func() {
		time.Sleep(time.Millisecond)
		cancel()
	}()

	_, err := l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
