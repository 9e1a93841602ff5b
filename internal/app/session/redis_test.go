package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestLocalStoreEnsureStartIsIdempotent(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisLocalStore(rdb, time.Hour)
	ctx := context.Background()

	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	got, err := store.EnsureStart(ctx, "u1", "t1", first)
	if err != nil {
		t.Fatalf("EnsureStart: %v", err)
	}
	if !got.Equal(first) {
		t.Fatalf("start = %v, want %v", got, first)
	}

	// A reload five minutes later must not reset the start.
	got, err = store.EnsureStart(ctx, "u1", "t1", first.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("EnsureStart again: %v", err)
	}
	if !got.Equal(first) {
		t.Fatalf("start after reload = %v, want %v", got, first)
	}

	if _, ok, err := store.LoadStart(ctx, "u2", "t1"); err != nil || ok {
		t.Fatalf("LoadStart for other user = ok %v err %v, want not found", ok, err)
	}
}

func TestLocalStoreCodeRoundTripAndClear(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisLocalStore(rdb, time.Hour)
	ctx := context.Background()
	now := time.Now()

	mustNoErr(t, store.SaveCode(ctx, "u1", "t1", "ch_a", model.CodeBuffer{Language: "python", Source: "print(1)"}))
	mustNoErr(t, store.SaveCode(ctx, "u1", "t1", "ch_b", model.CodeBuffer{Language: "go", Source: "package main"}))
	mustNoErr(t, store.SaveCode(ctx, "u1", "t2", "ch_a", model.CodeBuffer{Language: "python", Source: "other test"}))
	mustNoErr(t, store.SaveCode(ctx, "u2", "t1", "ch_a", model.CodeBuffer{Language: "python", Source: "other user"}))
	_, err := store.EnsureStart(ctx, "u1", "t1", now)
	mustNoErr(t, err)

	code, err := store.LoadCode(ctx, "u1", "t1")
	mustNoErr(t, err)
	if len(code) != 2 || code["ch_a"].Source != "print(1)" || code["ch_b"].Language != "go" {
		t.Fatalf("LoadCode = %+v", code)
	}

	mustNoErr(t, store.Clear(ctx, "u1", "t1"))

	code, err = store.LoadCode(ctx, "u1", "t1")
	mustNoErr(t, err)
	if len(code) != 0 {
		t.Fatalf("code left after Clear: %+v", code)
	}
	if _, ok, _ := store.LoadStart(ctx, "u1", "t1"); ok {
		t.Fatal("start left after Clear")
	}
	if code, _ := store.LoadCode(ctx, "u1", "t2"); len(code) != 1 {
		t.Fatalf("Clear touched another test: %+v", code)
	}
	if code, _ := store.LoadCode(ctx, "u2", "t1"); len(code) != 1 {
		t.Fatalf("Clear touched another user: %+v", code)
	}
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb)
	ctx := context.Background()
	key := Key{UserID: "u1", TestID: "t1"}

	release, err := locker.Acquire(ctx, key, time.Minute)
	mustNoErr(t, err)

	if _, err := locker.Acquire(ctx, key, time.Minute); !errors.Is(err, common.ErrSubmissionInFlight) {
		t.Fatalf("second Acquire err = %v, want ErrSubmissionInFlight", err)
	}
	if _, err := locker.Acquire(ctx, Key{UserID: "u2", TestID: "t1"}, time.Minute); err != nil {
		t.Fatalf("other key should not be locked: %v", err)
	}

	release()
	if mr.Exists(lockKey(key)) {
		t.Fatal("lock still present after release")
	}
	release2, err := locker.Acquire(ctx, key, time.Minute)
	mustNoErr(t, err)
	release2()
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb)
	key := Key{UserID: "u1", TestID: "t1"}

	release, err := locker.Acquire(context.Background(), key, time.Minute)
	mustNoErr(t, err)

	// Our lock expired and someone else took it.
	mustNoErr(t, mr.Set(lockKey(key), "someone-else"))
	release()

	got, err := mr.Get(lockKey(key))
	if err != nil || got != "someone-else" {
		t.Fatalf("foreign lock = %q, %v; want it untouched", got, err)
	}
}

func TestDeadlineIndexDueAndRemove(t *testing.T) {
	_, rdb := newTestRedis(t)
	idx := NewRedisDeadlineIndex(rdb)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	early := Key{UserID: "u1", TestID: "t1"}
	later := Key{UserID: "u2", TestID: "t1"}
	future := Key{UserID: "u3", TestID: "t1"}
	mustNoErr(t, idx.Schedule(ctx, later, now.Add(-time.Minute)))
	mustNoErr(t, idx.Schedule(ctx, early, now.Add(-time.Hour)))
	mustNoErr(t, idx.Schedule(ctx, future, now.Add(time.Minute)))

	due, err := idx.Due(ctx, now, 10)
	mustNoErr(t, err)
	if len(due) != 2 || due[0] != early || due[1] != later {
		t.Fatalf("Due = %+v, want [%v %v]", due, early, later)
	}

	due, err = idx.Due(ctx, now, 1)
	mustNoErr(t, err)
	if len(due) != 1 || due[0] != early {
		t.Fatalf("Due with limit = %+v", due)
	}

	mustNoErr(t, idx.Remove(ctx, early))
	due, err = idx.Due(ctx, now, 10)
	mustNoErr(t, err)
	if len(due) != 1 || due[0] != later {
		t.Fatalf("Due after Remove = %+v", due)
	}
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
