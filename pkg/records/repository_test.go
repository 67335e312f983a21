package records

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/yndnr/collsnap/pkg/docstore/memory"
	"github.com/yndnr/collsnap/pkg/errcode"
)

// fixedSlugs yields the given slugs in order.
func fixedSlugs(slugs ...string) Option {
	i := 0
	return WithSlugFunc(func(context.Context, string) (string, error) {
		s := slugs[i%len(slugs)]
		i++
		return s, nil
	})
}

// stepClock advances by step on every call.
func stepClock(start time.Time, step time.Duration) Option {
	cur := start
	return WithClock(func() time.Time {
		t := cur
		cur = cur.Add(step)
		return t
	})
}

func TestCreateRunsHooksInOrder(t *testing.T) {
	ctx := context.Background()
	repo := New(memory.New(), "reports", fixedSlugs("a"))

	var calls []string
	repo.BeforeCreate(func(_ context.Context, rec *Record) error {
		calls = append(calls, "before:"+rec.Slug)
		if n, _ := repo.Count(ctx); n != 0 {
			t.Errorf("record visible during before-create hook")
		}
		return nil
	})
	repo.AfterCreate(func(_ context.Context, rec *Record) error {
		calls = append(calls, "after:"+rec.Slug)
		if n, _ := repo.Count(ctx); n != 1 {
			t.Errorf("record not visible during after-create hook")
		}
		return nil
	})

	rec, err := repo.Create(ctx, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.BaseName != "reports" || rec.RetentionLimit != 2 || rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Errorf("Create() = %+v", rec)
	}
	if want := []string{"before:a", "after:a"}; !reflect.DeepEqual(calls, want) {
		t.Errorf("hook calls = %v, want %v", calls, want)
	}
}

func TestCreateAbortedByBeforeHook(t *testing.T) {
	ctx := context.Background()
	repo := New(memory.New(), "reports")
	boom := errors.New("build failed")
	repo.BeforeCreate(func(context.Context, *Record) error { return boom })

	rec, err := repo.Create(ctx, 2)
	if !errors.Is(err, boom) || rec != nil {
		t.Fatalf("Create() = (%v, %v), want (nil, %v)", rec, err, boom)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("Count() = %d after aborted create, want 0", n)
	}
}

func TestAfterHookErrorKeepsRecord(t *testing.T) {
	ctx := context.Background()
	repo := New(memory.New(), "reports")
	boom := errors.New("sweep failed")
	repo.AfterCreate(func(context.Context, *Record) error { return boom })

	rec, err := repo.Create(ctx, 2)
	if !errors.Is(err, boom) {
		t.Fatalf("Create() error = %v, want %v", err, boom)
	}
	if rec == nil {
		t.Fatal("Create() returned nil record with after-hook error")
	}
	if _, err := repo.Get(ctx, rec.ID); err != nil {
		t.Errorf("Get(%s): %v", rec.ID, err)
	}
}

func TestSlugCollision(t *testing.T) {
	ctx := context.Background()
	repo := New(memory.New(), "reports", fixedSlugs("same"))

	if _, err := repo.Create(ctx, 2); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	built := false
	repo.BeforeCreate(func(context.Context, *Record) error {
		built = true
		return nil
	})
	_, err := repo.Create(ctx, 2)
	if !errors.Is(err, errcode.ErrSlugCollision) {
		t.Fatalf("second Create error = %v, want ErrSlugCollision", err)
	}
	if built {
		t.Error("before-create hook ran despite slug collision")
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestOrderedAndLatest(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Zero step: every record shares one timestamp, so order falls back to id.
	repo := New(memory.New(), "reports", stepClock(start, 0))

	latest, err := repo.Latest(ctx)
	if err != nil || latest != nil {
		t.Fatalf("Latest() on empty = (%v, %v), want (nil, nil)", latest, err)
	}

	var created []*Record
	for i := 0; i < 4; i++ {
		rec, err := repo.Create(ctx, 2)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		created = append(created, rec)
	}

	ordered, err := repo.Ordered(ctx)
	if err != nil {
		t.Fatalf("Ordered: %v", err)
	}
	for i, rec := range ordered {
		want := created[len(created)-1-i]
		if rec.ID != want.ID {
			t.Fatalf("Ordered()[%d] = %s, want %s", i, rec.Slug, want.Slug)
		}
		if i > 0 && !ordered[i-1].Newer(rec) {
			t.Fatalf("Ordered()[%d] not newer than [%d]", i-1, i)
		}
	}

	latest, _ = repo.Latest(ctx)
	if latest.ID != created[3].ID {
		t.Errorf("Latest() = %s, want %s", latest.Slug, created[3].Slug)
	}
}

func TestCommitOrderBreaksTimestampTies(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := New(memory.New(), "reports", stepClock(at, 0), WithResolution(time.Second), fixedSlugs("slow", "fast"))

	release := make(chan struct{})
	started := make(chan struct{})
	repo.BeforeCreate(func(_ context.Context, rec *Record) error {
		if rec.Slug == "slow" {
			close(started)
			<-release
		}
		return nil
	})

	type result struct {
		rec *Record
		err error
	}
	slow := make(chan result, 1)
	go func() {
		rec, err := repo.Create(ctx, 1)
		slow <- result{rec, err}
	}()
	<-started

	fast, err := repo.Create(ctx, 1)
	if err != nil {
		t.Fatalf("Create(fast): %v", err)
	}
	close(release)
	res := <-slow
	if res.err != nil {
		t.Fatalf("Create(slow): %v", res.err)
	}

	if res.rec.ID > fast.ID {
		t.Fatalf("slow record id %s sorts after fast %s; ids should follow start order", res.rec.ID, fast.ID)
	}
	latest, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Slug != "slow" {
		t.Errorf("Latest() = %s, want slow (committed last)", latest.Slug)
	}
	if !res.rec.Newer(fast) {
		t.Errorf("slow.Newer(fast) = false, want true")
	}
}

func TestResolutionTruncatesTimestamps(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 10, 30, 45, 987_654_321, time.UTC)
	repo := New(memory.New(), "reports", stepClock(at, 0), WithResolution(time.Second))

	rec, err := repo.Create(ctx, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := at.Truncate(time.Second)
	if !rec.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, want)
	}
	stored, _ := repo.Get(ctx, rec.ID)
	if !stored.CreatedAt.Equal(want) {
		t.Errorf("stored CreatedAt = %v, want %v", stored.CreatedAt, want)
	}
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	repo := New(memory.New(), "reports")
	rec, _ := repo.Create(ctx, 2)

	boom := errors.New("drop failed")
	fail := true
	hookRuns := 0
	repo.BeforeDestroy(func(context.Context, *Record) error {
		hookRuns++
		if fail {
			return boom
		}
		return nil
	})

	if removed, err := repo.Destroy(ctx, rec); !errors.Is(err, boom) || removed {
		t.Fatalf("Destroy() = (%v, %v), want (false, %v)", removed, err, boom)
	}
	if _, err := repo.Get(ctx, rec.ID); err != nil {
		t.Fatalf("record gone after failed destroy: %v", err)
	}

	fail = false
	if removed, err := repo.Destroy(ctx, rec); err != nil || !removed {
		t.Fatalf("retry Destroy() = (%v, %v), want (true, nil)", removed, err)
	}
	if _, err := repo.Get(ctx, rec.ID); !errors.Is(err, errcode.ErrNotFound) {
		t.Fatalf("Get after Destroy error = %v, want ErrNotFound", err)
	}

	if removed, err := repo.Destroy(ctx, rec); err != nil || removed {
		t.Fatalf("Destroy of destroyed record = (%v, %v), want (false, nil)", removed, err)
	}
	if hookRuns != 2 {
		t.Errorf("before-destroy hook ran %d times, want 2", hookRuns)
	}
}

func TestBySlugAndIsolation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	a := New(store, "a", fixedSlugs("x"))
	b := New(store, "b", fixedSlugs("x"))

	if _, err := a.Create(ctx, 1); err != nil {
		t.Fatalf("a.Create: %v", err)
	}
	if _, err := b.Create(ctx, 1); err != nil {
		t.Fatalf("b.Create with same slug under another base: %v", err)
	}
	rec, err := a.BySlug(ctx, "x")
	if err != nil || rec.BaseName != "a" {
		t.Fatalf("BySlug() = (%v, %v)", rec, err)
	}
	if _, err := a.BySlug(ctx, "missing"); !errors.Is(err, errcode.ErrNotFound) {
		t.Errorf("BySlug(missing) error = %v, want ErrNotFound", err)
	}
}
