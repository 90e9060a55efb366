package ingest_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/nutrimon/internal/domain/model"
	"github.com/okian/nutrimon/internal/ingest"
	"github.com/okian/nutrimon/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type countingLoader struct {
	calls atomic.Int32
	delay time.Duration
}

func (l *countingLoader) Load(ctx context.Context) ([]model.UserRecord, model.Dataset, ingest.Stats) {
	n := l.calls.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	ds := model.Dataset{
		Columns: []string{"username", "N"},
		Records: []model.SampleRecord{{Username: "ana", N: float64(n), Extra: map[string]string{"notes": "x"}}},
	}
	return []model.UserRecord{{Username: "ana", Password: "pw"}}, ds, ingest.Stats{Records: 1}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCache(t *testing.T) {
	convey.Convey("Given a cache with a ten minute TTL", t, func() {
		ctx := context.Background()
		loader := &countingLoader{}
		clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
		c := ingest.NewCache(loader,
			ingest.WithTTL(10*time.Minute),
			ingest.WithClock(clock.Now),
			ingest.WithCacheLogger(logger.NewNop()))

		convey.Convey("When nothing was loaded yet", func() {
			_, ok := c.Peek()

			convey.Convey("Then Peek reports empty and Get loads once", func() {
				convey.So(ok, convey.ShouldBeFalse)
				s := c.Get(ctx)
				convey.So(s.Dataset.Records, convey.ShouldHaveLength, 1)
				convey.So(s.Users, convey.ShouldHaveLength, 1)
				convey.So(loader.calls.Load(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When Get is called again within the TTL", func() {
			c.Get(ctx)
			clock.Advance(9 * time.Minute)
			c.Get(ctx)

			convey.Convey("Then the snapshot is reused", func() {
				convey.So(loader.calls.Load(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the TTL expires", func() {
			c.Get(ctx)
			clock.Advance(10 * time.Minute)
			s := c.Get(ctx)

			convey.Convey("Then the dataset is reloaded", func() {
				convey.So(loader.calls.Load(), convey.ShouldEqual, 2)
				convey.So(s.Dataset.Records[0].N, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the cache is invalidated", func() {
			first := c.Get(ctx)
			gen := c.Invalidate()
			s := c.Get(ctx)

			convey.Convey("Then the next Get reloads under the new generation", func() {
				convey.So(gen, convey.ShouldEqual, first.Generation+1)
				convey.So(c.Generation(), convey.ShouldEqual, gen)
				convey.So(s.Generation, convey.ShouldEqual, gen)
				convey.So(loader.calls.Load(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a caller mutates a returned snapshot", func() {
			s := c.Get(ctx)
			s.Dataset.Records[0].Username = "mallory"
			s.Dataset.Records[0].Extra["notes"] = "changed"
			s.Users[0].Password = "stolen"

			convey.Convey("Then the cached copy is unaffected", func() {
				again := c.Get(ctx)
				convey.So(again.Dataset.Records[0].Username, convey.ShouldEqual, "ana")
				convey.So(again.Dataset.Records[0].Extra["notes"], convey.ShouldEqual, "x")
				convey.So(again.Users[0].Password, convey.ShouldEqual, "pw")
			})
		})
	})

	convey.Convey("Given many concurrent readers of a cold cache", t, func() {
		loader := &countingLoader{delay: 50 * time.Millisecond}
		c := ingest.NewCache(loader, ingest.WithCacheLogger(logger.NewNop()))

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Get(context.Background())
			}()
		}
		wg.Wait()

		convey.Convey("Then the loads collapse into one", func() {
			convey.So(loader.calls.Load(), convey.ShouldEqual, 1)
		})
	})
}

func TestCacheCancelledReader(t *testing.T) {
	convey.Convey("Given a cache over one valid data file", t, func() {
		in, _ := newIngestor(t, map[string]string{
			"users.csv": "username,password\nana,secret\n",
			"data1.csv": "username,crop,date,N,P,K\nana,tomato,01/01/24,1.8,0.08,0.7\n",
		})
		c := ingest.NewCache(in, ingest.WithCacheLogger(logger.NewNop()))

		convey.Convey("When the first reader has already gone away", func() {
			cancelled, cancel := context.WithCancel(context.Background())
			cancel()
			first := c.Get(cancelled)
			later := c.Get(context.Background())

			convey.Convey("Then neither reader gets a truncated dataset", func() {
				convey.So(first.Dataset.Records, convey.ShouldHaveLength, 1)
				convey.So(first.Users, convey.ShouldHaveLength, 1)
				convey.So(later.Dataset.Records, convey.ShouldHaveLength, 1)
				convey.So(later.Generation, convey.ShouldEqual, first.Generation)
			})
		})
	})
}
