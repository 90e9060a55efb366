package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/nutrimon/internal/adapters/repository"
	"github.com/okian/nutrimon/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func run(kind string, started time.Time, ok bool, outcomes ...repository.FileOutcome) repository.SyncRun {
	return repository.SyncRun{
		Kind:       kind,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		OK:         ok,
		Message:    "Sync completed successfully.",
		Files:      len(outcomes),
		Outcomes:   outcomes,
	}
}

func exerciseStore(t *testing.T, name string, open func() repository.Store) {
	convey.Convey("Given an empty "+name+" history store", t, func() {
		ctx := context.Background()
		store := open()
		defer store.Close()
		base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

		convey.Convey("When runs are recorded", func() {
			id1, err := store.Record(ctx, run(repository.KindData, base, true,
				repository.FileOutcome{Target: "users.csv", RemoteID: "r1", Bytes: 20, Attempts: 1},
				repository.FileOutcome{Target: "data1.csv", RemoteID: "r2", Attempts: 3, Error: "boom"}))
			convey.So(err, convey.ShouldBeNil)
			id2, err := store.Record(ctx, run(repository.KindIcons, base.Add(time.Hour), true))
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then they get distinct ids", func() {
				convey.So(id1, convey.ShouldNotBeEmpty)
				convey.So(id2, convey.ShouldNotEqual, id1)
			})

			convey.Convey("Then Get returns the run with its outcomes", func() {
				got, err := store.Get(ctx, id1)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Kind, convey.ShouldEqual, repository.KindData)
				convey.So(got.StartedAt.Equal(base), convey.ShouldBeTrue)
				convey.So(got.Duration(), convey.ShouldEqual, 2*time.Second)
				convey.So(got.Outcomes, convey.ShouldHaveLength, 2)
				convey.So(got.Outcomes[0].Target, convey.ShouldEqual, "users.csv")
				convey.So(got.Outcomes[1].Error, convey.ShouldEqual, "boom")
				convey.So(got.Outcomes[1].Attempts, convey.ShouldEqual, 3)
			})

			convey.Convey("Then Recent lists newest first", func() {
				got, err := store.Recent(ctx, 10)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldHaveLength, 2)
				convey.So(got[0].ID, convey.ShouldEqual, id2)
				convey.So(got[1].ID, convey.ShouldEqual, id1)

				one, err := store.Recent(ctx, 1)
				convey.So(err, convey.ShouldBeNil)
				convey.So(one, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When an unknown id is requested", func() {
			_, err := store.Get(ctx, "missing")

			convey.Convey("Then ErrNotFound is returned", func() {
				convey.So(err, convey.ShouldEqual, repository.ErrNotFound)
			})
		})

		convey.Convey("When the limit is invalid", func() {
			_, err := store.Recent(ctx, 0)

			convey.Convey("Then ErrInvalidLimit is returned", func() {
				convey.So(err, convey.ShouldEqual, repository.ErrInvalidLimit)
			})
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, "sqlite", func() repository.Store {
		s, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "h", "history.db"), repository.WithLogger(logger.NewNop()))
		if err != nil {
			t.Fatal(err)
		}
		return s
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, "memory", func() repository.Store {
		return repository.NewMemoryStore(repository.WithLogger(logger.NewNop()))
	})

	convey.Convey("Given a memory store with capacity two", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(repository.WithCapacity(2))
		base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		first, _ := store.Record(ctx, run(repository.KindData, base, true))
		_, _ = store.Record(ctx, run(repository.KindData, base.Add(time.Minute), true))
		_, _ = store.Record(ctx, run(repository.KindData, base.Add(2*time.Minute), false))

		convey.Convey("Then the oldest run is evicted", func() {
			got, err := store.Recent(ctx, 10)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldHaveLength, 2)
			_, err = store.Get(ctx, first)
			convey.So(err, convey.ShouldEqual, repository.ErrNotFound)
		})

		convey.Convey("Then recording after Close fails", func() {
			convey.So(store.Close(), convey.ShouldBeNil)
			_, err := store.Record(ctx, run(repository.KindData, base, true))
			convey.So(err, convey.ShouldEqual, repository.ErrClosed)
		})
	})
}
