package dedupe_test

import (
	"sync"
	"testing"

	"github.com/okian/nutrimon/internal/domain/dedupe"
	"github.com/okian/nutrimon/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func cand(target, id, modified string) dedupe.Candidate {
	return dedupe.Candidate{Target: target, Ref: model.NewRemoteFileRef(id, target, "text/csv", modified)}
}

func TestLatest(t *testing.T) {
	convey.Convey("Given two candidates for the same target", t, func() {
		older := cand("users.csv", "a", "2024-01-01T00:00:00Z")
		newer := cand("users.csv", "b", "2024-02-01T00:00:00Z")

		convey.Convey("When input order is old then new", func() {
			out := dedupe.Latest([]dedupe.Candidate{older, newer})

			convey.Convey("Then the newer one is kept", func() {
				convey.So(out, convey.ShouldHaveLength, 1)
				convey.So(out[0].Ref.ID, convey.ShouldEqual, "b")
			})
		})

		convey.Convey("When input order is new then old", func() {
			out := dedupe.Latest([]dedupe.Candidate{newer, older})

			convey.Convey("Then the newer one is still kept", func() {
				convey.So(out, convey.ShouldHaveLength, 1)
				convey.So(out[0].Ref.ID, convey.ShouldEqual, "b")
			})
		})

		convey.Convey("When one timestamp is missing", func() {
			undated := cand("users.csv", "c", "")
			first := dedupe.Latest([]dedupe.Candidate{undated, newer})
			second := dedupe.Latest([]dedupe.Candidate{newer, undated})

			convey.Convey("Then the first encountered is kept", func() {
				convey.So(first[0].Ref.ID, convey.ShouldEqual, "c")
				convey.So(second[0].Ref.ID, convey.ShouldEqual, "b")
			})
		})

		convey.Convey("When timestamps are equal", func() {
			twin := cand("users.csv", "d", "2024-02-01T00:00:00Z")
			out := dedupe.Latest([]dedupe.Candidate{newer, twin})

			convey.Convey("Then the first encountered is kept", func() {
				convey.So(out[0].Ref.ID, convey.ShouldEqual, "b")
			})
		})
	})

	convey.Convey("Given candidates for several targets", t, func() {
		in := []dedupe.Candidate{
			cand("b.csv", "1", "2024-01-01T00:00:00Z"),
			cand("a.csv", "2", "2024-01-01T00:00:00Z"),
			cand("b.csv", "3", "2024-03-01T00:00:00Z"),
		}
		out := dedupe.Latest(in)

		convey.Convey("Then first-seen target order is preserved", func() {
			convey.So(out, convey.ShouldHaveLength, 2)
			convey.So(out[0].Target, convey.ShouldEqual, "b.csv")
			convey.So(out[0].Ref.ID, convey.ShouldEqual, "3")
			convey.So(out[1].Target, convey.ShouldEqual, "a.csv")
		})
	})

	convey.Convey("Given no candidates", t, func() {
		convey.So(dedupe.Latest(nil), convey.ShouldBeEmpty)
	})
}

func TestSet(t *testing.T) {
	convey.Convey("Given an empty set", t, func() {
		s := dedupe.NewSet(dedupe.WithCapacity(8))

		convey.Convey("When recording a key twice", func() {
			first := s.SeenAndRecord(42)
			second := s.SeenAndRecord(42)

			convey.Convey("Then only the second call reports seen", func() {
				convey.So(first, convey.ShouldBeFalse)
				convey.So(second, convey.ShouldBeTrue)
				convey.So(s.Size(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When many goroutines record the same keys", func() {
			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for k := range uint64(100) {
						s.SeenAndRecord(k)
					}
				}()
			}
			wg.Wait()

			convey.Convey("Then each key is counted once", func() {
				convey.So(s.Size(), convey.ShouldEqual, 100)
			})
		})
	})
}
