package model_test

import (
	"testing"
	"time"

	model "github.com/okian/nutrimon/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestKindOf(t *testing.T) {
	convey.Convey("Given remote mime types", t, func() {
		convey.So(model.KindOf(model.MimeFolder), convey.ShouldEqual, model.KindFolder)
		convey.So(model.KindOf(model.MimeSpreadsheet), convey.ShouldEqual, model.KindSpreadsheet)
		convey.So(model.KindOf("image/png"), convey.ShouldEqual, model.KindImage)
		convey.So(model.KindOf("text/csv"), convey.ShouldEqual, model.KindPlain)
		convey.So(model.KindOf(""), convey.ShouldEqual, model.KindPlain)
		convey.So(model.KindSpreadsheet.String(), convey.ShouldEqual, "spreadsheet")
	})
}

func TestRemoteFileRefModified(t *testing.T) {
	convey.Convey("Given remote refs with various timestamps", t, func() {
		convey.Convey("When the timestamp is RFC3339 with millis", func() {
			ref := model.NewRemoteFileRef("1", "a.csv", "text/csv", "2024-02-01T10:00:00.000Z")
			ts, ok := ref.Modified()

			convey.Convey("Then it parses", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(ts.Equal(time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the timestamp is empty or garbage", func() {
			_, ok1 := model.NewRemoteFileRef("1", "a", "", "").Modified()
			_, ok2 := model.NewRemoteFileRef("1", "a", "", "yesterday").Modified()

			convey.Convey("Then it is reported as absent", func() {
				convey.So(ok1, convey.ShouldBeFalse)
				convey.So(ok2, convey.ShouldBeFalse)
			})
		})
	})
}

func TestDatasetClone(t *testing.T) {
	convey.Convey("Given a dataset with extras", t, func() {
		ds := model.Dataset{
			Records: []model.SampleRecord{{Username: "ana", N: 1, Extra: map[string]string{"notes": "x"}}},
			Columns: []string{"username", "notes"},
		}

		convey.Convey("When the clone is mutated", func() {
			c := ds.Clone()
			c.Records[0].Extra["notes"] = "changed"
			c.Records[0].N = 9
			c.Columns[0] = "changed"

			convey.Convey("Then the original is untouched", func() {
				convey.So(ds.Records[0].Extra["notes"], convey.ShouldEqual, "x")
				convey.So(ds.Records[0].N, convey.ShouldEqual, 1)
				convey.So(ds.Columns[0], convey.ShouldEqual, "username")
			})
		})
	})
}

func TestNutrients(t *testing.T) {
	convey.Convey("Given a Nutrients value", t, func() {
		var v model.Nutrients[int]
		v.Set(model.N, 1)
		v.Set(model.P, 2)
		v.Set(model.K, 3)
		convey.So(v.Get(model.N), convey.ShouldEqual, 1)
		convey.So(v.Get(model.P), convey.ShouldEqual, 2)
		convey.So(v.Get(model.K), convey.ShouldEqual, 3)
		convey.So(model.SampleRecord{N: 1.5}.Values().N, convey.ShouldEqual, 1.5)
	})
}
