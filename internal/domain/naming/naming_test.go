package naming_test

import (
	"testing"

	"github.com/okian/nutrimon/internal/domain/model"
	"github.com/okian/nutrimon/internal/domain/naming"
	"github.com/smartystreets/goconvey/convey"
)

func ref(name, mime string) model.RemoteFileRef {
	return model.NewRemoteFileRef("id-"+name, name, mime, "")
}

func TestDataTarget(t *testing.T) {
	convey.Convey("Given remote items seen during a data sync", t, func() {
		cases := []struct {
			ref    model.RemoteFileRef
			target string
			ok     bool
		}{
			{ref("users.csv", "text/csv"), "users.csv", true},
			{ref("Users", model.MimeSpreadsheet), "users.csv", true},
			{ref("USERS.CSV", "text/csv"), "users.csv", true},
			{ref("data1.csv", "text/csv"), "data1.csv", true},
			{ref("Samples 2024", model.MimeSpreadsheet), "Samples 2024.csv", true},
			{ref("sheet.csv", model.MimeSpreadsheet), "sheet.csv", true},
			{ref("old_users.csv", "text/csv"), "", false},
			{ref("users_backup", model.MimeSpreadsheet), "", false},
			{ref("notes.txt", "text/plain"), "", false},
			{ref(".hidden.csv", "text/csv"), "", false},
			{ref("www", model.MimeFolder), "", false},
			{ref("tomato.png", "image/png"), "", false},
		}

		for _, c := range cases {
			target, ok := naming.DataTarget(c.ref, "users")
			convey.So(ok, convey.ShouldEqual, c.ok)
			convey.So(target, convey.ShouldEqual, c.target)
		}
	})
}

func TestIconTarget(t *testing.T) {
	convey.Convey("Given items in the icon folder", t, func() {
		target, ok := naming.IconTarget(ref("Tomato.png", "image/png"))
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(target, convey.ShouldEqual, "Tomato.png")

		_, ok = naming.IconTarget(ref("readme.csv", "text/csv"))
		convey.So(ok, convey.ShouldBeFalse)

		_, ok = naming.IconTarget(ref(".thumb.png", "image/png"))
		convey.So(ok, convey.ShouldBeFalse)
	})
}
