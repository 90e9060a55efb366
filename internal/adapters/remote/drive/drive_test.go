package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/okian/nutrimon/internal/adapters/remote"
	"github.com/smartystreets/goconvey/convey"
)

func newTestSource(t *testing.T, h http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := gdrive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication())
	if err != nil {
		t.Fatal(err)
	}
	return NewWithService(svc)
}

func TestQuote(t *testing.T) {
	convey.Convey("Given folder names with quotes", t, func() {
		convey.So(quote("data app NPK"), convey.ShouldEqual, "'data app NPK'")
		convey.So(quote(`grower's`), convey.ShouldEqual, `'grower\'s'`)
	})
}

func TestDriveSource(t *testing.T) {
	convey.Convey("Given a fake Drive API", t, func() {
		var queries []string
		src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/files" && r.Method == http.MethodGet:
				q := r.URL.Query().Get("q")
				queries = append(queries, q)
				w.Header().Set("Content-Type", "application/json")
				switch {
				case strings.Contains(q, "'missing'"):
					fmt.Fprint(w, `{"files":[]}`)
				case strings.Contains(q, "name = "):
					fmt.Fprint(w, `{"files":[{"id":"root1","name":"data app NPK","mimeType":"application/vnd.google-apps.folder"}]}`)
				case r.URL.Query().Get("pageToken") == "":
					fmt.Fprint(w, `{"nextPageToken":"p2","files":[{"id":"f1","name":"users.csv","mimeType":"text/csv","modifiedTime":"2024-02-01T00:00:00.000Z"}]}`)
				default:
					fmt.Fprint(w, `{"files":[{"id":"s1","name":"Samples","mimeType":"application/vnd.google-apps.spreadsheet"}]}`)
				}
			case r.URL.Path == "/files/f1" && r.URL.Query().Get("alt") == "media":
				fmt.Fprint(w, "username,password\n")
			case r.URL.Path == "/files/s1/export":
				fmt.Fprint(w, "N,P,K\n"+r.URL.Query().Get("mimeType"))
			default:
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":{"code":404,"message":"File not found"}}`)
			}
		})
		ctx := context.Background()

		convey.Convey("When finding the root folder", func() {
			ref, err := src.FindFolder(ctx, "", "data app NPK")

			convey.Convey("Then the folder query is exact and excludes trash", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ref.ID, convey.ShouldEqual, "root1")
				convey.So(ref.IsFolder(), convey.ShouldBeTrue)
				convey.So(queries[0], convey.ShouldContainSubstring, "trashed = false")
			})
		})

		convey.Convey("When the folder does not exist", func() {
			_, err := src.FindFolder(ctx, "root1", "missing")
			convey.So(errors.Is(err, remote.ErrFolderNotFound), convey.ShouldBeTrue)
			convey.So(queries[0], convey.ShouldContainSubstring, "'root1' in parents")
		})

		convey.Convey("When listing a folder with two pages", func() {
			refs, err := src.List(ctx, "root1")

			convey.Convey("Then both pages are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(refs, convey.ShouldHaveLength, 2)
				convey.So(refs[0].Name, convey.ShouldEqual, "users.csv")
				convey.So(refs[1].Name, convey.ShouldEqual, "Samples")
			})
		})

		convey.Convey("When downloading and exporting", func() {
			b, err := src.Download(ctx, "f1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldEqual, "username,password\n")

			b, err = src.Export(ctx, "s1", "text/csv")
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldEqual, "N,P,K\ntext/csv")
		})

		convey.Convey("When the file is gone", func() {
			_, err := src.Download(ctx, "nope")
			convey.So(errors.Is(err, remote.ErrNotFound), convey.ShouldBeTrue)
		})
	})
}

func TestTokenSourceFromJSON(t *testing.T) {
	convey.Convey("Given token files", t, func() {
		ctx := context.Background()

		convey.Convey("When the file has an access token only", func() {
			ts, err := TokenSourceFromJSON(ctx, []byte(`{"token":"abc"}`))
			convey.So(err, convey.ShouldBeNil)
			tok, err := ts.Token()
			convey.So(err, convey.ShouldBeNil)
			convey.So(tok.AccessToken, convey.ShouldEqual, "abc")
		})

		convey.Convey("When the file is empty JSON", func() {
			_, err := TokenSourceFromJSON(ctx, []byte(`{}`))
			convey.So(errors.Is(err, ErrNoToken), convey.ShouldBeTrue)
		})

		convey.Convey("When the file is not JSON", func() {
			_, err := TokenSourceFromJSON(ctx, []byte(`nope`))
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
