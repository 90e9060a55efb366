package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/okian/nutrimon/internal/adapters/storage"
	"github.com/okian/nutrimon/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func newStore(t *testing.T) *storage.Store {
	base := t.TempDir()
	return storage.New(filepath.Join(base, "data"), filepath.Join(base, "assets"), "")
}

func TestEnsureDirs(t *testing.T) {
	convey.Convey("Given a fresh store", t, func() {
		s := newStore(t)

		convey.Convey("When many goroutines ensure dirs at once", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 16)
			for range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- s.EnsureDirs()
				}()
			}
			wg.Wait()
			close(errs)

			convey.Convey("Then all succeed and both dirs exist", func() {
				for err := range errs {
					convey.So(err, convey.ShouldBeNil)
				}
				_, err := os.Stat(s.DataDir)
				convey.So(err, convey.ShouldBeNil)
				_, err = os.Stat(s.AssetsDir)
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestWriteAtomic(t *testing.T) {
	convey.Convey("Given a store", t, func() {
		s := newStore(t)
		convey.So(s.EnsureDirs(), convey.ShouldBeNil)

		convey.Convey("When writing a new file", func() {
			h, unchanged, err := s.WriteAtomic(s.DataDir, "data1.csv", []byte("N,P,K\n"))

			convey.Convey("Then the content lands under the final name", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(unchanged, convey.ShouldBeFalse)
				convey.So(h, convey.ShouldEqual, storage.Hash([]byte("N,P,K\n")))
				b, _ := os.ReadFile(filepath.Join(s.DataDir, "data1.csv"))
				convey.So(string(b), convey.ShouldEqual, "N,P,K\n")
			})

			convey.Convey("Then rewriting the same bytes is a no-op", func() {
				_, unchanged, err := s.WriteAtomic(s.DataDir, "data1.csv", []byte("N,P,K\n"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(unchanged, convey.ShouldBeTrue)
			})

			convey.Convey("Then new bytes replace the file and no temp files remain", func() {
				_, unchanged, err := s.WriteAtomic(s.DataDir, "data1.csv", []byte("N\n1\n"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(unchanged, convey.ShouldBeFalse)
				entries, _ := os.ReadDir(s.DataDir)
				convey.So(entries, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the name tries to escape the directory", func() {
			_, _, err := s.WriteAtomic(s.DataDir, "../evil.csv", []byte("x"))
			convey.So(errors.Is(err, storage.ErrInvalidName), convey.ShouldBeTrue)
		})
	})
}

func TestDataCSVs(t *testing.T) {
	convey.Convey("Given a data dir with mixed files", t, func() {
		s := newStore(t)
		convey.So(s.EnsureDirs(), convey.ShouldBeNil)
		for _, n := range []string{"b.csv", "a.CSV", "users.csv", ".hidden.csv", "notes.txt"} {
			convey.So(os.WriteFile(filepath.Join(s.DataDir, n), []byte("x"), 0o644), convey.ShouldBeNil)
		}

		convey.Convey("Then only measurement CSVs are listed, sorted", func() {
			files, err := s.DataCSVs()
			convey.So(err, convey.ShouldBeNil)
			convey.So(files, convey.ShouldResemble, []string{
				filepath.Join(s.DataDir, "a.CSV"),
				filepath.Join(s.DataDir, "b.csv"),
			})
			convey.So(s.UsersPath(), convey.ShouldEqual, filepath.Join(s.DataDir, "users.csv"))
		})

		convey.Convey("Then LocalFiles reports sizes and hashes", func() {
			files, err := s.LocalFiles(model.LocalDataCSV)
			convey.So(err, convey.ShouldBeNil)
			convey.So(files, convey.ShouldHaveLength, 4)
			convey.So(files[0].Hash, convey.ShouldEqual, storage.Hash([]byte("x")))
		})
	})

	convey.Convey("Given a missing data dir", t, func() {
		s := newStore(t)
		files, err := s.DataCSVs()
		convey.So(err, convey.ShouldBeNil)
		convey.So(files, convey.ShouldBeEmpty)
	})
}

func TestIconPath(t *testing.T) {
	convey.Convey("Given an assets dir with icons", t, func() {
		s := newStore(t)
		convey.So(s.EnsureDirs(), convey.ShouldBeNil)
		convey.So(os.WriteFile(filepath.Join(s.AssetsDir, "Tomato.PNG"), []byte("png"), 0o644), convey.ShouldBeNil)
		convey.So(os.WriteFile(filepath.Join(s.AssetsDir, "pepper.png"), []byte("png"), 0o644), convey.ShouldBeNil)

		convey.Convey("Then exact and case-insensitive names resolve", func() {
			p, err := s.IconPath("pepper")
			convey.So(err, convey.ShouldBeNil)
			convey.So(p, convey.ShouldEqual, filepath.Join(s.AssetsDir, "pepper.png"))

			p, err = s.IconPath("tomato")
			convey.So(err, convey.ShouldBeNil)
			convey.So(filepath.Base(p), convey.ShouldEqual, "Tomato.PNG")
		})

		convey.Convey("Then missing icons and the logo report ErrIconNotFound", func() {
			_, err := s.IconPath("corn")
			convey.So(errors.Is(err, storage.ErrIconNotFound), convey.ShouldBeTrue)
			_, err = s.LogoPath()
			convey.So(errors.Is(err, storage.ErrIconNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("Then path separators are rejected", func() {
			_, err := s.IconPath("../data/users")
			convey.So(errors.Is(err, storage.ErrInvalidName), convey.ShouldBeTrue)
		})
	})
}
