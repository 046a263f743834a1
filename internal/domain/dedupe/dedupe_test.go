package dedupe_test

import (
	"fmt"
	"testing"

	dedupe "github.com/okian/grantfeat/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should be empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording keys", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(16))

			Convey("And the key is new", func() {
				seen := d.SeenAndRecord("row-1")

				Convey("Then it should return false and record the key", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key was already seen", func() {
				d.SeenAndRecord("row-1")
				seen := d.SeenAndRecord("row-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When recording more keys than the initial capacity", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(2))
			const n = 1000
			for i := 0; i < n; i++ {
				So(d.SeenAndRecord(fmt.Sprintf("row-%d", i)), ShouldBeFalse)
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, n)
				for i := 0; i < n; i++ {
					So(d.SeenAndRecord(fmt.Sprintf("row-%d", i)), ShouldBeTrue)
				}
			})
		})
	})
}

func TestKey(t *testing.T) {
	Convey("Given row keys", t, func() {
		Convey("When cells differ only in where a separator falls", func() {
			a := dedupe.Key([]string{"1:a", "b"})
			b := dedupe.Key([]string{"1", "a:b"})

			Convey("Then the keys differ", func() {
				So(a, ShouldNotEqual, b)
			})
		})

		Convey("When rows are equal", func() {
			Convey("Then the keys are equal", func() {
				So(dedupe.Key([]string{"x", "", "y"}), ShouldEqual, dedupe.Key([]string{"x", "", "y"}))
			})
		})

		Convey("When a row has an empty trailing cell", func() {
			Convey("Then it differs from the row without it", func() {
				So(dedupe.Key([]string{"x", ""}), ShouldNotEqual, dedupe.Key([]string{"x"}))
			})
		})
	})
}
