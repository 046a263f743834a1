package aggregate_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/grantfeat/internal/domain/aggregate"
	"github.com/okian/grantfeat/internal/domain/schema"
	"github.com/okian/grantfeat/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

func mustTable(columns []string, rows ...[]string) *table.Table {
	t, err := table.New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

func value(f *aggregate.Frame, key, column string) float64 {
	v, ok := f.Value(key, column)
	if !ok {
		panic("no cell " + key + "/" + column)
	}
	return v
}

func TestGroupBy(t *testing.T) {
	Convey("Given researcher rows", t, func() {
		tbl := mustTable([]string{"id", "year", "role"},
			[]string{"1", "1980", "CI"},
			[]string{"1", "1970", "CI"},
			[]string{"1", "", "DR"},
			[]string{"2", "", ""},
		)

		Convey("When collapsing with Min", func() {
			f, err := aggregate.GroupBy(tbl, "id", []aggregate.Selector{aggregate.Numeric("year")}, aggregate.Min)

			Convey("Then missing values are skipped", func() {
				So(err, ShouldBeNil)
				So(value(f, "1", "year"), ShouldEqual, 1970.0)
			})

			Convey("Then a group with no value is NaN", func() {
				So(math.IsNaN(value(f, "2", "year")), ShouldBeTrue)
			})
		})

		Convey("When counting a one-hot encoding with Sum", func() {
			sels, labels, err := aggregate.OneHot(tbl, "role", aggregate.Category("role"))
			So(err, ShouldBeNil)
			f, err := aggregate.GroupBy(tbl, "id", sels, aggregate.Sum)

			Convey("Then every observed label is a column", func() {
				So(err, ShouldBeNil)
				So(labels, ShouldResemble, []string{"CI", "DR"})
				So(f.Columns(), ShouldResemble, []string{"role_CI", "role_DR"})
				So(value(f, "1", "role_CI"), ShouldEqual, 2.0)
				So(value(f, "1", "role_DR"), ShouldEqual, 1.0)
				So(value(f, "2", "role_CI"), ShouldEqual, 0.0)
			})
		})

		Convey("When a key is missing", func() {
			bad := mustTable([]string{"id", "year"}, []string{"NA", "1"})
			_, err := aggregate.GroupBy(bad, "id", []aggregate.Selector{aggregate.Numeric("year")}, aggregate.Max)

			Convey("Then grouping fails", func() {
				So(errors.Is(err, aggregate.ErrMissingKey), ShouldBeTrue)
			})
		})

		Convey("When a numeric cell does not parse", func() {
			bad := mustTable([]string{"id", "year"}, []string{"1", "old"})
			_, err := aggregate.GroupBy(bad, "id", []aggregate.Selector{aggregate.Numeric("year")}, aggregate.Max)

			Convey("Then grouping fails with a parse error", func() {
				So(errors.Is(err, table.ErrParse), ShouldBeTrue)
			})
		})
	})
}

func TestCollapse(t *testing.T) {
	Convey("Given collapse policies", t, func() {
		vals := []float64{3, 1, 2}
		So(aggregate.Max(vals), ShouldEqual, 3.0)
		So(aggregate.Min(vals), ShouldEqual, 1.0)
		So(aggregate.Sum(vals), ShouldEqual, 6.0)
		So(math.IsNaN(aggregate.Max(nil)), ShouldBeTrue)
		So(math.IsNaN(aggregate.Min(nil)), ShouldBeTrue)
		So(aggregate.Sum(nil), ShouldEqual, 0.0)
	})
}

func TestFrame(t *testing.T) {
	Convey("Given two frames", t, func() {
		a, err := aggregate.NewFrame([]string{"2", "1"}, []string{"x"}, [][]float64{{1}, {2}})
		So(err, ShouldBeNil)
		b, err := aggregate.NewFrame([]string{"2", "3"}, []string{"x", "y"}, [][]float64{{10, math.NaN()}, {5, 7}})
		So(err, ShouldBeNil)

		Convey("Then keys are sorted", func() {
			So(a.Index(), ShouldResemble, []string{"1", "2"})
		})

		Convey("When adding with fill", func() {
			sum, err := aggregate.AddFill(a, b)

			Convey("Then absent and NaN cells count as zero", func() {
				So(err, ShouldBeNil)
				So(sum.Index(), ShouldResemble, []string{"1", "2", "3"})
				So(sum.Columns(), ShouldResemble, []string{"x", "y"})
				So(value(sum, "1", "x"), ShouldEqual, 2.0)
				So(value(sum, "1", "y"), ShouldEqual, 0.0)
				So(value(sum, "2", "x"), ShouldEqual, 11.0)
				So(value(sum, "2", "y"), ShouldEqual, 0.0)
				So(value(sum, "3", "y"), ShouldEqual, 7.0)
			})

			Convey("Then nil is the identity", func() {
				same, err := aggregate.AddFill(nil, a)
				So(err, ShouldBeNil)
				So(same, ShouldEqual, a)
			})
		})

		Convey("When joining", func() {
			c, err := aggregate.NewFrame([]string{"2", "3"}, []string{"z"}, [][]float64{{4}, {5}})
			So(err, ShouldBeNil)
			j, res, err := aggregate.Join(a, c)

			Convey("Then only shared keys survive and the rest are reported", func() {
				So(err, ShouldBeNil)
				So(j.Index(), ShouldResemble, []string{"2"})
				So(j.Columns(), ShouldResemble, []string{"x", "z"})
				So(value(j, "2", "z"), ShouldEqual, 4.0)
				So(res.Dropped(), ShouldBeTrue)
				So(res.LeftOnly, ShouldResemble, []string{"1"})
				So(res.RightOnly, ShouldResemble, []string{"3"})
			})

			Convey("Then colliding columns are rejected", func() {
				_, _, err := aggregate.Join(a, b)
				So(errors.Is(err, aggregate.ErrDuplicateColumn), ShouldBeTrue)
			})
		})

		Convey("When a frame is built with duplicate keys", func() {
			_, err := aggregate.NewFrame([]string{"1", "1"}, []string{"x"}, [][]float64{{1}, {2}})

			Convey("Then it fails", func() {
				So(errors.Is(err, aggregate.ErrDuplicateKey), ShouldBeTrue)
			})
		})
	})
}

func codeTable(rows ...map[string]string) *table.Table {
	header := []string{schema.ApplicationID}
	for i := 1; i <= schema.CodeSlots; i++ {
		header = append(header, schema.SlotColumn(schema.RFCDCodePrefix, i), schema.SlotColumn(schema.RFCDPercentagePrefix, i))
	}
	recs := make([][]string, len(rows))
	for i, r := range rows {
		rec := make([]string, len(header))
		for j, c := range header {
			rec[j] = r[c]
			if rec[j] == "" && j > 0 && j%2 == 0 {
				rec[j] = "0"
			}
		}
		recs[i] = rec
	}
	return mustTable(header, recs...)
}

func TestCodeAggregator(t *testing.T) {
	Convey("Given RFCD code slots", t, func() {
		Convey("When two slots of one application share a bucket", func() {
			tbl := codeTable(map[string]string{
				schema.ApplicationID: "1",
				"RFCD.Code.1":        "5", "RFCD.Percentage.1": "40",
				"RFCD.Code.2": "5", "RFCD.Percentage.2": "10",
			})
			f, err := aggregate.NewCodeAggregator(aggregate.RFCDConfig(), aggregate.WithDivisor(1)).Aggregate(tbl)

			Convey("Then the bucket holds the summed percentage", func() {
				So(err, ShouldBeNil)
				So(value(f, "1", "RFCD.Code._5"), ShouldEqual, 50.0)
			})
		})

		Convey("When codes are coarsened by the default divisor", func() {
			tbl := codeTable(
				map[string]string{
					schema.ApplicationID: "1",
					"RFCD.Code.1":        "210105", "RFCD.Percentage.1": "60",
					"RFCD.Code.2": "219999", "RFCD.Percentage.2": "30",
					"RFCD.Code.3": "320000", "RFCD.Percentage.3": "10",
				},
				map[string]string{
					schema.ApplicationID: "2",
					"RFCD.Code.1":        "320101", "RFCD.Percentage.1": "100",
				},
			)
			f, err := aggregate.NewCodeAggregator(aggregate.RFCDConfig()).Aggregate(tbl)

			Convey("Then buckets are floor(code / 10000), sorted numerically", func() {
				So(err, ShouldBeNil)
				So(f.Columns(), ShouldResemble, []string{"RFCD.Code._21", "RFCD.Code._32", "RFCD.Code._99"})
				So(value(f, "1", "RFCD.Code._21"), ShouldEqual, 90.0)
				So(value(f, "1", "RFCD.Code._32"), ShouldEqual, 10.0)
				So(value(f, "2", "RFCD.Code._32"), ShouldEqual, 100.0)
				So(value(f, "2", "RFCD.Code._21"), ShouldEqual, 0.0)
			})

			Convey("Then missing codes fall in bucket 99 with their percentage", func() {
				So(value(f, "1", "RFCD.Code._99"), ShouldEqual, 0.0)
			})
		})

		Convey("When a code is zero", func() {
			tbl := codeTable(map[string]string{
				schema.ApplicationID: "1",
				"RFCD.Code.1":        "0", "RFCD.Percentage.1": "0",
				"RFCD.Code.2": "210000", "RFCD.Percentage.2": "100",
			})

			Convey("Then bucket 0 is dropped by default", func() {
				f, err := aggregate.NewCodeAggregator(aggregate.RFCDConfig(), aggregate.WithSlots(2)).Aggregate(tbl)
				So(err, ShouldBeNil)
				So(f.Columns(), ShouldResemble, []string{"RFCD.Code._21"})
			})

			Convey("Then it can be kept", func() {
				f, err := aggregate.NewCodeAggregator(aggregate.RFCDConfig(),
					aggregate.WithSlots(2), aggregate.WithKeepZeroBucket(true)).Aggregate(tbl)
				So(err, ShouldBeNil)
				So(f.Columns(), ShouldResemble, []string{"RFCD.Code._0", "RFCD.Code._21"})
			})
		})

		Convey("When a percentage is missing", func() {
			tbl := codeTable(map[string]string{schema.ApplicationID: "1", "RFCD.Code.1": "210000"})
			recs := tbl.Records()
			recs[0][2] = ""
			tbl = mustTable(tbl.Columns(), recs...)
			_, err := aggregate.NewCodeAggregator(aggregate.RFCDConfig()).Aggregate(tbl)

			Convey("Then it must have been imputed first", func() {
				So(errors.Is(err, aggregate.ErrMissingWeight), ShouldBeTrue)
			})
		})

		Convey("When a slot column is absent", func() {
			tbl := mustTable([]string{schema.ApplicationID}, []string{"1"})
			_, err := aggregate.NewCodeAggregator(aggregate.RFCDConfig()).Aggregate(tbl)

			Convey("Then it is a schema error", func() {
				So(errors.Is(err, schema.ErrSchema), ShouldBeTrue)
			})
		})
	})
}
