package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	repository "github.com/okian/grantfeat/internal/adapters/repository"
	service "github.com/okian/grantfeat/internal/app"
	"github.com/okian/grantfeat/internal/domain/aggregate"
	"github.com/okian/grantfeat/internal/domain/features"
	"github.com/okian/grantfeat/internal/domain/schema"
	"github.com/okian/grantfeat/internal/domain/table"
	"github.com/okian/grantfeat/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var shared = map[string]string{
	schema.GrantStatus:       "1",
	schema.GrantCategory:     "10A",
	schema.ContractValueBand: "B",
	schema.StartDate:         "15/06/09",
	"RFCD.Code.1":            "210000",
	"RFCD.Percentage.1":      "100",
	"SEO.Code.1":             "730000",
	"SEO.Percentage.1":       "100",
}

// application is one raw row: shared overrides plus one map per researcher
// block keyed by first-block column names.
type application struct {
	id     string
	fields map[string]string
	blocks []map[string]string
}

func wide(blocks int, apps ...application) *table.Table {
	l := schema.DefaultLayout()
	header := l.Header(blocks)
	recs := make([][]string, len(apps))
	for i, a := range apps {
		rec := make([]string, len(header))
		for j, f := range l.Shared {
			rec[j] = shared[f.Name]
			if v, ok := a.fields[f.Name]; ok {
				rec[j] = v
			}
		}
		rec[0] = a.id
		for k, b := range a.blocks {
			off := l.SharedWidth() + k*l.BlockWidth()
			for j, f := range l.Block {
				rec[off+j] = b[f.Name]
			}
		}
		recs[i] = rec
	}
	t, err := table.New(header, recs)
	if err != nil {
		panic(err)
	}
	return t
}

func person(id, role, year, country string) map[string]string {
	return map[string]string{
		schema.PersonID:       id,
		schema.ResearcherRole: role,
		schema.YearOfBirth:    year,
		schema.CountryOfBirth: country,
		schema.PapersA:        "2",
	}
}

func sample() *table.Table {
	return wide(3,
		application{id: "20", blocks: []map[string]string{
			person("p1", "CHIEF_INVESTIGATOR", "1970", "Australia"),
			person("p2", "DELEGATED_RESEARCHER", "1980", "Asia Pacific"),
		}},
		application{id: "3", fields: map[string]string{schema.GrantStatus: ""}, blocks: []map[string]string{
			person("p3", "CHIEF_INVESTIGATOR", "1965", "Australia"),
		}},
	)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have an empty store and no runs", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Store(), ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["runs"], ShouldEqual, 0)
			So(stats["applications"], ShouldEqual, 0)
			So(stats["joinPolicy"], ShouldEqual, "inner")
		})
	})

	Convey("Given a new service with custom options", t, func() {
		store := repository.NewMemoryStore(repository.WithMaxPageSize(10))
		svc := service.New(
			service.WithStore(store),
			service.WithJoinPolicy(features.JoinStrict),
			service.WithCodeOptions(aggregate.WithSlots(2)),
			service.WithLogger(logger.Named("test")),
		)

		Convey("Then it should use them", func() {
			So(svc.Store(), ShouldEqual, store)
			So(svc.GetStats()["joinPolicy"], ShouldEqual, "strict")
		})
	})
}

func TestService_Run(t *testing.T) {
	Convey("Given a service and a raw table with three researcher blocks", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("When running the pipeline", func() {
			res, err := svc.Run(ctx, sample())

			Convey("Then it should succeed with one row per application", func() {
				So(err, ShouldBeNil)
				_, perr := uuid.Parse(res.RunID)
				So(perr, ShouldBeNil)
				So(res.Features.Len(), ShouldEqual, 2)
				So(res.Features.IDs(), ShouldResemble, []string{"3", "20"})
			})

			Convey("Then block padding is collapsed", func() {
				So(res.Reshape.Blocks, ShouldEqual, 3)
				So(res.Reshape.Stacked, ShouldEqual, 6)
				So(res.Reshape.Duplicates, ShouldEqual, 1)
				So(res.Reshape.Researchers, ShouldEqual, 5)
			})

			Convey("Then the store holds the feature rows", func() {
				So(svc.Store().Count(ctx), ShouldEqual, 2)
				row, gerr := svc.Store().Get(ctx, "20")
				So(gerr, ShouldBeNil)
				So(row.OldestBirthYear, ShouldEqual, 1970.0)
				So(row.AustralianRatio, ShouldEqual, 0.5)
				So(row.PapersA, ShouldEqual, 4.0)
				So(row.ContractValueBand, ShouldEqual, float64('B'))
				So(svc.Store().Labelled(ctx), ShouldHaveLength, 1)
			})

			Convey("Then stats describe the run", func() {
				stats := svc.GetStats()
				So(stats["runs"], ShouldEqual, 1)
				So(stats["failures"], ShouldEqual, 0)
				So(stats["lastRunID"], ShouldEqual, res.RunID)
				So(stats["applications"], ShouldEqual, 2)
				So(stats["dropped"], ShouldEqual, 0)
			})
		})

		Convey("When running under the strict join policy", func() {
			strict := service.New(service.WithJoinPolicy(features.JoinStrict))
			res, err := strict.Run(ctx, sample())

			Convey("Then nothing is dropped", func() {
				So(err, ShouldBeNil)
				So(res.Report.DroppedCount(), ShouldEqual, 0)
			})
		})

		Convey("When the block width does not divide the header", func() {
			raw, err := table.New([]string{schema.ApplicationID, "extra"}, [][]string{{"1", "x"}})
			So(err, ShouldBeNil)
			_, err = svc.Run(ctx, raw)

			Convey("Then a schema error is returned and the store is untouched", func() {
				So(errors.Is(err, schema.ErrSchema), ShouldBeTrue)
				So(err.Error(), ShouldStartWith, service.StageUnpivot)
				So(svc.Store().Count(ctx), ShouldEqual, 0)
				So(svc.GetStats()["failures"], ShouldEqual, 1)
			})
		})

		Convey("When a start date is malformed", func() {
			raw := wide(1, application{
				id:     "1",
				fields: map[string]string{schema.StartDate: "2009-06-15"},
				blocks: []map[string]string{person("p1", "CHIEF_INVESTIGATOR", "1970", "Australia")},
			})
			_, err := svc.Run(ctx, raw)

			Convey("Then the features stage fails with a parse error", func() {
				So(errors.Is(err, table.ErrParse), ShouldBeTrue)
				So(errors.Is(err, features.ErrParseDate), ShouldBeTrue)
				So(err.Error(), ShouldStartWith, service.StageFeatures)
			})
		})

		Convey("When a previous run succeeded and the next one fails", func() {
			_, err := svc.Run(ctx, sample())
			So(err, ShouldBeNil)
			raw := wide(1, application{id: "", blocks: []map[string]string{person("p1", "", "", "")}})
			_, err = svc.Run(ctx, raw)

			Convey("Then the store keeps the last good table", func() {
				So(errors.Is(err, features.ErrMissingKey), ShouldBeTrue)
				So(svc.Store().Count(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.Run(cctx, sample())

			Convey("Then the run stops before any stage", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(svc.Store().Count(ctx), ShouldEqual, 0)
			})
		})
	})
}
