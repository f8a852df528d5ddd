package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinela/internal/db"
	"sentinela/internal/ingest"
	"sentinela/internal/models"
	"sentinela/internal/pkg/payslip"
	"sentinela/internal/testhelpers"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Orchestrator", func() {
	var (
		source *fakeSource
		repo   *memRepo
		orch   *ingest.Orchestrator
		ctx    context.Context
		jan    models.Period
		today  time.Time
	)

	detail := func(role string, net float64) *payslip.Detail {
		return &payslip.Detail{Role: role, NetIncome: net, TotalCredits: net + 100, TotalDebits: 100}
	}

	BeforeEach(func() {
		source = newFakeSource()
		repo = newMemRepo()
		ctx = context.Background()
		jan = models.Period{Year: 2024, Month: 1}
		today = time.Date(2024, time.February, 10, 18, 30, 0, 0, time.UTC)

		orch = ingest.NewOrchestrator(source, repo, 3, nil)
		orch.Now = func() time.Time { return today }
	})

	It("stores every new record with the period and collection date", func() {
		source.publish(jan, stubFor("ANA", 1), detail("ASSESSOR", 1000))
		source.publish(jan, stubFor("BRUNO", 2), detail("MOTORISTA", 2000))

		summary := orch.Run(ctx, []models.Period{jan})

		Expect(summary.TotalSaved).To(Equal(2))
		report, ok := summary.Report(jan)
		Expect(ok).To(BeTrue())
		Expect(report.Outcome).To(Equal(ingest.OutcomeSaved))
		Expect(report.Listed).To(Equal(2))
		Expect(report.Pending).To(Equal(2))

		stored := repo.records[stubFor("BRUNO", 2).DetailURL]
		Expect(stored.Name).To(Equal("BRUNO"))
		Expect(stored.Role).To(Equal("MOTORISTA"))
		Expect(stored.NetIncome).To(Equal(2000.0))
		Expect(stored.TotalCredits).To(Equal(2100.0))
		Expect(stored.Period()).To(Equal(jan))
		Expect(stored.CollectedAt).To(Equal(time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)))
	})

	It("is idempotent across runs", func() {
		for i := 1; i <= 4; i++ {
			source.publish(jan, stubFor("SERVIDOR", i), detail("ASSESSOR", float64(i)))
		}

		first := orch.Run(ctx, []models.Period{jan})
		Expect(first.TotalSaved).To(Equal(4))
		fetchesAfterFirst := source.fetchCalls.Load()

		second := orch.Run(ctx, []models.Period{jan})
		Expect(second.TotalSaved).To(BeZero())
		Expect(repo.count(jan)).To(Equal(4))

		report, _ := second.Report(jan)
		Expect(report.Outcome).To(Equal(ingest.OutcomeUpToDate))
		Expect(source.fetchCalls.Load()).To(Equal(fetchesAfterFirst))
		Expect(repo.begins).To(Equal(1))
	})

	It("neither fetches nor persists when the listing is fully stored", func() {
		stub := stubFor("ANA", 1)
		source.publish(jan, stub, detail("ASSESSOR", 1))
		repo.records[stub.DetailURL] = models.PayrollRecord{SourceURL: stub.DetailURL, ReferenceMonth: 1, ReferenceYear: 2024}

		summary := orch.Run(ctx, []models.Period{jan})

		Expect(summary.TotalSaved).To(BeZero())
		Expect(source.fetchCalls.Load()).To(BeZero())
		Expect(repo.begins).To(BeZero())
	})

	It("commits the records that succeeded when some pages fail", func() {
		for i := 1; i <= 5; i++ {
			source.publish(jan, stubFor("SERVIDOR", i), detail("ASSESSOR", float64(i*1000)))
		}
		source.failures[stubFor("SERVIDOR", 3).DetailURL] = fmt.Errorf("%w: GET: context deadline exceeded", ingest.ErrRetrieval)
		source.details[stubFor("SERVIDOR", 5).DetailURL] = detail(models.UnknownRole, 500)

		summary := orch.Run(ctx, []models.Period{jan})

		report, _ := summary.Report(jan)
		Expect(report.Outcome).To(Equal(ingest.OutcomeSaved))
		Expect(report.Fetched).To(Equal(4))
		Expect(report.Failed).To(Equal(1))
		Expect(report.Saved).To(Equal(4))
		Expect(repo.count(jan)).To(Equal(4))

		unknown := 0
		for _, r := range repo.records {
			if r.Role == models.UnknownRole {
				unknown++
			}
		}
		Expect(unknown).To(Equal(1))
	})

	It("moves on to the next period after a listing failure", func() {
		feb := models.Period{Year: 2024, Month: 2}
		source.listErr[feb] = fmt.Errorf("%w: GET: 503", ingest.ErrRetrieval)
		source.publish(jan, stubFor("ANA", 1), detail("ASSESSOR", 1))

		summary := orch.Run(ctx, []models.Period{feb, jan})

		Expect(summary.Periods).To(HaveLen(2))
		failed, _ := summary.Report(feb)
		Expect(failed.Outcome).To(Equal(ingest.OutcomeListingFailed))
		Expect(failed.Err).To(MatchError(ingest.ErrRetrieval))
		Expect(summary.TotalSaved).To(Equal(1))
	})

	It("records empty periods without touching the store", func() {
		summary := orch.Run(ctx, []models.Period{jan})

		report, _ := summary.Report(jan)
		Expect(report.Outcome).To(Equal(ingest.OutcomeNoData))
		Expect(repo.knownCalls).To(BeZero())
	})

	It("leaves the period empty when the commit fails", func() {
		source.publish(jan, stubFor("ANA", 1), detail("ASSESSOR", 1))
		source.publish(jan, stubFor("BRUNO", 2), detail("ASSESSOR", 2))
		repo.commitErr = errors.New("connection lost")

		summary := orch.Run(ctx, []models.Period{jan})

		report, _ := summary.Report(jan)
		Expect(report.Outcome).To(Equal(ingest.OutcomePersistFailed))
		Expect(report.Err).To(MatchError(ingest.ErrPersistenceFailure))
		Expect(report.Saved).To(BeZero())
		Expect(repo.rollbacks).To(Equal(1))
		Expect(repo.count(jan)).To(BeZero())
	})

	It("reports a period where every fetch failed", func() {
		source.listings[jan] = []models.EmployeeStub{stubFor("ANA", 1)}

		summary := orch.Run(ctx, []models.Period{jan})

		report, _ := summary.Report(jan)
		Expect(report.Outcome).To(Equal(ingest.OutcomeNothingFetched))
		Expect(report.Failed).To(Equal(1))
		Expect(repo.begins).To(BeZero())
	})

	It("stops before the next period once the context is cancelled", func() {
		source.publish(jan, stubFor("ANA", 1), detail("ASSESSOR", 1))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		summary := orch.Run(cancelled, []models.Period{jan})

		Expect(summary.Periods).To(BeEmpty())
		Expect(source.listCalls.Load()).To(BeZero())
	})

	Context("with a database", func() {
		It("adds only the missing records of a partly stored period", func() {
			conn := testhelpers.NewTestDB()
			a, b, c := stubFor("ANA", 1), stubFor("BRUNO", 2), stubFor("CARLA", 3)
			testhelpers.CreatePayrollRecord(conn, &models.PayrollRecord{
				Name:           a.Name,
				ReferenceMonth: 1,
				ReferenceYear:  2024,
				SourceURL:      a.DetailURL,
			})

			source.publish(jan, a, detail("ASSESSOR", 1))
			source.publish(jan, b, detail("ASSESSOR", 2))
			source.publish(jan, c, detail("ASSESSOR", 3))

			orch.Repo = db.NewPayrollRepository(conn)
			summary := orch.Run(ctx, []models.Period{jan})

			Expect(summary.TotalSaved).To(Equal(2))
			Expect(source.fetchCalls.Load()).To(Equal(int32(2)))
			Expect(testhelpers.CountRecords(conn, jan)).To(Equal(int64(3)))

			again := orch.Run(ctx, []models.Period{jan})
			Expect(again.TotalSaved).To(BeZero())
			Expect(testhelpers.CountRecords(conn, jan)).To(Equal(int64(3)))
		})
	})
})
