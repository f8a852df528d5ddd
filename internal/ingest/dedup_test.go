package ingest_test

import (
	"sentinela/internal/ingest"
	"sentinela/internal/models"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FilterKnown", func() {
	var stubs []models.EmployeeStub

	BeforeEach(func() {
		stubs = []models.EmployeeStub{stubFor("ANA", 1), stubFor("BRUNO", 2), stubFor("CARLA", 3)}
	})

	It("keeps only urls missing from the store, in listing order", func() {
		known := map[string]struct{}{stubs[1].DetailURL: {}}

		Expect(ingest.FilterKnown(stubs, known)).To(Equal([]models.EmployeeStub{stubs[0], stubs[2]}))
	})

	It("returns everything when nothing is stored", func() {
		Expect(ingest.FilterKnown(stubs, nil)).To(Equal(stubs))
	})

	It("returns nothing when every url is stored", func() {
		known := map[string]struct{}{}
		for _, s := range stubs {
			known[s.DetailURL] = struct{}{}
		}
		known["https://transparencia.al.al.leg.br/detalhar.php?id=99"] = struct{}{}

		Expect(ingest.FilterKnown(stubs, known)).To(BeEmpty())
	})

	It("compares urls exactly", func() {
		known := map[string]struct{}{stubs[0].DetailURL + "&x=1": {}}

		Expect(ingest.FilterKnown(stubs, known)).To(HaveLen(3))
	})
})
