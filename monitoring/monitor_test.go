package monitoring_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"

	"github.com/sarchlab/memsim/mem/vm/replacement"
	"github.com/sarchlab/memsim/monitoring"
	"github.com/sarchlab/memsim/mem/vm/tlb"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sampleStruct struct {
	field1 int
	field2 string
	field3 *sampleStruct
	field4 []sampleStruct
}

func get(m *monitoring.Monitor, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()

	m.Router().ServeHTTP(rec, req)

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		m    *monitoring.Monitor
		t    *tlb.Comp
		fifo *replacement.FIFO
	)

	BeforeEach(func() {
		m = monitoring.NewMonitor()
		t = tlb.MakeBuilder().WithNumWays(2).Build("TLB")
		fifo = replacement.MakeBuilder().WithNumFrames(3).Build("FIFO")

		m.RegisterSimulator(t)
		m.RegisterSimulator(fifo)
	})

	It("should attach a counting hook to registered simulators", func() {
		Expect(t.NumHooks()).To(Equal(1))
		Expect(fifo.NumHooks()).To(Equal(1))
	})

	It("should not register a name twice", func() {
		other := tlb.MakeBuilder().Build("TLB")

		Expect(func() { m.RegisterSimulator(other) }).To(Panic())
	})

	It("should list simulators", func() {
		rec := get(m, "/api/list_simulators")

		var names []string
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"TLB", "FIFO"}))
	})

	It("should report statistics", func() {
		m.Exclusive(func() {
			fifo.Simulate([]uint64{1, 2, 1, 3, 4})
		})

		rec := get(m, "/api/stats/FIFO")

		var rsp struct {
			Frames     []uint64
			Faults     uint64
			References uint64
		}
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Frames).To(Equal([]uint64{2, 3, 4}))
		Expect(rsp.Faults).To(Equal(uint64(4)))
		Expect(rsp.References).To(Equal(uint64(5)))
	})

	It("should count hook positions", func() {
		m.Exclusive(func() {
			t.Insert(1, 10)
			t.Lookup(1)
			t.Lookup(2)
			t.Lookup(3)
		})

		rec := get(m, "/api/hooks/TLB")

		var counts []monitoring.HookCount
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(rec.Body.Bytes(), &counts)).To(Succeed())
		Expect(counts).To(Equal([]monitoring.HookCount{
			{Pos: tlb.HookPosInsert.Name, Count: 1},
			{Pos: tlb.HookPosHit.Name, Count: 1},
			{Pos: tlb.HookPosMiss.Name, Count: 2},
		}))
	})

	It("should return an empty list before any event", func() {
		rec := get(m, "/api/hooks/FIFO")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should serialize a simulator", func() {
		rec := get(m, "/api/simulator/FIFO")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should return 404 for unknown simulators", func() {
		for _, path := range []string{
			"/api/simulator/MMU",
			"/api/stats/MMU",
			"/api/hooks/MMU",
		} {
			rec := get(m, path)

			Expect(rec.Code).To(Equal(http.StatusNotFound), path)
		}
	})

	It("should reject fields that do not exist", func() {
		req, _ := json.Marshal(monitoring.FieldReq{SimName: "FIFO", FieldName: "nothing"})

		rec := get(m, "/api/field/"+url.PathEscape(string(req)))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should reject malformed field requests", func() {
		rec := get(m, "/api/field/"+url.PathEscape("{"))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should list the resources of the process", func() {
		rec := get(m, "/api/resource")

		var rsp monitoring.ResourceRsp
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("fifo", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)
		bar.IncrementFinished(2)

		rec := get(m, "/api/progress")

		var bars []monitoring.ProgressBarRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].ID).To(Equal("1"))
		Expect(bars[0].Finished).To(Equal(uint64(5)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)

		rec = get(m, "/api/progress")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should fall back to a random port below 1000", func() {
		Expect(monitoring.PortNumber(m.WithPortNumber(80))).To(Equal(0))
		Expect(monitoring.PortNumber(m.WithPortNumber(8080))).To(Equal(8080))
	})
})

var _ = Describe("Field walker", func() {
	var m *monitoring.Monitor

	BeforeEach(func() {
		m = monitoring.NewMonitor()
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			field1: 1,
		}

		elem, err := m.WalkFields(s, "field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			field2: "abc",
		}

		elem, err := m.WalkFields(s, "field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk recursively", func() {
		s := &sampleStruct{
			field3: &sampleStruct{
				field1: 1,
			},
		}

		elem, err := m.WalkFields(s, "field3.field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{
				field4: []sampleStruct{
					{field1: 1},
				},
			}, {}},
		}

		elem, err := m.WalkFields(s, "field4.0.field4.0.field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should reject unknown fields and bad indices", func() {
		s := &sampleStruct{field4: []sampleStruct{{}}}

		_, err := m.WalkFields(s, "field5")
		Expect(err).To(BeAssignableToTypeOf(monitoring.FieldFormatError{}))

		_, err = m.WalkFields(s, "field4.1")
		Expect(err).To(HaveOccurred())

		_, err = m.WalkFields(s, "field4.x")
		Expect(err).To(HaveOccurred())

		_, err = m.WalkFields(s, "field1.field2")
		Expect(err).To(HaveOccurred())
	})
})
