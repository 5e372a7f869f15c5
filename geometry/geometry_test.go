package geometry_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/IdleFellow/stripedrecon/geometry"
)

var _ = Describe("Geometry", func() {
	Describe("CellsInGroup / MinRequiredSources", func() {
		It("computes scenario 1: D=6 P=3 C=1MiB L=8MiB", func() {
			g := geometry.Group{Length: 8 * miB}
			p := geometry.Policy{Data: 6, Parity: 3, CellSize: miB}
			Expect(geometry.CellsInGroup(g, p)).To(BeEquivalentTo(8))
			Expect(geometry.MinRequiredSources(g, p)).To(Equal(6))
		})

		It("caps at D when the group is shorter than D cells", func() {
			g := geometry.Group{Length: 3 * 64 * kiB} // 3 cells, D=6
			p := geometry.Policy{Data: 6, Parity: 3, CellSize: 64 * kiB}
			Expect(geometry.CellsInGroup(g, p)).To(BeEquivalentTo(3))
			Expect(geometry.MinRequiredSources(g, p)).To(Equal(3))
		})

		It("is zero for an empty group (scenario 3)", func() {
			g := geometry.Group{Length: 0}
			p := geometry.Policy{Data: 6, Parity: 3, CellSize: miB}
			Expect(geometry.CellsInGroup(g, p)).To(BeZero())
			Expect(geometry.MinRequiredSources(g, p)).To(BeZero())
		})
	})

	Describe("InternalBlockLength", func() {
		It("matches scenario 1 exactly: D=6 P=3 C=1MiB L=8MiB", func() {
			g := geometry.Group{Length: 8 * miB}
			p := geometry.Policy{Data: 6, Parity: 3, CellSize: miB}

			Expect(geometry.InternalBlockLength(g, p, 0)).To(BeEquivalentTo(2 * miB))
			Expect(geometry.InternalBlockLength(g, p, 1)).To(BeEquivalentTo(2 * miB))
			Expect(geometry.InternalBlockLength(g, p, 2)).To(BeEquivalentTo(miB))
			Expect(geometry.InternalBlockLength(g, p, 3)).To(BeEquivalentTo(miB))
			Expect(geometry.InternalBlockLength(g, p, 4)).To(BeEquivalentTo(miB))
			Expect(geometry.InternalBlockLength(g, p, 5)).To(BeEquivalentTo(miB))
			// parity columns equal the fullest data column
			Expect(geometry.InternalBlockLength(g, p, 6)).To(BeEquivalentTo(2 * miB))
			Expect(geometry.InternalBlockLength(g, p, 7)).To(BeEquivalentTo(2 * miB))
			Expect(geometry.InternalBlockLength(g, p, 8)).To(BeEquivalentTo(2 * miB))
		})

		It("sums data columns to L and keeps parity columns equal, for an uneven tail", func() {
			g := geometry.Group{Length: 100 * kiB}
			p := geometry.Policy{Data: 3, Parity: 2, CellSize: 64 * kiB}

			var dataSum int64
			for i := 0; i < p.Data; i++ {
				dataSum += geometry.InternalBlockLength(g, p, i)
			}
			Expect(dataSum).To(Equal(g.Length))

			parity0 := geometry.InternalBlockLength(g, p, p.Data)
			parity1 := geometry.InternalBlockLength(g, p, p.Data+1)
			Expect(parity0).To(Equal(parity1))
		})

		It("is zero for every column when L=0 (scenario 3)", func() {
			g := geometry.Group{Length: 0}
			p := geometry.Policy{Data: 6, Parity: 3, CellSize: miB}
			for i := 0; i < p.Width(); i++ {
				Expect(geometry.InternalBlockLength(g, p, i)).To(BeZero())
				Expect(geometry.IsZeroStripe(g, p, i)).To(BeTrue())
			}
		})
	})

	Describe("ConstructInternalBlock", func() {
		It("is stable for the same group and index", func() {
			g := geometry.Group{PoolID: "pool-1", BlockID: "blk-9", Gen: 4}
			a := geometry.ConstructInternalBlock(g, 2)
			b := geometry.ConstructInternalBlock(g, 2)
			Expect(a).To(Equal(b))
		})

		It("differs across indices", func() {
			g := geometry.Group{PoolID: "pool-1", BlockID: "blk-9", Gen: 4}
			a := geometry.ConstructInternalBlock(g, 2)
			b := geometry.ConstructInternalBlock(g, 3)
			Expect(a).NotTo(Equal(b))
		})
	})
})

const (
	kiB = 1024
	miB = 1024 * kiB
)
