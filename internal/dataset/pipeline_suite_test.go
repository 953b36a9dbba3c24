package dataset_test

import (
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/nodecast/internal/dataset"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dataset Pipeline Suite")
}

var _ = Describe("Generate", func() {
	opts := dataset.Options{
		BatchSize:            32,
		Extrap:               true,
		TrajectoriesToSample: 100,
		Normalize:            true,
		OutOfDistribution:    true,
		ObserveSteps:         500,
		Seed:                 42,
	}

	It("assembles the sine benchmark end to end", func() {
		d, err := dataset.Generate("sine", opts)
		Expect(err).NotTo(HaveOccurred())

		Expect(d.InputDim).To(Equal(1))
		Expect(d.OutputDim).To(Equal(1))
		Expect(d.InputSteps).To(Equal(500))
		Expect(d.OutputSteps).To(Equal(500))
		Expect(d.Mode).To(Equal(dataset.Extrap))

		Expect(d.Train.Len()).To(Equal(80))
		Expect(d.Val.Len()).To(Equal(10))
		Expect(d.Test.Len()).To(Equal(10))
	})

	It("standardizes with train statistics only", func() {
		d, err := dataset.Generate("sine", opts)
		Expect(err).NotTo(HaveOccurred())

		obs := d.Train.Dataset().ObservedData
		pred := d.Train.Dataset().DataToPredict
		sum, count := 0.0, 0
		for i := 0; i < obs.N; i++ {
			for t := 0; t < obs.T; t++ {
				sum += obs.At(i, t, 0)
				count++
			}
			for t := 0; t < pred.T; t++ {
				sum += pred.At(i, t, 0)
				count++
			}
		}
		Expect(sum / float64(count)).To(BeNumerically("~", 0, 1e-9))
		Expect(d.Norm.Std[0]).To(BeNumerically(">", 0))
	})

	It("is reproducible for a fixed seed", func() {
		a, err := dataset.Generate("sine", opts)
		Expect(err).NotTo(HaveOccurred())
		b, err := dataset.Generate("sine", opts)
		Expect(err).NotTo(HaveOccurred())

		ba := a.Train.Epoch()
		bb := b.Train.Epoch()
		Expect(len(ba)).To(Equal(len(bb)))
		Expect(ba[0].ObservedData.Raw()).To(Equal(bb[0].ObservedData.Raw()))
	})

	It("masks entries in interpolation mode", func() {
		masked := opts
		masked.Extrap = false
		masked.Normalize = false
		masked.PercentMissing = 0.5

		d, err := dataset.Generate("sine", masked)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Mode).To(Equal(dataset.Interp))

		obs := d.Train.Dataset().ObservedData
		zeros := 0
		for i := 0; i < obs.N; i++ {
			for t := 0; t < obs.T; t++ {
				if obs.At(i, t, 0) == 0 {
					zeros++
				}
			}
		}
		frac := float64(zeros) / float64(obs.N*obs.T)
		Expect(frac).To(BeNumerically("~", 0.5, 0.05))
	})

	It("adds seeded Gaussian noise when asked", func() {
		noisy := opts
		noisy.Normalize = false
		noisy.NoiseStd = 0.1
		clean := opts
		clean.Normalize = false

		dn, err := dataset.Generate("sine", noisy)
		Expect(err).NotTo(HaveOccurred())
		dc, err := dataset.Generate("sine", clean)
		Expect(err).NotTo(HaveOccurred())

		on := dn.Train.Dataset().ObservedData
		oc := dc.Train.Dataset().ObservedData
		diff := 0.0
		for i := 0; i < on.N; i++ {
			for t := 0; t < on.T; t++ {
				diff += math.Abs(on.At(i, t, 0) - oc.At(i, t, 0))
			}
		}
		mean := diff / float64(on.N*on.T)
		// E|N(0, 0.1)| = 0.1 * sqrt(2/pi).
		Expect(mean).To(BeNumerically("~", 0.1*math.Sqrt(2/math.Pi), 0.02))
	})

	It("keeps trajectory order independent of corruption draws", func() {
		noisy := opts
		noisy.Normalize = false
		noisy.NoiseStd = 0.1
		clean := opts
		clean.Normalize = false

		dn, err := dataset.Generate("sine", noisy)
		Expect(err).NotTo(HaveOccurred())
		dc, err := dataset.Generate("sine", clean)
		Expect(err).NotTo(HaveOccurred())

		// Same position, same underlying trajectory: the residual is pure
		// noise, far below the gap between two different sine phases.
		on := dn.Train.Dataset().ObservedData
		oc := dc.Train.Dataset().ObservedData
		for i := 0; i < on.N; i++ {
			for t := 0; t < on.T; t++ {
				Expect(math.Abs(on.At(i, t, 0) - oc.At(i, t, 0))).To(BeNumerically("<", 1.0))
			}
		}
	})
})
