// Package face defines the descriptor types shared by the extraction,
// clustering and organizing stages.
package face

import "math"

// DescriptorSize is the dimensionality of a face descriptor vector.
const DescriptorSize = 128

// Descriptor is a fixed-length face embedding. Euclidean distance between
// two descriptors approximates facial similarity.
type Descriptor [DescriptorSize]float64

// Distance returns the Euclidean distance between two descriptors.
func (d Descriptor) Distance(other Descriptor) float64 {
	var sum float64
	for i := range d {
		diff := d[i] - other[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Float32 returns the descriptor as a float32 slice for use with
// vector indexes that operate on float32.
func (d Descriptor) Float32() []float32 {
	out := make([]float32, DescriptorSize)
	for i, v := range d {
		out[i] = float32(v)
	}
	return out
}

// FromFloat32 converts a raw embedding slice into a Descriptor.
// Returns false if the slice has the wrong dimensionality.
func FromFloat32(v []float32) (Descriptor, bool) {
	var d Descriptor
	if len(v) != DescriptorSize {
		return d, false
	}
	for i, x := range v {
		d[i] = float64(x)
	}
	return d, true
}

// Detection is a single face found in an image.
type Detection struct {
	Descriptor Descriptor
	BBox       []float64 // [x1, y1, x2, y2] in pixel coordinates
	DetScore   float64
}

// Record pairs a descriptor with the image file it was extracted from.
// Multiple records may share the same source path (multi-face images).
type Record struct {
	Descriptor Descriptor
	SourcePath string
}
