package mapgen

import "math"

// gradientNoise2D is a hand-rolled 2D Perlin-style gradient noise
// generator. No noise library appears anywhere in the reference corpus,
// so this stays on the standard library: math.Floor and a fixed
// permutation table are all it needs.
type gradientNoise2D struct {
	perm [512]int
}

var defaultPermutation = [256]int{
	151, 160, 137, 91, 90, 15, 131, 13, 201, 95, 96, 53, 194, 233, 7, 225,
	140, 36, 103, 30, 69, 142, 8, 99, 37, 240, 21, 10, 23, 190, 6, 148,
	247, 120, 234, 75, 0, 26, 197, 62, 94, 252, 219, 203, 117, 35, 11, 32,
	57, 177, 33, 88, 237, 149, 56, 87, 174, 20, 125, 136, 171, 168, 68, 175,
	74, 165, 71, 134, 139, 48, 27, 166, 77, 146, 158, 231, 83, 111, 229, 122,
	60, 211, 133, 230, 220, 105, 92, 41, 55, 46, 245, 40, 244, 102, 143, 54,
	65, 25, 63, 161, 1, 216, 80, 73, 209, 76, 132, 187, 208, 89, 18, 169,
	200, 196, 135, 130, 116, 188, 159, 86, 164, 100, 109, 198, 173, 186, 3, 64,
	52, 217, 226, 250, 124, 123, 5, 202, 38, 147, 118, 126, 255, 82, 85, 212,
	207, 206, 59, 227, 47, 16, 58, 17, 182, 189, 28, 42, 223, 183, 170, 213,
	119, 248, 152, 2, 44, 154, 163, 70, 221, 153, 101, 155, 167, 43, 172, 9,
	129, 22, 39, 253, 19, 98, 108, 110, 79, 113, 224, 232, 178, 185, 112, 104,
	218, 246, 97, 228, 251, 34, 242, 193, 238, 210, 144, 12, 191, 179, 162, 241,
	81, 51, 145, 235, 249, 14, 239, 107, 49, 192, 214, 31, 181, 199, 106, 157,
	184, 84, 204, 176, 115, 121, 50, 45, 127, 4, 150, 254, 138, 236, 205, 93,
	222, 114, 67, 29, 24, 72, 243, 141, 128, 195, 78, 66, 215, 61, 156, 180,
}

// newGradientNoise2D builds a gradient noise generator. seed rotates the
// fixed permutation table so different calls produce different fields
// without needing crypto/math-rand (the table itself is public-domain
// boilerplate, not randomness that needs to be cryptographically sound).
func newGradientNoise2D(seed int) *gradientNoise2D {
	n := &gradientNoise2D{}
	shift := ((seed % 256) + 256) % 256
	for i := 0; i < 256; i++ {
		v := defaultPermutation[(i+shift)%256]
		n.perm[i] = v
		n.perm[i+256] = v
	}
	return n
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad(hash int, x, y float64) float64 {
	switch hash & 3 {
	case 0:
		return x + y
	case 1:
		return -x + y
	case 2:
		return x - y
	default:
		return -x - y
	}
}

// at samples the noise field at (x, y), returning a value roughly in
// [-1, 1].
func (n *gradientNoise2D) at(x, y float64) float64 {
	xi := int(math.Floor(x)) & 255
	yi := int(math.Floor(y)) & 255
	xf := x - math.Floor(x)
	yf := y - math.Floor(y)

	u := fade(xf)
	v := fade(yf)

	aa := n.perm[n.perm[xi]+yi]
	ab := n.perm[n.perm[xi]+yi+1]
	ba := n.perm[n.perm[xi+1]+yi]
	bb := n.perm[n.perm[xi+1]+yi+1]

	x1 := lerp(u, grad(aa, xf, yf), grad(ba, xf-1, yf))
	x2 := lerp(u, grad(ab, xf, yf-1), grad(bb, xf-1, yf-1))
	return lerp(v, x1, x2)
}

// octaves samples fractal Brownian motion over n.at: the sum of several
// octaves of noise at increasing frequency and decreasing amplitude.
func (n *gradientNoise2D) octaves(x, y float64, octaves int, persistence, lacunarity float64) float64 {
	total := 0.0
	amplitude := 1.0
	frequency := 1.0
	maxValue := 0.0
	for i := 0; i < octaves; i++ {
		total += n.at(x*frequency, y*frequency) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if maxValue == 0 {
		return 0
	}
	return total / maxValue
}

// gaussianUniformizeConstant converts a standard-normal-ish noise sample
// into an approximately uniform [0, 1) value via the Gaussian CDF, using
// the empirically fit standard deviation of fBm noise output (matching
// the constant used by the original terrain generator this was ported
// from).
const gaussianUniformizeConstant = 0.4433703902714217

// gaussianCDF returns the standard normal cumulative distribution
// function evaluated at x, scaled by sigma, i.e. P(X <= x) for
// X ~ N(0, sigma^2).
func gaussianCDF(x, sigma float64) float64 {
	return 0.5 * (1 + math.Erf(x/(sigma*math.Sqrt2)))
}

// uniformize maps a raw fBm sample (typically in roughly [-1, 1], but not
// uniformly distributed within that range) to an approximately uniform
// value in [0, 1), so that e.g. "bottom 20% of values" reliably covers
// close to 20% of the map area.
func uniformize(sample float64) float64 {
	v := gaussianCDF(sample, gaussianUniformizeConstant)
	if v >= 1 {
		// math.Erf saturates to exactly 1 for large samples.
		return math.Nextafter(1, 0)
	}
	return v
}
