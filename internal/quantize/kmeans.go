package quantize

import (
	"context"
	"fmt"
	"image"
	"math"
	mathrand "math/rand/v2"
	"sync"

	"github.com/jmylchreest/picpalette/internal/colour"
)

// distinctLimit is the number of distinct colours below which an image is
// ranked by exact pixel counts instead of being clustered.
const distinctLimit = 256

// KMeans implements colour quantisation using k-means++ clustering in RGB.
type KMeans struct {
	maxIterations int
	convergence   float64
	maxSamples    int

	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewKMeans creates a KMeans quantiser with default settings. A nil seed
// draws one at random.
func NewKMeans(seed *uint64) *KMeans {
	return &KMeans{
		maxIterations: 20,
		convergence:   2.0,
		maxSamples:    2000,
		rng:           colour.NewRand(seed),
	}
}

// Quantize extracts up to n colours ordered by cluster size.
func (q *KMeans) Quantize(ctx context.Context, img image.Image, n int) ([]colour.RGB, error) {
	if err := checkArgs(img, n); err != nil {
		return nil, err
	}

	// Few distinct colours are counted exactly.
	if counts, ok := countColours(img, distinctLimit); ok {
		if len(counts) == 0 {
			return nil, fmt.Errorf("no opaque pixels found in image")
		}
		if n >= len(counts) {
			return rankByWeight(counts, n), nil
		}
	}

	points := q.samplePixels(img)
	if len(points) == 0 {
		return nil, fmt.Errorf("no opaque pixels found in image")
	}

	centroids, weights, err := q.cluster(ctx, points, min(n, len(points)))
	if err != nil {
		return nil, err
	}

	cands := make([]weighted, 0, len(centroids))
	for i, c := range centroids {
		if weights[i] == 0 {
			continue
		}
		cands = append(cands, weighted{
			rgb:    colour.RGB{R: clampByte(c.R), G: clampByte(c.G), B: clampByte(c.B)},
			weight: weights[i],
		})
	}

	return rankByWeight(cands, n), nil
}

// point3D represents a point in 3D RGB color space.
type point3D struct {
	R, G, B float64
}

// distance calculates the Euclidean distance between two points in RGB space.
func (p point3D) distance(other point3D) float64 {
	dr := p.R - other.R
	dg := p.G - other.G
	db := p.B - other.B
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// samplePixels samples opaque pixels on a grid so at most maxSamples are kept.
func (q *KMeans) samplePixels(img image.Image) []point3D {
	bounds := img.Bounds()
	totalPixels := bounds.Dx() * bounds.Dy()

	step := 1
	if totalPixels > q.maxSamples {
		step = max(int(math.Sqrt(float64(totalPixels)/float64(q.maxSamples))), 1)
	}

	points := make([]point3D, 0, min(totalPixels, q.maxSamples))
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			px := img.At(x, y)
			if _, _, _, a := px.RGBA(); a == 0 {
				continue
			}
			rgb := colour.ToRGB(px)
			points = append(points, point3D{R: float64(rgb.R), G: float64(rgb.G), B: float64(rgb.B)})
			if len(points) >= q.maxSamples {
				return points
			}
		}
	}
	return points
}

// cluster runs k-means and returns centroids with their relative weights.
func (q *KMeans) cluster(ctx context.Context, points []point3D, k int) ([]point3D, []float64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	centroids := q.initializeCentroidsKMeansPlusPlus(points, k)
	assignments := make([]int, len(points))
	for i, point := range points {
		assignments[i] = findNearestCentroid(point, centroids)
	}

	for range q.maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		newCentroids := q.recalculateCentroids(points, assignments, k)

		totalMovement := 0.0
		for i := range centroids {
			totalMovement += centroids[i].distance(newCentroids[i])
		}
		centroids = newCentroids

		changed := 0
		for i, point := range points {
			nearest := findNearestCentroid(point, centroids)
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed++
			}
		}

		// Converged when fewer than 1% of points move or centroids barely shift.
		if float64(changed)/float64(len(points)) < 0.01 || totalMovement/float64(k) < q.convergence {
			break
		}
	}

	weights := make([]float64, k)
	for _, assignment := range assignments {
		weights[assignment]++
	}
	total := float64(len(assignments))
	for i := range weights {
		weights[i] /= total
	}

	return centroids, weights, nil
}

// initializeCentroidsKMeansPlusPlus picks initial centroids with probability
// proportional to squared distance from those already chosen.
func (q *KMeans) initializeCentroidsKMeansPlusPlus(points []point3D, k int) []point3D {
	if len(points) == 0 || k == 0 {
		return []point3D{}
	}

	centroids := make([]point3D, 0, k)
	centroids = append(centroids, points[q.rng.IntN(len(points))])

	distances := make([]float64, len(points))
	for len(centroids) < k {
		totalDistance := 0.0
		for i, point := range points {
			minDist := math.MaxFloat64
			for _, centroid := range centroids {
				minDist = math.Min(minDist, point.distance(centroid))
			}
			distances[i] = minDist * minDist
			totalDistance += distances[i]
		}

		if totalDistance == 0 {
			// Every point coincides with a centroid; nudge a duplicate in.
			last := centroids[len(centroids)-1]
			centroids = append(centroids, point3D{R: last.R + 0.1, G: last.G + 0.1, B: last.B + 0.1})
			continue
		}

		target := q.rng.Float64() * totalDistance
		cumulative := 0.0
		chosen := len(points) - 1
		for i, dist := range distances {
			cumulative += dist
			if cumulative >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, points[chosen])
	}

	return centroids
}

// findNearestCentroid finds the index of the nearest centroid to a point.
func findNearestCentroid(point point3D, centroids []point3D) int {
	minDist := math.MaxFloat64
	nearest := 0

	for i, centroid := range centroids {
		dist := point.distance(centroid)
		if dist < minDist {
			minDist = dist
			nearest = i
		}
	}

	return nearest
}

// recalculateCentroids moves each centroid to the mean of its points.
// Empty clusters are reseeded from a random point.
func (q *KMeans) recalculateCentroids(points []point3D, assignments []int, k int) []point3D {
	sums := make([]point3D, k)
	counts := make([]int, k)

	for i, point := range points {
		cluster := assignments[i]
		sums[cluster].R += point.R
		sums[cluster].G += point.G
		sums[cluster].B += point.B
		counts[cluster]++
	}

	centroids := make([]point3D, k)
	for i := range k {
		if counts[i] > 0 {
			centroids[i] = point3D{
				R: sums[i].R / float64(counts[i]),
				G: sums[i].G / float64(counts[i]),
				B: sums[i].B / float64(counts[i]),
			}
		} else {
			centroids[i] = points[q.rng.IntN(len(points))]
		}
	}

	return centroids
}
