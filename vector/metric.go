/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package vector

import "math"

// Metric selects how similarity between two vectors is scored. Scores
// are always "bigger is better" regardless of metric.
type Metric int

const (
	L2 Metric = iota
	Cosine
	Dot
)

func l2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float32) {
	var sumSq float32
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(float64(sumSq)))
	for i := range v {
		v[i] /= norm
	}
}

// score computes the metric-oriented similarity between query and v:
// Dot/Cosine return the raw inner product, L2 returns the negated
// squared distance, so higher is always better.
func (m Metric) score(query, v []float32) float32 {
	switch m {
	case L2:
		return -l2(query, v)
	default: // Cosine, Dot: both compare via inner product once vectors are normalized
		return dot(query, v)
	}
}
