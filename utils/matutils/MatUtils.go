// Package matutils implements utility function for working with mat.Matrix
// structs
package matutils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Format formats a matrix for printing
func Format(X mat.Matrix) string {
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("%v", fa)
}

// BlockDiag assembles blocks into one block-diagonal matrix.
// Off-block entries are zero.
func BlockDiag(blocks ...mat.Matrix) *mat.Dense {
	var rows, cols int
	for _, b := range blocks {
		r, c := b.Dims()
		rows += r
		cols += c
	}

	out := mat.NewDense(rows, cols, nil)
	var i, j int
	for _, b := range blocks {
		r, c := b.Dims()
		out.Slice(i, i+r, j, j+c).(*mat.Dense).Copy(b)
		i += r
		j += c
	}
	return out
}
