package linalg

import (
	"fmt"

	"github.com/ckks-eval/evalkit/evaluator"
	"github.com/ckks-eval/evalkit/internal/workpool"
)

// LinearAlgebra is the facade every matrix/vector operation is called
// through. It holds no cryptographic state of its own; every primitive it
// issues goes through Eval, so the same LinearAlgebra code runs against
// any evaluator variant.
type LinearAlgebra struct {
	Eval    *evaluator.Evaluator
	Workers int
}

// New builds a LinearAlgebra over eval, running cell-parallel work across
// up to workers goroutines (1 disables parallelism).
func New(eval *evaluator.Evaluator, workers int) *LinearAlgebra {
	return &LinearAlgebra{Eval: eval, Workers: workers}
}

func (la *LinearAlgebra) workers() int {
	if la.Workers < 1 {
		return 1
	}
	return la.Workers
}

// --- encoding helpers (§4.3 row-major tiling) ---

func encodeMatrixTile(mat [][]float64, h, w int, unit Unit, ti, tj int) []float64 {
	vec := make([]float64, unit.Size())
	for k := 0; k < unit.H; k++ {
		row := ti*unit.H + k
		if row >= h {
			continue
		}
		for l := 0; l < unit.W; l++ {
			col := tj*unit.W + l
			if col < w {
				vec[k*unit.W+l] = mat[row][col]
			}
		}
	}
	return vec
}

func decodeMatrixTile(vec []float64, unit Unit) [][]float64 {
	out := make([][]float64, unit.H)
	for k := 0; k < unit.H; k++ {
		out[k] = vec[k*unit.W : (k+1)*unit.W]
	}
	return out
}

func encodeRowVectorTile(vec []float64, width int, unit Unit, tj int) []float64 {
	out := make([]float64, unit.Size())
	for k := 0; k < unit.H; k++ {
		for l := 0; l < unit.W; l++ {
			col := tj*unit.W + l
			if col < width {
				out[k*unit.W+l] = vec[col]
			}
		}
	}
	return out
}

func encodeColVectorTile(vec []float64, height int, unit Unit, ti int) []float64 {
	out := make([]float64, unit.Size())
	for k := 0; k < unit.H; k++ {
		row := ti*unit.H + k
		if row >= height {
			continue
		}
		for l := 0; l < unit.W; l++ {
			out[k*unit.W+l] = vec[row]
		}
	}
	return out
}

// --- encryption ---

// EncryptMatrix packs mat into a Matrix on unit, encrypting at level (-1
// for the evaluator's current top level) and scale.
func (la *LinearAlgebra) EncryptMatrix(mat [][]float64, unit Unit, level int, scale float64) (*Matrix, error) {
	h := len(mat)
	w := 0
	if h > 0 {
		w = len(mat[0])
	}
	if err := unit.validate(la.Eval.SlotCount()); err != nil {
		return nil, err
	}
	r, c := ceilDiv(h, unit.H), ceilDiv(w, unit.W)
	grid := make([][]*evaluator.Ciphertext, r)
	for i := range grid {
		grid[i] = make([]*evaluator.Ciphertext, c)
	}
	err := workpool.Run(r*c, la.workers(), func(idx int) error {
		i, j := idx/c, idx%c
		vec := encodeMatrixTile(mat, h, w, unit, i, j)
		ct, err := la.Eval.Encrypt(vec, level, scale)
		if err != nil {
			return err
		}
		grid[i][j] = ct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Matrix{Height: h, Width: w, Unit: unit, Cts: grid}, nil
}

// EncryptRowVector packs vec into a RowVector on unit.
func (la *LinearAlgebra) EncryptRowVector(vec []float64, unit Unit, level int, scale float64) (*RowVector, error) {
	if err := unit.validate(la.Eval.SlotCount()); err != nil {
		return nil, err
	}
	n := ceilDiv(len(vec), unit.W)
	cts := make([]*evaluator.Ciphertext, n)
	err := workpool.Run(n, la.workers(), func(j int) error {
		tile := encodeRowVectorTile(vec, len(vec), unit, j)
		ct, err := la.Eval.Encrypt(tile, level, scale)
		if err != nil {
			return err
		}
		cts[j] = ct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RowVector{Width: len(vec), Unit: unit, Cts: cts}, nil
}

// EncryptColVector packs vec into a ColVector on unit.
func (la *LinearAlgebra) EncryptColVector(vec []float64, unit Unit, level int, scale float64) (*ColVector, error) {
	if err := unit.validate(la.Eval.SlotCount()); err != nil {
		return nil, err
	}
	n := ceilDiv(len(vec), unit.H)
	cts := make([]*evaluator.Ciphertext, n)
	err := workpool.Run(n, la.workers(), func(i int) error {
		tile := encodeColVectorTile(vec, len(vec), unit, i)
		ct, err := la.Eval.Encrypt(tile, level, scale)
		if err != nil {
			return err
		}
		cts[i] = ct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ColVector{Height: len(vec), Unit: unit, Cts: cts}, nil
}

// --- decryption ---

// DecryptMatrix recovers m's logical Height×Width values.
func (la *LinearAlgebra) DecryptMatrix(m *Matrix) ([][]float64, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	r, c := m.rowTiles(), m.colTiles()
	tiles := make([][][]float64, r*c)
	err := workpool.Run(r*c, la.workers(), func(idx int) error {
		i, j := idx/c, idx%c
		vec, err := la.Eval.Decrypt(m.Cts[i][j])
		if err != nil {
			return err
		}
		tiles[idx] = decodeMatrixTile(vec, m.Unit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([][]float64, m.Height)
	for row := range out {
		out[row] = make([]float64, m.Width)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			tile := tiles[i*c+j]
			for k := 0; k < m.Unit.H; k++ {
				row := i*m.Unit.H + k
				if row >= m.Height {
					continue
				}
				for l := 0; l < m.Unit.W; l++ {
					col := j*m.Unit.W + l
					if col < m.Width {
						out[row][col] = tile[k][l]
					}
				}
			}
		}
	}
	return out, nil
}

// DecryptRowVector recovers rv's logical Width values.
func (la *LinearAlgebra) DecryptRowVector(rv *RowVector) ([]float64, error) {
	if err := rv.validate(); err != nil {
		return nil, err
	}
	n := rv.tileCount()
	tiles := make([][]float64, n)
	err := workpool.Run(n, la.workers(), func(j int) error {
		vec, err := la.Eval.Decrypt(rv.Cts[j])
		if err != nil {
			return err
		}
		tiles[j] = vec
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]float64, rv.Width)
	for j := 0; j < n; j++ {
		for l := 0; l < rv.Unit.W; l++ {
			col := j*rv.Unit.W + l
			if col < rv.Width {
				out[col] = tiles[j][l] // row 0 of the broadcast-down tile
			}
		}
	}
	return out, nil
}

// DecryptColVector recovers cv's logical Height values.
func (la *LinearAlgebra) DecryptColVector(cv *ColVector) ([]float64, error) {
	if err := cv.validate(); err != nil {
		return nil, err
	}
	n := cv.tileCount()
	tiles := make([][]float64, n)
	err := workpool.Run(n, la.workers(), func(i int) error {
		vec, err := la.Eval.Decrypt(cv.Cts[i])
		if err != nil {
			return err
		}
		tiles[i] = vec
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]float64, cv.Height)
	for i := 0; i < n; i++ {
		for k := 0; k < cv.Unit.H; k++ {
			row := i*cv.Unit.H + k
			if row < cv.Height {
				out[row] = tiles[i][k*cv.Unit.W] // column 0 of the broadcast-across tile
			}
		}
	}
	return out, nil
}

// --- Hadamard and scalar operations ---

func (la *LinearAlgebra) cellBinary(a, b *Matrix, op func(x, y *evaluator.Ciphertext) (*evaluator.Ciphertext, error)) (*Matrix, error) {
	if err := checkUnitMatch(a.Unit, b.Unit); err != nil {
		return nil, err
	}
	if a.Height != b.Height || a.Width != b.Width {
		return nil, fmt.Errorf("linalg: matrix shape mismatch %dx%d vs %dx%d: %w", a.Height, a.Width, b.Height, b.Width, evaluator.ErrShape)
	}
	r, c := a.rowTiles(), a.colTiles()
	grid := make([][]*evaluator.Ciphertext, r)
	for i := range grid {
		grid[i] = make([]*evaluator.Ciphertext, c)
	}
	err := workpool.Run(r*c, la.workers(), func(idx int) error {
		i, j := idx/c, idx%c
		out, err := op(a.Cts[i][j], b.Cts[i][j])
		if err != nil {
			return err
		}
		grid[i][j] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Matrix{Height: a.Height, Width: a.Width, Unit: a.Unit, Cts: grid}, nil
}

// AddMatrix returns the elementwise sum of a and b.
func (la *LinearAlgebra) AddMatrix(a, b *Matrix) (*Matrix, error) {
	return la.cellBinary(a, b, la.Eval.Add)
}

// SubMatrix returns the elementwise difference of a and b.
func (la *LinearAlgebra) SubMatrix(a, b *Matrix) (*Matrix, error) {
	return la.cellBinary(a, b, la.Eval.Sub)
}

// MulMatrixElementwise returns the Hadamard product of a and b.
func (la *LinearAlgebra) MulMatrixElementwise(a, b *Matrix) (*Matrix, error) {
	return la.cellBinary(a, b, la.Eval.Multiply)
}

func (la *LinearAlgebra) cellUnary(a *Matrix, op func(ct *evaluator.Ciphertext) (*evaluator.Ciphertext, error)) (*Matrix, error) {
	r, c := a.rowTiles(), a.colTiles()
	grid := make([][]*evaluator.Ciphertext, r)
	for i := range grid {
		grid[i] = make([]*evaluator.Ciphertext, c)
	}
	err := workpool.Run(r*c, la.workers(), func(idx int) error {
		i, j := idx/c, idx%c
		out, err := op(a.Cts[i][j])
		if err != nil {
			return err
		}
		grid[i][j] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Matrix{Height: a.Height, Width: a.Width, Unit: a.Unit, Cts: grid}, nil
}

// AddScalarMatrix broadcasts scalar to every cell of a via addition.
func (la *LinearAlgebra) AddScalarMatrix(a *Matrix, scalar float64) (*Matrix, error) {
	return la.cellUnary(a, func(ct *evaluator.Ciphertext) (*evaluator.Ciphertext, error) {
		return la.Eval.AddPlainScalar(ct, scalar)
	})
}

// MulScalarMatrix broadcasts scalar to every cell of a via multiplication.
func (la *LinearAlgebra) MulScalarMatrix(a *Matrix, scalar float64) (*Matrix, error) {
	return la.cellUnary(a, func(ct *evaluator.Ciphertext) (*evaluator.Ciphertext, error) {
		return la.Eval.MultiplyPlainScalar(ct, scalar)
	})
}

// RelinearizeMatrix relinearizes every cell of a; call after any
// MulMatrixElementwise-based product before a further multiply.
func (la *LinearAlgebra) RelinearizeMatrix(a *Matrix) (*Matrix, error) {
	return la.cellUnary(a, la.Eval.Relinearize)
}

// RescaleMatrix rescales every cell of a to the next level down.
func (la *LinearAlgebra) RescaleMatrix(a *Matrix) (*Matrix, error) {
	return la.cellUnary(a, la.Eval.RescaleToNext)
}

// --- rotate-sum reductions (§4.4) ---

func rowSumSteps(unit Unit) []int {
	var steps []int
	for s := 1; s < unit.W; s *= 2 {
		steps = append(steps, s)
	}
	return steps
}

func colSumSteps(unit Unit) []int {
	var steps []int
	for s := unit.W; s < unit.Size(); s *= 2 {
		steps = append(steps, s)
	}
	return steps
}

// rotateLeftBy rotates ct left by steps, decomposing steps into two
// half-size rotations when steps itself sits at or past the evaluator's
// per-call bound (slotCount/2 is not a legal single RotateLeft argument,
// but it is reachable as two rotations of steps/2, since rotation composes
// additively). colSumSteps's final butterfly stage is exactly this case
// whenever a column vector's unit spans the whole tile height.
func (la *LinearAlgebra) rotateLeftBy(ct *evaluator.Ciphertext, steps int) (*evaluator.Ciphertext, error) {
	if steps < la.Eval.SlotCount()/2 {
		return la.Eval.RotateLeft(ct, steps)
	}
	half, err := la.Eval.RotateLeft(ct, steps/2)
	if err != nil {
		return nil, err
	}
	return la.Eval.RotateLeft(half, steps/2)
}

func (la *LinearAlgebra) sumReduce(ct *evaluator.Ciphertext, steps []int) (*evaluator.Ciphertext, error) {
	cur := ct
	for _, s := range steps {
		rot, err := la.rotateLeftBy(cur, s)
		if err != nil {
			return nil, err
		}
		cur, err = la.Eval.Add(cur, rot)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// SumRows reduces rv to a single scalar-broadcast ciphertext holding the
// total of every slot in rv, combining the within-tile reduction with an
// addition across tiles.
func (la *LinearAlgebra) SumRows(rv *RowVector) (*evaluator.Ciphertext, error) {
	if err := rv.validate(); err != nil {
		return nil, err
	}
	steps := rowSumSteps(rv.Unit)
	reduced := make([]*evaluator.Ciphertext, len(rv.Cts))
	err := workpool.Run(len(rv.Cts), la.workers(), func(j int) error {
		out, err := la.sumReduce(rv.Cts[j], steps)
		if err != nil {
			return err
		}
		reduced[j] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	total := reduced[0]
	for j := 1; j < len(reduced); j++ {
		total, err = la.Eval.Add(total, reduced[j])
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

// SumCols is the dual of SumRows for a ColVector.
func (la *LinearAlgebra) SumCols(cv *ColVector) (*evaluator.Ciphertext, error) {
	if err := cv.validate(); err != nil {
		return nil, err
	}
	steps := colSumSteps(cv.Unit)
	reduced := make([]*evaluator.Ciphertext, len(cv.Cts))
	err := workpool.Run(len(cv.Cts), la.workers(), func(i int) error {
		out, err := la.sumReduce(cv.Cts[i], steps)
		if err != nil {
			return err
		}
		reduced[i] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	total := reduced[0]
	for i := 1; i < len(reduced); i++ {
		total, err = la.Eval.Add(total, reduced[i])
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

// --- matrix/vector and matrix/matrix products ---

// MulMatrixColVector computes m*v. v must be packed with one tile per
// column-tile of m (v.Cts[j] broadcasts v's j-th w-wide slice down every
// row, the same layout EncryptRowVector would produce for a vector of
// length m.Width): the column-vector role here is purely mathematical, the
// physical packing matches a row-broadcast tile so it lines up against
// m's column tiles.
func (la *LinearAlgebra) MulMatrixColVector(m *Matrix, v *ColVector) (*ColVector, error) {
	if err := checkUnitMatch(m.Unit, v.Unit); err != nil {
		return nil, err
	}
	if m.Width != v.Height {
		return nil, fmt.Errorf("linalg: matrix width %d does not match vector height %d: %w", m.Width, v.Height, evaluator.ErrShape)
	}
	r, c := m.rowTiles(), m.colTiles()
	if len(v.Cts) != c {
		return nil, fmt.Errorf("linalg: vector has %d tiles, matrix has %d column tiles: %w", len(v.Cts), c, evaluator.ErrShape)
	}

	outCts := make([]*evaluator.Ciphertext, r)
	err := workpool.Run(r, la.workers(), func(i int) error {
		var stripe *evaluator.Ciphertext
		for j := 0; j < c; j++ {
			prod, err := la.Eval.Multiply(m.Cts[i][j], v.Cts[j])
			if err != nil {
				return err
			}
			prod, err = la.Eval.Relinearize(prod)
			if err != nil {
				return err
			}
			// Collapse the tile's width: row k's dot-product partial sum
			// lands at slot k*W+0, which is exactly what DecryptColVector
			// reads back per row.
			reduced, err := la.sumReduce(prod, rowSumSteps(m.Unit))
			if err != nil {
				return err
			}
			if stripe == nil {
				stripe = reduced
			} else {
				stripe, err = la.Eval.Add(stripe, reduced)
				if err != nil {
					return err
				}
			}
		}
		outCts[i] = stripe
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ColVector{Height: m.Height, Unit: m.Unit, Cts: outCts}, nil
}

// MulMatrix computes a*b as a sequence of MulMatrixColVector calls, one per
// column tile of b.
func (la *LinearAlgebra) MulMatrix(a, b *Matrix) (*Matrix, error) {
	if err := checkUnitMatch(a.Unit, b.Unit); err != nil {
		return nil, err
	}
	if a.Width != b.Height {
		return nil, fmt.Errorf("linalg: matrix shapes %dx%d and %dx%d are not compatible: %w", a.Height, a.Width, b.Height, b.Width, evaluator.ErrShape)
	}
	br, bc := b.rowTiles(), b.colTiles()
	ar := a.rowTiles()

	grid := make([][]*evaluator.Ciphertext, ar)
	for i := range grid {
		grid[i] = make([]*evaluator.Ciphertext, bc)
	}

	err := workpool.Run(bc, la.workers(), func(j int) error {
		col := &ColVector{Height: b.Height, Unit: b.Unit, Cts: make([]*evaluator.Ciphertext, br)}
		for i := 0; i < br; i++ {
			col.Cts[i] = b.Cts[i][j]
		}
		out, err := la.MulMatrixColVector(a, col)
		if err != nil {
			return err
		}
		for i, ct := range out.Cts {
			grid[i][j] = ct
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Matrix{Height: a.Height, Width: b.Width, Unit: a.Unit, Cts: grid}, nil
}

// --- metadata-only rearrangements ---

// Transpose swaps m's row/column roles at the tile-grid level. It does not
// rearrange the values within a tile, so it is only a logical transpose
// for callers that access cells through row/column-uniform operations
// (sums, Hadamard ops) rather than reading individual cells back out in
// transposed order.
func (la *LinearAlgebra) Transpose(m *Matrix) (*Matrix, error) {
	r, c := m.rowTiles(), m.colTiles()
	grid := make([][]*evaluator.Ciphertext, c)
	for j := range grid {
		grid[j] = make([]*evaluator.Ciphertext, r)
		for i := 0; i < r; i++ {
			grid[j][i] = m.Cts[i][j]
		}
	}
	return &Matrix{
		Height: m.Width, Width: m.Height,
		Unit: Unit{H: m.Unit.W, W: m.Unit.H},
		Cts:  grid,
	}, nil
}

// ConcatRows vertically concatenates a above b. Both must share width and
// encoding unit, and a's height must be a multiple of unit.H so tile
// boundaries line up.
func (la *LinearAlgebra) ConcatRows(a, b *Matrix) (*Matrix, error) {
	if err := checkUnitMatch(a.Unit, b.Unit); err != nil {
		return nil, err
	}
	if a.Width != b.Width {
		return nil, fmt.Errorf("linalg: concatRows width mismatch %d vs %d: %w", a.Width, b.Width, evaluator.ErrShape)
	}
	if a.Height%a.Unit.H != 0 {
		return nil, fmt.Errorf("linalg: concatRows requires a.Height (%d) be a multiple of unit height %d: %w", a.Height, a.Unit.H, evaluator.ErrShape)
	}
	grid := append(append([][]*evaluator.Ciphertext{}, a.Cts...), b.Cts...)
	return &Matrix{Height: a.Height + b.Height, Width: a.Width, Unit: a.Unit, Cts: grid}, nil
}

// ConcatCols horizontally concatenates a beside b. Both must share height
// and encoding unit, and a's width must be a multiple of unit.W.
func (la *LinearAlgebra) ConcatCols(a, b *Matrix) (*Matrix, error) {
	if err := checkUnitMatch(a.Unit, b.Unit); err != nil {
		return nil, err
	}
	if a.Height != b.Height {
		return nil, fmt.Errorf("linalg: concatCols height mismatch %d vs %d: %w", a.Height, b.Height, evaluator.ErrShape)
	}
	if a.Width%a.Unit.W != 0 {
		return nil, fmt.Errorf("linalg: concatCols requires a.Width (%d) be a multiple of unit width %d: %w", a.Width, a.Unit.W, evaluator.ErrShape)
	}
	if len(a.Cts) != len(b.Cts) {
		return nil, fmt.Errorf("linalg: concatCols row-tile count mismatch %d vs %d: %w", len(a.Cts), len(b.Cts), evaluator.ErrShape)
	}
	grid := make([][]*evaluator.Ciphertext, len(a.Cts))
	for i := range grid {
		grid[i] = append(append([]*evaluator.Ciphertext{}, a.Cts[i]...), b.Cts[i]...)
	}
	return &Matrix{Height: a.Height, Width: a.Width + b.Width, Unit: a.Unit, Cts: grid}, nil
}

// --- dot product ---

// DotProductRow computes the dot product of two row vectors on the same
// unit as a scalar-broadcast ciphertext: Hadamard multiply then
// sum-along-rows.
func (la *LinearAlgebra) DotProductRow(a, b *RowVector) (*evaluator.Ciphertext, error) {
	if err := checkUnitMatch(a.Unit, b.Unit); err != nil {
		return nil, err
	}
	if a.Width != b.Width {
		return nil, fmt.Errorf("linalg: dot product width mismatch %d vs %d: %w", a.Width, b.Width, evaluator.ErrShape)
	}
	prod := &RowVector{Width: a.Width, Unit: a.Unit, Cts: make([]*evaluator.Ciphertext, len(a.Cts))}
	err := workpool.Run(len(a.Cts), la.workers(), func(j int) error {
		out, err := la.Eval.Multiply(a.Cts[j], b.Cts[j])
		if err != nil {
			return err
		}
		out, err = la.Eval.Relinearize(out)
		if err != nil {
			return err
		}
		prod.Cts[j] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return la.SumRows(prod)
}

// DotProductCol is the dual of DotProductRow for column vectors.
func (la *LinearAlgebra) DotProductCol(a, b *ColVector) (*evaluator.Ciphertext, error) {
	if err := checkUnitMatch(a.Unit, b.Unit); err != nil {
		return nil, err
	}
	if a.Height != b.Height {
		return nil, fmt.Errorf("linalg: dot product height mismatch %d vs %d: %w", a.Height, b.Height, evaluator.ErrShape)
	}
	prod := &ColVector{Height: a.Height, Unit: a.Unit, Cts: make([]*evaluator.Ciphertext, len(a.Cts))}
	err := workpool.Run(len(a.Cts), la.workers(), func(i int) error {
		out, err := la.Eval.Multiply(a.Cts[i], b.Cts[i])
		if err != nil {
			return err
		}
		out, err = la.Eval.Relinearize(out)
		if err != nil {
			return err
		}
		prod.Cts[i] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return la.SumCols(prod)
}
