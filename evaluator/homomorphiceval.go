package evaluator

import (
	"fmt"

	"github.com/ckks-eval/evalkit/backend"
)

// homomorphicEvalState invokes the backend directly. It carries rawCt but
// never rawPt, and derives level/scale from the backend's own view of each
// resulting ciphertext rather than computing them independently.
type homomorphicEvalState struct {
	b         backend.Backend
	slotCount int
}

func newHomomorphicEvalState(b backend.Backend) *homomorphicEvalState {
	return &homomorphicEvalState{b: b, slotCount: b.SlotCount()}
}

func (h *homomorphicEvalState) wrap(raw backend.RawCt) *Ciphertext {
	return &Ciphertext{
		rawCt:       raw,
		level:       h.b.Level(raw),
		scale:       h.b.Scale(raw),
		slotCount:   h.slotCount,
		initialized: true,
	}
}

func (h *homomorphicEvalState) encrypt(vec []float64, level int, scale float64) (*Ciphertext, error) {
	pt, err := h.b.Encode(vec, level, scale)
	if err != nil {
		return nil, wrapBackendErr("encrypt", err)
	}
	raw, err := h.b.Encrypt(pt)
	if err != nil {
		return nil, wrapBackendErr("encrypt", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) decrypt(ct *Ciphertext) ([]float64, error) {
	vec, err := h.b.Decrypt(ct.rawCt)
	if err != nil {
		return nil, wrapBackendErr("decrypt", err)
	}
	return vec, nil
}

func (h *homomorphicEvalState) rotate(ct *Ciphertext, steps int) (*Ciphertext, error) {
	raw, err := h.b.Rotate(ct.rawCt, steps)
	if err != nil {
		return nil, wrapBackendErr("rotate", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) negate(ct *Ciphertext) (*Ciphertext, error) {
	raw, err := h.b.Negate(ct.rawCt)
	if err != nil {
		return nil, wrapBackendErr("negate", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) add(a, b *Ciphertext) (*Ciphertext, error) {
	raw, err := h.b.AddCt(a.rawCt, b.rawCt)
	if err != nil {
		return nil, wrapBackendErr("add", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) sub(a, b *Ciphertext) (*Ciphertext, error) {
	raw, err := h.b.SubCt(a.rawCt, b.rawCt)
	if err != nil {
		return nil, wrapBackendErr("sub", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) encodeAt(ct *Ciphertext, vec []float64) (backend.RawPt, error) {
	pt, err := h.b.Encode(vec, ct.level, ct.scale)
	if err != nil {
		return nil, wrapBackendErr("encode", err)
	}
	return pt, nil
}

func (h *homomorphicEvalState) addPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	pt, err := h.encodeAt(ct, vec)
	if err != nil {
		return nil, err
	}
	raw, err := h.b.AddPlain(ct.rawCt, pt)
	if err != nil {
		return nil, wrapBackendErr("add_plain", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) subPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	pt, err := h.encodeAt(ct, vec)
	if err != nil {
		return nil, err
	}
	raw, err := h.b.SubPlain(ct.rawCt, pt)
	if err != nil {
		return nil, wrapBackendErr("sub_plain", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) multiply(a, b *Ciphertext) (*Ciphertext, error) {
	raw, err := h.b.MulCt(a.rawCt, b.rawCt)
	if err != nil {
		return nil, wrapBackendErr("mul", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) multiplyPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	pt, err := h.encodeAt(ct, vec)
	if err != nil {
		return nil, err
	}
	raw, err := h.b.MulPlain(ct.rawCt, pt)
	if err != nil {
		return nil, wrapBackendErr("mul_plain", err)
	}
	return h.wrap(raw), nil
}

// multiplyPlainZero constructs the zero ciphertext directly by encoding
// and encrypting an all-zero vector at ct's level and scale, rather than
// risking a backend that rejects a zero plaintext inside MulPlain.
func (h *homomorphicEvalState) multiplyPlainZero(ct *Ciphertext) (*Ciphertext, error) {
	zero := make([]float64, h.slotCount)
	pt, err := h.b.Encode(zero, ct.level, ct.scale)
	if err != nil {
		return nil, wrapBackendErr("mul_plain_zero", err)
	}
	raw, err := h.b.Encrypt(pt)
	if err != nil {
		return nil, wrapBackendErr("mul_plain_zero", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) square(ct *Ciphertext) (*Ciphertext, error) {
	raw, err := h.b.Square(ct.rawCt)
	if err != nil {
		return nil, wrapBackendErr("square", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) relinearize(ct *Ciphertext) (*Ciphertext, error) {
	raw, err := h.b.Relinearize(ct.rawCt)
	if err != nil {
		return nil, wrapBackendErr("relinearize", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) rescaleToNext(ct *Ciphertext) (*Ciphertext, error) {
	raw, err := h.b.RescaleToNext(ct.rawCt)
	if err != nil {
		return nil, wrapBackendErr("rescale", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) modSwitchToLevel(ct *Ciphertext, level int) (*Ciphertext, error) {
	raw, err := h.b.ModSwitchToLevel(ct.rawCt, level)
	if err != nil {
		return nil, wrapBackendErr("mod_switch", err)
	}
	return h.wrap(raw), nil
}

func (h *homomorphicEvalState) reset() {}

func wrapBackendErr(op string, err error) error {
	return fmt.Errorf("evaluator: %s: %w: %w", op, ErrBackend, err)
}

// HomomorphicEval is the variant that actually invokes the backend.
type HomomorphicEval struct {
	*Evaluator
	state *homomorphicEvalState
}

// NewHomomorphicEval builds a HomomorphicEval over b.
func NewHomomorphicEval(b backend.Backend) *HomomorphicEval {
	st := newHomomorphicEvalState(b)
	return &HomomorphicEval{
		Evaluator: &Evaluator{v: st, slotCount: b.SlotCount(), maxLevel: b.MaxLevel(), modulusChain: b.ModulusChain()},
		state:     st,
	}
}
