package backend

import (
	"fmt"

	"github.com/ckks-eval/evalkit/internal/config"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

// LattigoBackend is the reference Backend implementation. It wraps a single
// CKKS key set (generated once, at construction) together with lattigo's
// encoder, encryptor, decryptor, and evaluator. RawCt/RawPt handles it hands
// out are always *rlwe.Ciphertext / *rlwe.Plaintext under the interface{}.
type LattigoBackend struct {
	params    ckks.Parameters
	encoder   *ckks.Encoder
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor
	evaluator *ckks.Evaluator

	sk  *rlwe.SecretKey
	rlk *rlwe.RelinearizationKey
}

// KeySet bundles the keys a LattigoBackend was generated with, so a caller
// can construct a second backend sharing them (e.g. for DebugEval's
// homomorphic sub-evaluator) or persist them out of band.
type KeySet struct {
	SecretKey          *rlwe.SecretKey
	PublicKey          *rlwe.PublicKey
	RelinearizationKey *rlwe.RelinearizationKey
	GaloisKeys         []*rlwe.GaloisKey
}

// NewLattigoBackend builds a LattigoBackend from a literal parameter
// description, generating a fresh key pair, relinearization key, and the
// Galois keys for rotation by every power of two strictly less than
// slotCount. Rotate composes every other step count, including the negative
// steps RotateRight issues, out of those power-of-two rotations.
func NewLattigoBackend(logN int, logQ, logP []int, logDefaultScale int) (*LattigoBackend, *KeySet, error) {
	literal := ckks.ParametersLiteral{
		LogN:            logN,
		LogQ:            logQ,
		LogP:            logP,
		LogDefaultScale: logDefaultScale,
	}

	params, err := ckks.NewParametersFromLiteral(literal)
	if err != nil {
		return nil, nil, Wrap("parameters", err)
	}

	kgen := ckks.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	rlk := kgen.GenRelinearizationKeyNew(sk)

	var galEls []uint64
	for step := 1; step < params.MaxSlots(); step *= 2 {
		galEls = append(galEls, params.GaloisElement(step))
	}
	gks := kgen.GenGaloisKeysNew(galEls, sk)

	evk := rlwe.NewMemEvaluationKeySet(rlk, gks...)

	b := &LattigoBackend{
		params:    params,
		encoder:   ckks.NewEncoder(params),
		encryptor: ckks.NewEncryptor(params, pk),
		decryptor: ckks.NewDecryptor(params, sk),
		evaluator: ckks.NewEvaluator(params, evk),
		sk:        sk,
		rlk:       rlk,
	}

	return b, &KeySet{SecretKey: sk, PublicKey: pk, RelinearizationKey: rlk, GaloisKeys: gks}, nil
}

// NewFromLiteral validates lit against the ring-dimension/modulus-budget
// table in internal/config and then builds a LattigoBackend from it,
// mirroring the way the backend module's own ParametersLiteral is turned
// into live parameters: public fields in, validation only at the point of
// construction.
func NewFromLiteral(lit config.Literal) (*LattigoBackend, *KeySet, error) {
	ringDim := 1 << lit.LogN
	maxBits, err := config.MaxModBitsFor(ringDim)
	if err != nil {
		return nil, nil, Wrap("parameters", err)
	}
	total := 0
	for _, b := range lit.LogQ {
		total += b
	}
	for _, b := range lit.LogP {
		total += b
	}
	if total > maxBits {
		return nil, nil, Wrap("parameters", fmt.Errorf("total modulus budget %d bits exceeds table maximum %d bits for ring dimension %d", total, maxBits, ringDim))
	}
	return NewLattigoBackend(lit.LogN, lit.LogQ, lit.LogP, lit.LogDefaultScale)
}

func asCt(h RawCt) (*rlwe.Ciphertext, error) {
	ct, ok := h.(*rlwe.Ciphertext)
	if !ok {
		return nil, fmt.Errorf("backend: expected *rlwe.Ciphertext, got %T", h)
	}
	return ct, nil
}

func asPt(h RawPt) (*rlwe.Plaintext, error) {
	pt, ok := h.(*rlwe.Plaintext)
	if !ok {
		return nil, fmt.Errorf("backend: expected *rlwe.Plaintext, got %T", h)
	}
	return pt, nil
}

func (b *LattigoBackend) Encode(vec []float64, level int, scale float64) (RawPt, error) {
	pt := ckks.NewPlaintext(b.params, level)
	pt.Scale = rlwe.NewScale(scale)
	if err := b.encoder.Encode(vec, pt); err != nil {
		return nil, Wrap("encode", err)
	}
	return pt, nil
}

func (b *LattigoBackend) Encrypt(rawPt RawPt) (RawCt, error) {
	pt, err := asPt(rawPt)
	if err != nil {
		return nil, err
	}
	ct, err := b.encryptor.EncryptNew(pt)
	if err != nil {
		return nil, Wrap("encrypt", err)
	}
	return ct, nil
}

func (b *LattigoBackend) Decrypt(rawCt RawCt) ([]float64, error) {
	ct, err := asCt(rawCt)
	if err != nil {
		return nil, err
	}
	pt := b.decryptor.DecryptNew(ct)
	values := make([]float64, b.params.MaxSlots())
	if err := b.encoder.Decode(pt, values); err != nil {
		return nil, Wrap("decode", err)
	}
	return values, nil
}

func (b *LattigoBackend) AddCt(a, bb RawCt) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	cb, err := asCt(bb)
	if err != nil {
		return nil, err
	}
	out, err := b.evaluator.AddNew(ca, cb)
	if err != nil {
		return nil, Wrap("add", err)
	}
	return out, nil
}

func (b *LattigoBackend) AddPlain(a RawCt, rawPt RawPt) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	pt, err := asPt(rawPt)
	if err != nil {
		return nil, err
	}
	out, err := b.evaluator.AddNew(ca, pt)
	if err != nil {
		return nil, Wrap("add_plain", err)
	}
	return out, nil
}

func (b *LattigoBackend) SubCt(a, bb RawCt) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	cb, err := asCt(bb)
	if err != nil {
		return nil, err
	}
	out, err := b.evaluator.SubNew(ca, cb)
	if err != nil {
		return nil, Wrap("sub", err)
	}
	return out, nil
}

func (b *LattigoBackend) SubPlain(a RawCt, rawPt RawPt) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	pt, err := asPt(rawPt)
	if err != nil {
		return nil, err
	}
	out, err := b.evaluator.SubNew(ca, pt)
	if err != nil {
		return nil, Wrap("sub_plain", err)
	}
	return out, nil
}

func (b *LattigoBackend) Negate(a RawCt) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	out, err := b.evaluator.MulNew(ca, complex(-1, 0))
	if err != nil {
		return nil, Wrap("negate", err)
	}
	return out, nil
}

func (b *LattigoBackend) MulCt(a, bb RawCt) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	cb, err := asCt(bb)
	if err != nil {
		return nil, err
	}
	out, err := b.evaluator.MulNew(ca, cb)
	if err != nil {
		return nil, Wrap("mul", err)
	}
	return out, nil
}

func (b *LattigoBackend) MulPlain(a RawCt, rawPt RawPt) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	pt, err := asPt(rawPt)
	if err != nil {
		return nil, err
	}
	out, err := b.evaluator.MulNew(ca, pt)
	if err != nil {
		return nil, Wrap("mul_plain", err)
	}
	return out, nil
}

func (b *LattigoBackend) Square(a RawCt) (RawCt, error) {
	return b.MulCt(a, a)
}

func (b *LattigoBackend) Relinearize(a RawCt) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	out, err := b.evaluator.RelinearizeNew(ca)
	if err != nil {
		return nil, Wrap("relinearize", err)
	}
	return out, nil
}

func (b *LattigoBackend) RescaleToNext(a RawCt) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	if ca.Level() == 0 {
		return nil, Wrap("rescale", fmt.Errorf("cannot rescale a ciphertext at level 0"))
	}
	out := ckks.NewCiphertext(b.params, ca.Degree(), ca.Level()-1)
	if err := b.evaluator.Rescale(ca, out); err != nil {
		return nil, Wrap("rescale", err)
	}
	return out, nil
}

func (b *LattigoBackend) ModSwitchToLevel(a RawCt, level int) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	if level > ca.Level() {
		return nil, Wrap("mod_switch", fmt.Errorf("target level %d is above current level %d", level, ca.Level()))
	}
	out := b.evaluator.DropLevelNew(ca, ca.Level()-level)
	return out, nil
}

func (b *LattigoBackend) Rotate(a RawCt, steps int) (RawCt, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	// Keys exist only for power-of-two steps, so steps (reduced modulo the
	// slot count, which maps a right rotation to a left one) is applied as
	// one rotation per set bit.
	slots := b.params.MaxSlots()
	steps = ((steps % slots) + slots) % slots
	out := ca
	for pow := 1; steps > 0; pow, steps = pow*2, steps/2 {
		if steps%2 == 1 {
			if out, err = b.evaluator.RotateNew(out, pow); err != nil {
				return nil, Wrap("rotate", err)
			}
		}
	}
	return out, nil
}

func (b *LattigoBackend) Level(a RawCt) int {
	ca, err := asCt(a)
	if err != nil {
		return -1
	}
	return ca.Level()
}

func (b *LattigoBackend) Scale(a RawCt) float64 {
	ca, err := asCt(a)
	if err != nil {
		return 0
	}
	return ca.Scale.Float64()
}

func (b *LattigoBackend) SlotCount() int { return b.params.MaxSlots() }

func (b *LattigoBackend) MaxLevel() int { return b.params.MaxLevel() }

func (b *LattigoBackend) ModulusChain() []uint64 {
	ringQ := b.params.RingQ()
	chain := make([]uint64, b.params.MaxLevel()+1)
	for level := 0; level <= b.params.MaxLevel(); level++ {
		chain[level] = ringQ.SubRings[level].Modulus
	}
	return chain
}

func (b *LattigoBackend) SerializeCt(a RawCt) ([]byte, error) {
	ca, err := asCt(a)
	if err != nil {
		return nil, err
	}
	data, err := ca.MarshalBinary()
	if err != nil {
		return nil, Wrap("serialize", err)
	}
	return data, nil
}

func (b *LattigoBackend) DeserializeCt(data []byte) (RawCt, error) {
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(data); err != nil {
		return nil, Wrap("deserialize", err)
	}
	return ct, nil
}
