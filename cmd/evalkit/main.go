// Command evalkit is a thin driver over the evaluator package:
// it reads a JSON circuit description, picks an evaluator variant, runs the
// circuit on a single ciphertext, and prints whatever that variant reveals.
// It exercises the whole stack end to end but is not part of the core
// contract; embedders are expected to call the packages directly.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/ckks-eval/evalkit/backend"
	"github.com/ckks-eval/evalkit/evaluator"
	"github.com/ckks-eval/evalkit/internal/config"
	"github.com/ckks-eval/evalkit/internal/telemetry"
)

// opSpec is one step of a circuit file, in the flat op/operand style the
// backend's own ParametersLiteral JSON convention uses: public fields, only
// the ones relevant to Op are populated.
type opSpec struct {
	Op     string    `json:"op"`
	Scalar float64   `json:"scalar,omitempty"`
	Vector []float64 `json:"vector,omitempty"`
	Steps  int       `json:"steps,omitempty"`
	Level  int       `json:"level,omitempty"`
}

// circuitFile is the top-level shape of a circuit description: the backend
// parameters to build, the input vector and its initial level/scale, and
// the sequence of ops to apply to the resulting ciphertext.
type circuitFile struct {
	Backend config.Literal `json:"backend"`
	Input   []float64      `json:"input"`
	Level   int            `json:"level"`
	Scale   float64        `json:"scale"`
	Ops     []opSpec       `json:"ops"`
}

// runner is the subset of evaluator.Evaluator's API a circuit file can
// drive; every concrete variant satisfies it through the embedded
// *evaluator.Evaluator.
type runner interface {
	Encrypt(vec []float64, level int, scale float64) (*evaluator.Ciphertext, error)
	Decrypt(ct *evaluator.Ciphertext) ([]float64, error)
	RotateLeft(ct *evaluator.Ciphertext, steps int) (*evaluator.Ciphertext, error)
	RotateRight(ct *evaluator.Ciphertext, steps int) (*evaluator.Ciphertext, error)
	Negate(ct *evaluator.Ciphertext) (*evaluator.Ciphertext, error)
	AddPlainScalar(ct *evaluator.Ciphertext, scalar float64) (*evaluator.Ciphertext, error)
	AddPlainVector(ct *evaluator.Ciphertext, vec []float64) (*evaluator.Ciphertext, error)
	SubPlainScalar(ct *evaluator.Ciphertext, scalar float64) (*evaluator.Ciphertext, error)
	SubPlainVector(ct *evaluator.Ciphertext, vec []float64) (*evaluator.Ciphertext, error)
	MultiplyPlainScalar(ct *evaluator.Ciphertext, scalar float64) (*evaluator.Ciphertext, error)
	MultiplyPlainVector(ct *evaluator.Ciphertext, vec []float64) (*evaluator.Ciphertext, error)
	Square(ct *evaluator.Ciphertext) (*evaluator.Ciphertext, error)
	Relinearize(ct *evaluator.Ciphertext) (*evaluator.Ciphertext, error)
	RescaleToNext(ct *evaluator.Ciphertext) (*evaluator.Ciphertext, error)
	ModSwitchToLevel(ct *evaluator.Ciphertext, level int) (*evaluator.Ciphertext, error)
}

// runCircuit drives r through c's ops in order, checking ctx between steps
// so an embedder driving a long matrix circuit (one runCircuit call per
// cell) can cancel the whole run without waiting for every cell to finish.
// No individual op blocks on I/O, so ctx is never passed deeper than this
// loop.
func runCircuit(ctx context.Context, r runner, c circuitFile) (*evaluator.Ciphertext, error) {
	ct, err := r.Encrypt(c.Input, c.Level, c.Scale)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	for i, op := range c.Ops {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("circuit step %d: %w", i, err)
		}
		var stepErr error
		switch op.Op {
		case "rotateLeft":
			ct, stepErr = r.RotateLeft(ct, op.Steps)
		case "rotateRight":
			ct, stepErr = r.RotateRight(ct, op.Steps)
		case "negate":
			ct, stepErr = r.Negate(ct)
		case "addPlainScalar":
			ct, stepErr = r.AddPlainScalar(ct, op.Scalar)
		case "addPlainVector":
			ct, stepErr = r.AddPlainVector(ct, op.Vector)
		case "subPlainScalar":
			ct, stepErr = r.SubPlainScalar(ct, op.Scalar)
		case "subPlainVector":
			ct, stepErr = r.SubPlainVector(ct, op.Vector)
		case "multiplyPlainScalar":
			ct, stepErr = r.MultiplyPlainScalar(ct, op.Scalar)
		case "multiplyPlainVector":
			ct, stepErr = r.MultiplyPlainVector(ct, op.Vector)
		case "square", "multiply":
			ct, stepErr = r.Square(ct)
		case "relinearize":
			ct, stepErr = r.Relinearize(ct)
		case "rescale":
			ct, stepErr = r.RescaleToNext(ct)
		case "modSwitchToLevel":
			ct, stepErr = r.ModSwitchToLevel(ct, op.Level)
		default:
			return nil, fmt.Errorf("circuit step %d: unknown op %q", i, op.Op)
		}
		if stepErr != nil {
			return nil, fmt.Errorf("circuit step %d (%s): %w", i, op.Op, stepErr)
		}
	}
	return ct, nil
}

func main() {
	variant := flag.String("variant", "homomorphic", "evaluator variant: depthfinder, plaintext, scaleestimator, opcount, homomorphic, debug")
	path := flag.String("circuit", "", "path to a JSON circuit description")
	safetyMargin := flag.Float64("safety-margin", config.DefaultScaleSafetyMargin, "ScaleEstimator safety margin in bits")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "evalkit: -circuit is required")
		fmt.Fprintf(os.Stderr, "evalkit: supported ring dimensions: %v\n", config.SupportedRingDims())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *variant, *path, *safetyMargin, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "evalkit: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, variant, path string, safetyMargin float64, verbose bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read circuit: %w", err)
	}
	var c circuitFile
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse circuit: %w", err)
	}

	logLevel := telemetry.LevelWarn
	if verbose {
		logLevel = telemetry.LevelDebug
	}
	log := telemetry.New(os.Stderr, logLevel)

	b, _, err := backend.NewFromLiteral(c.Backend)
	if err != nil {
		return fmt.Errorf("build backend: %w", err)
	}
	maxModBits, err := config.MaxModBitsFor(1 << c.Backend.LogN)
	if err != nil {
		return fmt.Errorf("look up modulus budget: %w", err)
	}

	switch variant {
	case "depthfinder":
		e := evaluator.NewDepthFinder(b.SlotCount(), b.MaxLevel(), b.ModulusChain())
		if _, err := runCircuit(ctx, e, c); err != nil {
			return err
		}
		fmt.Printf("multiplicative depth: %d\n", e.GetMultiplicativeDepth())

	case "plaintext":
		e := evaluator.NewPlaintextEval(b.SlotCount(), b.MaxLevel(), b.ModulusChain())
		ct, err := runCircuit(ctx, e, c)
		if err != nil {
			return err
		}
		vec, _ := ct.Plaintext()
		fmt.Printf("plaintext result: %v\n", vec)
		fmt.Printf("running max |plaintext|: %g\n", e.GetExactMaxPlainVal())

	case "scaleestimator":
		e := evaluator.NewScaleEstimator(b.SlotCount(), b.MaxLevel(), b.ModulusChain(), float64(maxModBits), safetyMargin)
		if _, err := runCircuit(ctx, e, c); err != nil {
			return err
		}
		fmt.Printf("exact max log2(|plaintext|): %g\n", e.GetExactMaxLogPlainVal())
		fmt.Printf("estimated max log2(scale): %g\n", e.GetEstimatedMaxLogScale())

	case "opcount":
		e := evaluator.NewOpCount(b.SlotCount(), b.MaxLevel(), b.ModulusChain())
		if _, err := runCircuit(ctx, e, c); err != nil {
			return err
		}
		counts := e.PrintOpCount()
		fmt.Printf("op counts: %+v\n", counts)
		fmt.Printf("multiplicative depth: %d\n", e.GetMultiplicativeDepth())

	case "homomorphic":
		e := evaluator.NewHomomorphicEval(b)
		ct, err := runCircuit(ctx, e, c)
		if err != nil {
			return err
		}
		vec, err := e.Decrypt(ct)
		if err != nil {
			return fmt.Errorf("decrypt: %w", err)
		}
		fmt.Printf("decrypted result: %v\n", vec)

	case "debug":
		e := evaluator.NewDebugEval(b, float64(maxModBits), safetyMargin, log)
		ct, err := runCircuit(ctx, e, c)
		if err != nil {
			return err
		}
		vec, err := e.Decrypt(ct)
		if err != nil {
			return fmt.Errorf("decrypt: %w", err)
		}
		fmt.Printf("decrypted result: %v\n", vec)
		fmt.Printf("estimated max log2(scale): %g\n", e.GetEstimatedMaxLogScale())

	default:
		return fmt.Errorf("unknown variant %q", variant)
	}
	return nil
}
