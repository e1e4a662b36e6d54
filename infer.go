package main

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
)

const (
	defaultInferStep   = 100
	defaultInferFactor = 3.0
)

// InferOptions bounds the period search. Zero values take defaults;
// MinShift and MaxShift, when set, narrow the candidate range.
type InferOptions struct {
	Step     int
	Factor   float64
	MinShift int
	MaxShift int
	Workers  int
}

// Period is the result of the search.
type Period struct {
	Shift   int
	Score   float64
	Samples int
	From    int
	To      int
}

// InferPeriod looks for the row length of a raster hidden in the token
// stream. Positions holding mark are compared against the stream shifted
// by k, for every candidate k around sqrt(N), and the k with the highest
// agreement wins; ties go to the smallest k.
//
// This is a heuristic: noisy or aperiodic data can pick a wrong period.
// The cost is O(N/Step) per candidate; raise Step or narrow the range
// for large inputs.
func InferPeriod(ctx context.Context, tokens []Token, mark Token, opts InferOptions) (Period, error) {
	n := len(tokens)
	if n < 2 {
		return Period{}, fmt.Errorf("%w: %d blocks", ErrInsufficientData, n)
	}
	if opts.Step <= 0 {
		opts.Step = defaultInferStep
	}
	if opts.Factor < 1 {
		opts.Factor = defaultInferFactor
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	bits := binarize(tokens, mark)

	root := math.Sqrt(float64(n))
	from := int(math.Floor(root / opts.Factor))
	to := int(math.Ceil(root * opts.Factor))
	if opts.MinShift > 0 && opts.MinShift > from {
		from = opts.MinShift
	}
	if opts.MaxShift > 0 && opts.MaxShift < to {
		to = opts.MaxShift
	}
	from = max(from, 1)
	to = min(to, n-1)
	if from > to {
		return Period{}, fmt.Errorf("%w: empty shift range [%d, %d] for %d blocks", ErrInsufficientData, from, to, n)
	}

	scores := make([]float64, to-from+1)
	samples := make([]int, to-from+1)

	workers := min(opts.Workers, len(scores))
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for k := from + w; k <= to; k += workers {
				if ctx.Err() != nil {
					return
				}
				scores[k-from], samples[k-from] = shiftScore(bits, k, opts.Step)
			}
		}(w)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return Period{}, fmt.Errorf("period search aborted: %w", err)
	}

	best := Period{Shift: -1, From: from, To: to}
	for i, s := range scores {
		if samples[i] == 0 {
			continue
		}
		if best.Shift < 0 || s > best.Score {
			best.Shift = from + i
			best.Score = s
			best.Samples = samples[i]
		}
	}
	if best.Shift < 0 {
		return Period{}, fmt.Errorf("%w: no candidate shift has a sample", ErrInsufficientData)
	}
	return best, nil
}

func binarize(tokens []Token, mark Token) []bool {
	bits := make([]bool, len(tokens))
	for i, t := range tokens {
		bits[i] = t == mark
	}
	return bits
}

// shiftScore compares bits[i] with bits[i+k] at i = 0, step, 2*step...
// and returns the agreeing fraction and the number of samples taken.
func shiftScore(bits []bool, k, step int) (float64, int) {
	var agree, total int
	for i := 0; i+k < len(bits); i += step {
		if bits[i] == bits[i+k] {
			agree++
		}
		total++
	}
	if total == 0 {
		return 0, 0
	}
	return float64(agree) / float64(total), total
}
