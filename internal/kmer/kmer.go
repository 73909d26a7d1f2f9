// Package kmer turns nucleotide strings into fixed-length k-mer count vectors.
//
// The vector index order is the lexicographic enumeration of every k-length
// string over A, C, G, T. Trained models are position-sensitive over that
// order, so it must never change.
package kmer

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the nucleotide alphabet in vocabulary order.
const Alphabet = "ACGT"

// MaxK bounds the vocabulary size (4^12 entries).
const MaxK = 12

var ErrInvalidK = errors.New("kmer: k out of range")

// Vector holds raw k-mer counts in vocabulary order.
type Vector []int

// Float64s materializes the counts as model input.
func (v Vector) Float64s() []float64 {
	out := make([]float64, len(v))
	for i, c := range v {
		out[i] = float64(c)
	}
	return out
}

// Total returns the number of windows counted.
func (v Vector) Total() int {
	total := 0
	for _, c := range v {
		total += c
	}
	return total
}

// Size returns 4^k.
func Size(k int) int {
	return 1 << (2 * k)
}

// Vocabulary enumerates all k-mers by recursive digit expansion in alphabet order.
func Vocabulary(k int) []string {
	vocab := make([]string, 0, Size(k))
	var gen func(prefix string, depth int)
	gen = func(prefix string, depth int) {
		if depth == 0 {
			vocab = append(vocab, prefix)
			return
		}
		for i := 0; i < len(Alphabet); i++ {
			gen(prefix+Alphabet[i:i+1], depth-1)
		}
	}
	gen("", k)
	return vocab
}

// Encoder counts k-mers of a fixed length.
type Encoder struct {
	k     int
	vocab []string
}

func NewEncoder(k int) (*Encoder, error) {
	if k < 1 || k > MaxK {
		return nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidK, k, MaxK)
	}
	return &Encoder{k: k, vocab: Vocabulary(k)}, nil
}

func (e *Encoder) K() int {
	return e.k
}

// Size returns the vector length produced by Encode.
func (e *Encoder) Size() int {
	return len(e.vocab)
}

// Vocabulary returns the k-mer labels in vector order.
func (e *Encoder) Vocabulary() []string {
	out := make([]string, len(e.vocab))
	copy(out, e.vocab)
	return out
}

// Index returns the vector position of kmer, or -1 if it is not a valid k-mer.
func (e *Encoder) Index(kmer string) int {
	if len(kmer) != e.k {
		return -1
	}
	idx := 0
	for i := 0; i < len(kmer); i++ {
		d := baseIndex(kmer[i])
		if d < 0 {
			return -1
		}
		idx = idx<<2 | d
	}
	return idx
}

// Encode filters seq to ACGT (case-insensitive) and counts every stride-1
// window of length k. Sequences shorter than k give an all-zero vector.
func (e *Encoder) Encode(seq string) Vector {
	vec := make(Vector, len(e.vocab))
	clean := Clean(seq)
	if len(clean) < e.k {
		return vec
	}

	mask := len(e.vocab) - 1
	idx := 0
	for i := 0; i < len(clean); i++ {
		idx = (idx<<2 | baseIndex(clean[i])) & mask
		if i >= e.k-1 {
			vec[idx]++
		}
	}
	return vec
}

// Clean uppercases seq and drops everything outside ACGT.
func Clean(seq string) string {
	var b strings.Builder
	b.Grow(len(seq))
	for i := 0; i < len(seq); i++ {
		c := seq[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if baseIndex(c) >= 0 {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func baseIndex(c byte) int {
	switch c {
	case 'A':
		return 0
	case 'C':
		return 1
	case 'G':
		return 2
	case 'T':
		return 3
	}
	return -1
}
