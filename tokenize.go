package main

import (
	"encoding/hex"
	"fmt"
)

// Token is the raw content of one block. Two blocks are the same token
// iff they are byte-for-byte identical.
type Token string

// Hex returns the identifier used in reports.
func (t Token) Hex() string {
	return hex.EncodeToString([]byte(t))
}

// Tokenize skips offset blocks and cuts the rest of buf into
// non-overlapping blocks of blocksize bytes. A trailing partial block is
// dropped.
func Tokenize(buf []byte, blocksize, offset int) ([]Token, error) {
	if blocksize <= 0 {
		return nil, fmt.Errorf("%w: blocksize must be > 0, got %d", ErrInvalidConfig, blocksize)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0, got %d", ErrInvalidConfig, offset)
	}

	n := len(buf)/blocksize - offset
	if n <= 0 {
		return nil, nil
	}
	buf = buf[offset*blocksize:]

	tokens := make([]Token, n)
	for i := 0; i < n; i++ {
		tokens[i] = Token(buf[i*blocksize : (i+1)*blocksize])
	}
	return tokens, nil
}
