package catalog

import (
	"math"
	"strconv"
)

// fieldError describes why one token of a data line was rejected.
type fieldError struct {
	pos    int // 1-based token position
	token  string
	reason string
}

// lineFields walks the tokens of one data line. Each parse method records
// the first failure and turns every later call into a no-op, so a line is
// validated in field order and the reported position is where parsing first
// failed.
type lineFields struct {
	tokens []string
	err    *fieldError
}

func (lf *lineFields) fail(pos int, reason string) {
	if lf.err == nil {
		lf.err = &fieldError{pos: pos, token: lf.tokens[pos-1], reason: reason}
	}
}

func (lf *lineFields) text(pos int) string {
	return lf.tokens[pos-1]
}

func (lf *lineFields) integer(pos int) int {
	if lf.err != nil {
		return 0
	}
	v, err := strconv.Atoi(lf.tokens[pos-1])
	if err != nil {
		lf.fail(pos, "not an integer")
		return 0
	}
	return v
}

func (lf *lineFields) real(pos int) float64 {
	if lf.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(lf.tokens[pos-1], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		lf.fail(pos, "not a number")
		return 0
	}
	return v
}

func (lf *lineFields) state(pos int) State {
	if lf.err != nil {
		return ""
	}
	switch s := State(lf.tokens[pos-1]); s {
	case StateSolid, StateLiquid, StateGas:
		return s
	}
	lf.fail(pos, "state must be one of S, G, L")
	return ""
}
