// Package scanner is the client side of the malware scan oracle.
package scanner

import (
	"context"
	"errors"
)

type Status string

const (
	Clean      Status = "clean"
	Suspicious Status = "suspicious"
)

// Verdict is the oracle's answer for one file. Threat is set only when
// Status is Suspicious.
type Verdict struct {
	Status Status
	Threat string
}

// ErrOracleUnavailable is returned when the scanner cannot produce a
// verdict: connection refused, timeout, protocol or engine error.
var ErrOracleUnavailable = errors.New("scan oracle unavailable")

type Scanner interface {
	Scan(ctx context.Context, path string) (Verdict, error)
}

// Func adapts a function to Scanner.
type Func func(ctx context.Context, path string) (Verdict, error)

func (f Func) Scan(ctx context.Context, path string) (Verdict, error) { return f(ctx, path) }
