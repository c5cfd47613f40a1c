// Package fst implements an immutable weighted finite state transducer whose outputs are
// (weight, payload) pairs.
//
// Weights compose by addition and share by minimum, payloads compose by concatenation and
// share by longest common prefix. The builder pushes outputs toward the root so the output
// accumulated on any path equals the best (smallest weight) completion reachable from it.
package fst

import "bytes"

// Output is the value attached to arcs and final nodes.
type Output struct {
	Weight  int64
	Payload []byte
}

// NoOutput is the identity for Add.
var NoOutput = Output{}

// IsZero reports whether o carries no weight and no payload.
func (o Output) IsZero() bool {
	return o.Weight == 0 && len(o.Payload) == 0
}

// Add concatenates b onto a. The result never aliases a's payload.
func Add(a, b Output) Output {
	if len(b.Payload) == 0 {
		return Output{Weight: a.Weight + b.Weight, Payload: a.Payload}
	}
	payload := make([]byte, 0, len(a.Payload)+len(b.Payload))
	payload = append(payload, a.Payload...)
	payload = append(payload, b.Payload...)
	return Output{Weight: a.Weight + b.Weight, Payload: payload}
}

// Common returns the output shared by a and b: the smaller weight and the longest common
// payload prefix.
func Common(a, b Output) Output {
	w := a.Weight
	if b.Weight < w {
		w = b.Weight
	}
	n := 0
	for n < len(a.Payload) && n < len(b.Payload) && a.Payload[n] == b.Payload[n] {
		n++
	}
	return Output{Weight: w, Payload: a.Payload[:n:n]}
}

// Subtract removes prefix from o. prefix must have been produced by Common over a set
// containing o.
func Subtract(o, prefix Output) Output {
	if !bytes.HasPrefix(o.Payload, prefix.Payload) {
		panic("fst: subtracting a payload that is not a prefix")
	}
	return Output{Weight: o.Weight - prefix.Weight, Payload: o.Payload[len(prefix.Payload):]}
}

// Equal reports whether a and b carry the same weight and payload.
func Equal(a, b Output) bool {
	return a.Weight == b.Weight && bytes.Equal(a.Payload, b.Payload)
}
