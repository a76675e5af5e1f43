// Package crypto provides the random-byte sources used by the rule
// store.
//
// The store consumes randomness only through an io.Reader. Production
// code uses SystemRandom; tests and reproducible simulations use a
// SeededRandom, whose output is a pure function of its seed.
package crypto
