/*
Package value provides typed, validated and serializable value holders.

A wrapper owns a value and an immutable validation config. Every mutation goes through
a validating setter, so the held value always satisfies its config. Wrappers also define
the canonical text form of their value (Stringify / SetFromString are inverse) and a
type-specific equality used to decide whether two connected ports agree.

Two concrete wrappers are provided:

  - Number: a finite float64, optionally integer-only and bounded.
  - Shape: an ordered sequence of positive integers written as "(224,224,3)".
*/
package value
