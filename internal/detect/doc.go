// Package detect evaluates each incoming trade against historical
// per-instrument state and tags the anomalies it finds.
//
// Three detectors run in order on every trade: a dormancy break (first
// trade after a long silent gap), an unusual size (large multiple of the
// instrument's recent median size), and an accumulation burst (several
// high-value trades inside a short window). Tags are computed against
// history as it stood before the trade is stored, so the stored row and
// any alert carry the same tags.
package detect
