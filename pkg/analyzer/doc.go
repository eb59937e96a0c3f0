// Package analyzer orchestrates a multi-project analysis run: it discovers
// project definition files under a root directory, hands each one to its
// ecosystem plugin on a bounded worker pool, and assembles the frozen
// per-ecosystem dependency graphs plus the canonical resolved package set
// into a single Run result.
//
// Partial failure is the normal case in large source trees: a project whose
// ecosystem tooling fails is recorded with an error issue and every other
// project completes independently.
package analyzer
