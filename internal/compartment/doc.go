// Package compartment reduces raw per-car seat ranges to bookable
// compartment blocks.
//
// The numbering rule is carrier specific: on RZD closed-compartment cars
// seats 1-4 share a compartment, 5-8 the next one, and so on. A block is
// only reported when every seat of the compartment is free. The rule is
// isolated behind Rule so other layouts can be plugged in.
package compartment
