// Package distrib averages scalar vectors across training replicas.
//
// Every replica calls Average once per round with a vector of the same
// length; all replicas receive the element-wise mean. A replica that skips
// a round stalls every other replica, so callers must reach each collective
// unconditionally.
package distrib
