// Package reconcile brings collection membership on the server in line with
// the classified State: every commentary item ends up in the target
// collection once, with its existing collections preserved.
package reconcile
