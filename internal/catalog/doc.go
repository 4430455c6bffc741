// Package catalog holds the in-memory working set for a run: every classified
// item, keyed by its server rating key and kept in listing order.
//
// Items are built by the classifier. The only mutation after that point is
// MarkCollection, which the reconciler calls after the server accepted a
// collection update, so a second reconcile pass over the same State sees the
// new membership and issues no further calls.
package catalog
