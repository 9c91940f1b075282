// Package collections composes the three layers a collection is served from:
// the compiled-in default dataset, the local overlay kept in the kvstore,
// and the optional remote document store.
//
// Reads never fail because of the remote store. When it answers, its rows
// are the authoritative custom layer and are mirrored into the overlay;
// when it does not, the overlay is served. Writes go to the remote store
// first and always land in the overlay, flagged Pending when the remote
// store did not confirm them.
//
// Default records are immutable: Update and Remove on a default id fail
// with common.ErrPermissionDenied and never touch any layer.
//
// Watchers of a collection share one remote subscription, opened by the
// first watcher and released by the last unsubscribe.
package collections
