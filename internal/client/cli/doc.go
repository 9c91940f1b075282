// Package cli provides the interactive NutriKeeper command-line client.
//
// It wires configuration, the local store, the session manager, the
// optional remote document store and the collection synchronizer behind a
// small REPL.
//
// Commands:
//   - register, login, logout, whoami
//   - collections
//   - list <collection>, show <collection> <id>
//   - add <collection>, edit <collection> <id>, delete <collection> <id>
//   - status <collection>, pending <collection>, sync <collection>
//   - watch <collection>, unwatch <collection>
//
// Catalog collections shipped with the default dataset can only be edited
// by admins; any other collection needs a live session.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
