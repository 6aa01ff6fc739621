// Package cli provides the interactive dome shell.
//
// The shell restores the last session from the local database, then reads
// one command per line. After login the user selects a workspace (use),
// opens one of its boards (open) and edits it: lists and cards are created
// and deleted, cards are moved with "move <cardID> <toListID> <toIndex>".
// Card moves show up immediately and are undone if the server refuses them.
//
// While a board is open the shell listens on the workspace's live channel:
// changes announced by other members reload the board, and every change
// made here is announced to them. A board deleted elsewhere sends the shell
// back to the workspace view.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
