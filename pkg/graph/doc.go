/*
Package graph holds the canonical in-memory node and connection lists of one editing session.

The Store is the only place where a flow graph is mutated. Every mutation preserves the
connection invariant: both endpoints of a connection always reference nodes present in
the same store. Graphs loaded from a snapshot may still carry dangling connections.
Snapshots handed out by the store are deep copies, so an interpreter
walking a snapshot never observes later edits.

A Store is not safe for concurrent use; it is owned by exactly one editor session.
*/
package graph
