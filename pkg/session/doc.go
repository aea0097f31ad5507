/*
Package session coordinates concurrent access to saved flows and live previews.

The Manager serializes operations per key (an owner for flows, an id for previews)
with reference-counted locks, so several HTTP requests touching the same flow or preview
never interleave, while unrelated keys proceed in parallel.
*/
package session
