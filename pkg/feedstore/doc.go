// Package feedstore manages a set of append-only, cryptographically
// keyed feeds over a pluggable block-storage backend, log engine, and
// index trie. A FeedStore opens and closes feeds by path, persists
// their identity in an injected Trie, and serves three composable read
// strategies — Bulk, Selective, and Ordered — over whichever feeds are
// currently open.
package feedstore
