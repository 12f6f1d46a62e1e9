// Package fuzztests houses Go fuzz harnesses for the kast hand-off path
// (bytes -> astio -> borrow -> x64). They guard against panics and
// non-canonical round trips on arbitrary documents.
package fuzztests
