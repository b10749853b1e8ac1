// Package testutil provides internal test helpers: a scriptable memory store
// stub and small builders reducing boilerplate in orchestration tests. Not
// part of the public API.
package testutil
