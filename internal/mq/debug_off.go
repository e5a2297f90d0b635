//go:build !peerqdebug

package mq

// defaultDebug is false in release builds: invariant violations are
// repaired via recount() and logged rather than aborting the process.
const defaultDebug = false
