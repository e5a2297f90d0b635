//go:build peerqdebug

package mq

// defaultDebug is true for binaries built with -tags peerqdebug: invariant
// violations panic immediately instead of being repaired and logged.
const defaultDebug = true
