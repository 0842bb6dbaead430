package node

import "errors"

var errNodeShuttingDown = errors.New("node: shutting down")
