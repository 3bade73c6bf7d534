//go:build tools

// Package tools pins the code generators invoked through go generate, so that
// mockgen resolves from go.mod on a fresh checkout.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
