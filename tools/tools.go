//go:build tools

// Package tools pins the development tools of the project.
package tools

// $ go generate -tags tools tools/tools.go
import (
	//go:generate go install github.com/client9/misspell/cmd/misspell
	_ "github.com/client9/misspell/cmd/misspell"
)
