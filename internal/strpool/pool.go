// Package strpool recycles string builders used for rendering replies.
package strpool

import (
	"strings"
	"sync"
)

var pool = sync.Pool{
	New: func() interface{} {
		return &strings.Builder{}
	},
}

func Get() *strings.Builder {
	return pool.Get().(*strings.Builder)
}

// Put resets b and returns it to the pool, b must not be used afterwards.
func Put(b *strings.Builder) {
	b.Reset()
	pool.Put(b)
}
