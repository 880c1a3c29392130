package main

import (
	"fmt"
	"io"

	"github.com/chronos-foundation/chronos-base/engine"
	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/kvdb/memorydb"
)

func main() {
	store := engine.NewStore(memorydb.New())

	restored, err := engine.New(engine.LiteConfig(), hash.Zero, store, nil)
	if err != nil {
		panic(err)
	}

	// prevent compiler optimizations
	fmt.Fprint(io.Discard, restored == nil)
}
