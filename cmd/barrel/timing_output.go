package main

import (
	"fmt"
	"io"

	"barrel/internal/observ"
)

func printTimings(out io.Writer, tm *observ.Timer) {
	if out == nil || tm == nil {
		return
	}
	if _, err := fmt.Fprint(out, tm.Summary()); err != nil {
		panic(err)
	}
}
