// Command concache-bench drives a concache instance with a mixed concurrent
// workload and reports throughput and cache counters.
//
//	concache-bench run --backend bigcache --workers 16 --read-ratio 0.8
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
