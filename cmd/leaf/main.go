// leaf serves and runs the plant health classifier.
//
// Usage:
//
//	leaf serve                       start the web UI and JSON API
//	leaf predict [--soil-moisture=…]  classify one reading
//	leaf predict --input readings.csv classify a CSV file in batches
//	leaf importance                  show the model's feature ranking
//	leaf fields                      list the sensor fields and bounds
//	leaf version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "leaf:", err)
		os.Exit(1)
	}
}
