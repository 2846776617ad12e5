// Command quadratec is the Quadrate compiler driver (spec component C8).
package main

import (
	"os"

	"github.com/quadrate-lang/quadrate/internal/driver"
)

func main() {
	os.Exit(driver.Main())
}
