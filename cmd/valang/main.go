// Command valang parses, checks and applies Valang validation rules.
//
//	valang parse "age >= 18 and name has text"
//	valang check rules.valang customer.xml
//	valang validate --rules rules.valang --data customer.yaml
package main

import (
	"errors"
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, failure("error:"), err)
		}
		os.Exit(1)
	}
}
