// Command medclean cleans the CMS hospital datasets, merges them into one
// table per provider and prepares model inputs from the result.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
