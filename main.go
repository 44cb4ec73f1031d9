/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package main

import (
	"os"

	"github.com/fulmenhq/convguard/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
