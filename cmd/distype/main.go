// distype speaks typed and saved phrases for people who cannot speak.
//
// Usage:
//
//	distype [flags]                 interactive prompt
//	distype say TEXT...             speak once and exit
//	distype category|statement ...  manage saved phrases
//	distype import FILE|BANK        bulk import a phrase bank
//	distype migrate --to BACKEND    copy all phrases into another store
//	distype export --out FILE TEXT  write synthesized speech to a file
package main

import (
	"os"
)

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
