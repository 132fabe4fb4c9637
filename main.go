package main

import (
	"github.com/mj1618/gridcheck/cmd"

	_ "github.com/mj1618/gridcheck/internal/platform/chrome"
	_ "github.com/mj1618/gridcheck/internal/platform/htmldoc"
)

func main() {
	cmd.Execute()
}
