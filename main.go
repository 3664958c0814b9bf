package main

import "github.com/myscheme/schemeapi/cli"

func main() {
	cli.Execute()
}
