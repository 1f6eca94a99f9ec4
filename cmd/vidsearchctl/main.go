package main

import "github.com/kailas-cloud/vidsearch/internal/cli"

func main() {
	cli.Execute()
}
