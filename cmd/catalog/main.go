package main

import (
	"github.com/calory-counter/catalog/pkg/cli"
)

func main() {
	cli.ExecuteClient()
}
