package main

import (
	"github.com/Tmacphee13/axoserve/internal/cli"
)

func main() {
	cli.Execute()
}
