package main

import (
	"os"

	"github.com/MufengNiu/Paradisec/cmd/paradisec/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
