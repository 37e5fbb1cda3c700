package main

import (
	"cibuild/internal/cibuild"
)

func main() {
	cibuild.Main()
}
