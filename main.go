package main

import (
	"github.com/SunnyWangGitHub/ELF/examples"
)

func main() {
	examples.Corridor()
}
