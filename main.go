package main

import "github.com/usc-isi-i2/dig-train-extractions-classifier/cmd"

func main() {
	cmd.Execute()
}
