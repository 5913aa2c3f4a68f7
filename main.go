package main

import "github.com/goosewin/kotoba/cmd"

func main() {
	cmd.Execute()
}
