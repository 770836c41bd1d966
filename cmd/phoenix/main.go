package main

import "github.com/comsec-group/phoenix-sub000/cmd/phoenix/cmd"

func main() {
	cmd.Execute()
}
