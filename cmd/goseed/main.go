package main

import "github.com/dbsmedya/goseed/cmd/goseed/cmd"

func main() {
	cmd.Execute()
}
