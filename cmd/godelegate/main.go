package main

import "github.com/dbsmedya/godelegate/cmd/godelegate/cmd"

func main() {
	cmd.Execute()
}
