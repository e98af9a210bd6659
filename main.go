package main

import "github.com/kebairia/pgpitr/cmd"

func main() {
	cmd.Execute()
}
