package main

import "github.com/jackc/petclinic-e2e/cmd"

func main() {
	cmd.Execute()
}
