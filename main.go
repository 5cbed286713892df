package main

import "github.com/ethanolivertroy/sap-compass/cmd"

func main() {
	cmd.Execute()
}
