// Package main is the harvester executable.
package main

import "github.com/JakeFAU/jumpit-harvester/cmd"

func main() {
	cmd.Execute()
}
