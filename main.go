package main

import "github.com/Centroplan-france/vcom-yuman-sync/cmd"

func main() {
	cmd.Execute()
}
