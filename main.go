package main

import "github.com/ValentinKolb/dGC/cmd"

func main() {
	cmd.Execute()
}
