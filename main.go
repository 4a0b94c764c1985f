package main

import "github.com/KaramelBytes/gwastrend/cmd"

func main() {
	cmd.Execute()
}
