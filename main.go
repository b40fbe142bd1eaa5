package main

import "github.com/pandoras-vault/apiserver/cmd"

func main() {
	cmd.Execute()
}
