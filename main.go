package main

import "corpus-auditor/cmd"

func main() {
	cmd.Execute()
}
