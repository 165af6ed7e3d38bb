package main

import "github.com/mikey/email-onebox/cmd/onebox/cmd"

func main() {
	cmd.Execute()
}
