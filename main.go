package main

import "github.com/tiagoposse/ccloud-secretsync/cmd"

func main() {
	cmd.Execute()
}
