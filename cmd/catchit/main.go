package main

import "github.com/yorozuya-cybersecurity/catchit/pkg/cli"

func main() {
	cli.Execute()
}
