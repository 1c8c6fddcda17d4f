package main

import "github.com/naka-gawa/posthog-digest/cmd"

func main() {
	cmd.Execute()
}
