// Command beanguard validates cash income reports through an intercepting
// validation engine.
package main

import "github.com/Sentinel-Gate/beanguard/cmd/beanguard/cmd"

func main() {
	cmd.Execute()
}
