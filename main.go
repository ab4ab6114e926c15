// main is the entry point for the geoseries CLI.
package main

import (
	"github.com/huangsam/geoseries/cmd"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/internal/jobstore"
)

func main() {
	err := cmd.Execute()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Failed to stop profiling", perr)
	}
	jobstore.Close()
	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}
