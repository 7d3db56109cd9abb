package main

import (
	"fmt"
	"os"

	"github.com/tyemirov/excerpt/internal/cli"
	"github.com/tyemirov/excerpt/internal/utils"
)

const debugEnvironmentVariable = "EXCERPT_DEBUG"

// main is the entry point for the excerpt command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(os.Getenv(debugEnvironmentVariable) != "")
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(loggerInstance); applicationExecutionError != nil {
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
	}
}
