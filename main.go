package main

import (
	"fmt"
	"os"

	"github.com/temirov/blogatissue/cmd/cli"
	"github.com/temirov/blogatissue/internal/ui"
)

const (
	exitErrorTemplateConstant     = "%v\n"
	errorAnnotationPrefixConstant = "::error::"
	errorAnnotationSuffixConstant = "\n"
	exitCodeFailureConstant       = 1
)

// main executes the blogatissue command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		fmt.Fprint(os.Stdout, errorAnnotationPrefixConstant+ui.EscapeData(executionError.Error())+errorAnnotationSuffixConstant)
		os.Exit(exitCodeFailureConstant)
	}
}
