package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/temirov/blogatissue/internal/execshell"
	"github.com/temirov/blogatissue/internal/utils"
)

const (
	groupCommandConstant    = "group"
	endGroupCommandConstant = "endgroup"
	errorCommandConstant    = "error"
	warningCommandConstant  = "warning"
	noticeCommandConstant   = "notice"
	addMaskCommandConstant  = "add-mask"
	workflowCommandTemplate = "::%s::%s\n"
)

var workflowDataEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// EscapeData encodes a workflow command message so line breaks survive the runner's parser.
func EscapeData(value string) string {
	return workflowDataEscaper.Replace(value)
}

// WorkflowCommandWriter emits GitHub Actions workflow commands and observes shell commands.
type WorkflowCommandWriter struct {
	output    io.Writer
	formatter execshell.CommandMessageFormatter
}

var _ execshell.CommandEventObserver = (*WorkflowCommandWriter)(nil)

// NewWorkflowCommandWriter writes workflow commands to output, flushing after each line.
func NewWorkflowCommandWriter(output io.Writer) *WorkflowCommandWriter {
	if output == nil {
		output = io.Discard
	}
	return &WorkflowCommandWriter{output: utils.NewFlushingWriter(output), formatter: execshell.CommandMessageFormatter{}}
}

// Group opens a collapsible log section.
func (writer *WorkflowCommandWriter) Group(title string) {
	writer.emit(groupCommandConstant, title)
}

// EndGroup closes the current log section.
func (writer *WorkflowCommandWriter) EndGroup() {
	writer.emit(endGroupCommandConstant, "")
}

// Error records an error annotation.
func (writer *WorkflowCommandWriter) Error(message string) {
	writer.emit(errorCommandConstant, message)
}

// Warning records a warning annotation.
func (writer *WorkflowCommandWriter) Warning(message string) {
	writer.emit(warningCommandConstant, message)
}

// Notice records a notice annotation.
func (writer *WorkflowCommandWriter) Notice(message string) {
	writer.emit(noticeCommandConstant, message)
}

// AddMask asks the runner to hide value in all later log output. Blank values are ignored.
func (writer *WorkflowCommandWriter) AddMask(value string) {
	if len(strings.TrimSpace(value)) == 0 {
		return
	}
	writer.emit(addMaskCommandConstant, value)
}

// CommandStarted opens a group named after the redacted command line.
func (writer *WorkflowCommandWriter) CommandStarted(command execshell.ShellCommand) {
	if writer == nil {
		return
	}
	writer.Group(writer.formatter.FormatCommandLabel(command))
}

// CommandCompleted closes the group and warns about non-zero exits.
func (writer *WorkflowCommandWriter) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if writer == nil {
		return
	}
	writer.EndGroup()
	if result.ExitCode != 0 {
		writer.Warning(writer.formatter.BuildFailureMessage(command, result))
	}
}

// CommandExecutionFailed closes the group and records an error.
func (writer *WorkflowCommandWriter) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if writer == nil {
		return
	}
	writer.EndGroup()
	writer.Error(writer.formatter.BuildExecutionFailureMessage(command, failure))
}

func (writer *WorkflowCommandWriter) emit(command string, message string) {
	if writer == nil {
		return
	}
	fmt.Fprintf(writer.output, workflowCommandTemplate, command, EscapeData(message))
}
