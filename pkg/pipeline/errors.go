package pipeline

import "fmt"

// Stages of a run, as reported in StageError.
const (
	StageFetch      = "fetch"
	StageDecompress = "decompress"
	StageParse      = "parse"
	StageReport     = "report"
)

// StageError names the stage of a run that failed. Component is empty for
// failures that are not tied to one archive component.
type StageError struct {
	Stage     string
	Component string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
