// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import "fmt"

// Stage names a pipeline step, used in PipelineError to identify where a
// run aborted.
type Stage string

const (
	StageFlatten      Stage = "flatten"
	StageTimestampFix Stage = "timestamp_fix"
	StageEnrich       Stage = "enrich"
	StageResolve      Stage = "resolve"
	StageCalculate    Stage = "calculate"
	StageScore        Stage = "score"
)

// PipelineError aborts a transaction: any failing stage sets
// pipeline.status = Failed and the transaction outcome to REJECTED.
type PipelineError struct {
	Stage   Stage
	Message string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline: %s: %s", e.Stage, e.Message)
}

func newPipelineError(stage Stage, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Stage: stage, Message: fmt.Sprintf(format, args...)}
}
