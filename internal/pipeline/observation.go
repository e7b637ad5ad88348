// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import "github.com/fieldlab-science/sapfluxcore/pkg/schema"

// Observations is the pipeline's working row: a schema.Observation plus
// the deployment it was matched against (if any), carried alongside so
// later stages (quality scoring) don't need to re-run the point-in-
// interval join.
type Observations struct {
	schema.Observation
	Deployment *Deployment
}

// Unwrap extracts the schema.Observation slice for publication, dropping
// the pipeline-internal deployment pointer.
func Unwrap(rows []Observations) []schema.Observation {
	out := make([]schema.Observation, len(rows))
	for i, r := range rows {
		out[i] = r.Observation
	}
	return out
}
