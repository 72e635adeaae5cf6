// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package commands

import (
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
)

// EditRunPersistToBigQuery writes the *model.EditRun of a finished run as one
// row of the runs table.
type EditRunPersistToBigQuery struct {
	cor.BaseCommand
	client  *bigquery.Client
	dataset string
	table   string
}

func NewEditRunPersistToBigQuery(name string, client *bigquery.Client, dataset string, table string) *EditRunPersistToBigQuery {
	out := &EditRunPersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), client: client, dataset: dataset, table: table}
	out.InputParamName = ParamEditRun
	return out
}

// Persist inserts the run. It is also called directly by workflows to
// record failed runs, which never reach the end of the chain.
func (s *EditRunPersistToBigQuery) Persist(context cor.Context, run *model.EditRun) error {
	i := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := i.Put(context.GetContext(), run); err != nil {
		return fmt.Errorf("bigquery insert failed for run %s: %w", run.RunId, err)
	}
	slog.InfoContext(context.GetContext(), "persisted edit run", "run_id", run.RunId, "status", run.Status)
	return nil
}

func (s *EditRunPersistToBigQuery) Execute(context cor.Context) {
	run := context.Get(s.GetInputParam()).(*model.EditRun)
	if run.Status == "" {
		run.Status = model.RunStatusSucceeded
	}
	if err := s.Persist(context, run); err != nil {
		s.Fail(context, err)
		return
	}
	s.Succeed(context)
	context.Add(cor.CtxOut, run)
}
