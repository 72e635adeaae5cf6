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
	"os"
	"path/filepath"
	"strings"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
)

// EditRunStart opens the run record of a notification driven edit and picks
// a private local path for the edited file. The path lives in a directory of
// its own that Close removes once the file has been uploaded.
type EditRunStart struct {
	cor.BaseCommand
	parent string
	format string
	model  string
}

func NewEditRunStart(name string, parent string, format string, modelName string) *EditRunStart {
	out := &EditRunStart{BaseCommand: *cor.NewBaseCommand(name), parent: parent, format: format, model: modelName}
	out.InputParamName = ParamSourcePath
	return out
}

func (c *EditRunStart) Execute(context cor.Context) {
	source := context.Get(c.GetInputParam()).(string)

	input := source
	if obj, ok := context.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject); ok {
		input = obj.URI()
	}
	run, ok := context.Get(ParamEditRun).(*model.EditRun)
	if !ok {
		run = model.NewEditRun(input)
		context.Add(ParamEditRun, run)
	}
	run.Model = c.model

	dir, err := os.MkdirTemp(c.parent, "edited-")
	if err != nil {
		c.Fail(context, fmt.Errorf("create output directory: %w", err))
		return
	}
	context.AddWorkDir(dir)

	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	context.Add(ParamOutputPath, filepath.Join(dir, EditedObjectPrefix+stem+"."+c.format))

	c.Succeed(context)
	context.Add(cor.CtxOut, source)
}
