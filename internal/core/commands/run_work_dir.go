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
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
)

// RunWorkDir creates the scratch directory of a run. The directory is
// registered with the context so that Close removes it on every exit path,
// unless keep is set for debugging.
type RunWorkDir struct {
	cor.BaseCommand
	parent string
	keep   bool
}

func NewRunWorkDir(name string, parent string, keep bool) *RunWorkDir {
	if parent == "" {
		parent = os.TempDir()
	}
	out := &RunWorkDir{BaseCommand: *cor.NewBaseCommand(name), parent: parent, keep: keep}
	out.InputParamName = ParamVideoAsset
	out.OutputParamName = ParamWorkDir
	return out
}

func (c *RunWorkDir) Execute(context cor.Context) {
	id := uuid.NewString()
	if run, ok := context.Get(ParamEditRun).(*model.EditRun); ok {
		id = run.RunId
	}

	if err := os.MkdirAll(c.parent, 0o755); err != nil {
		c.Fail(context, fmt.Errorf("create work dir parent %s: %w", c.parent, err))
		return
	}
	dir := filepath.Join(c.parent, "run-"+id)
	// Mkdir, not MkdirAll: the directory must not be shared with another run.
	if err := os.Mkdir(dir, 0o700); err != nil {
		c.Fail(context, fmt.Errorf("create work dir: %w", err))
		return
	}
	if c.keep {
		slog.InfoContext(context.GetContext(), "keeping work directory", "dir", dir)
	} else {
		context.AddWorkDir(dir)
	}

	c.Succeed(context)
	context.Add(c.GetOutputParam(), dir)
	context.Add(cor.CtxOut, context.Get(c.GetInputParam()))
}
