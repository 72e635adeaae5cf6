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

package cor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/zeebo/assert"
)

type upper struct {
	cor.BaseCommand
}

func (u *upper) Execute(ctx cor.Context) {
	ctx.Add(cor.CtxOut, strings.ToUpper(ctx.Get(cor.CtxIn).(string)))
	u.Succeed(ctx)
}

type failing struct {
	cor.BaseCommand
	ran bool
}

func (f *failing) Execute(ctx cor.Context) {
	f.ran = true
	f.Fail(ctx, errors.New("boom"))
}

func TestChainPipesOutputToInput(t *testing.T) {
	chain := cor.NewBaseChain("test-chain")
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("first")})
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("second")})

	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, "clip")
	chain.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, ctx.Get(cor.CtxIn), "CLIP")
	assert.Nil(t, ctx.Get(cor.CtxOut))
}

func TestChainStopsAtFirstError(t *testing.T) {
	first := &failing{BaseCommand: *cor.NewBaseCommand("first")}
	second := &failing{BaseCommand: *cor.NewBaseCommand("second")}
	chain := cor.NewBaseChain("test-chain").AddCommand(first).AddCommand(second)

	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, "clip")
	chain.Execute(ctx)

	assert.True(t, first.ran)
	assert.False(t, second.ran)
	assert.Equal(t, ctx.FirstError().Error(), "boom")
	assert.Equal(t, len(ctx.GetErrors()), 1)
}

func TestChainReportsMissingInput(t *testing.T) {
	chain := cor.NewBaseChain("test-chain").AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("first")})
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	chain.Execute(ctx)

	assert.True(t, ctx.HasErrors())
	assert.NotNil(t, ctx.GetErrors()["first"])
}

func TestChainHonoursCancellation(t *testing.T) {
	cmd := &failing{BaseCommand: *cor.NewBaseCommand("never")}
	chain := cor.NewBaseChain("test-chain").AddCommand(cmd)

	goCtx, cancel := context.WithCancel(context.Background())
	cancel()
	ctx := cor.NewBaseContext()
	ctx.SetContext(goCtx)
	ctx.Add(cor.CtxIn, "clip")
	chain.Execute(ctx)

	assert.False(t, cmd.ran)
	assert.True(t, errors.Is(ctx.FirstError(), context.Canceled))
}

func TestContextCloseRemovesScratch(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "run-1")
	assert.NoError(t, os.MkdirAll(filepath.Join(work, "seg-0000"), 0o755))
	tmp := filepath.Join(dir, "download.mp4")
	assert.NoError(t, os.WriteFile(tmp, []byte("x"), 0o644))

	ctx := cor.NewBaseContext()
	ctx.AddTempFile(tmp)
	ctx.AddWorkDir(work)
	ctx.AddError("a", errors.New("first"))
	ctx.AddError("b", errors.New("second"))
	ctx.AddError("a", errors.New("ignored"))
	ctx.Close()

	_, err := os.Stat(work)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, ctx.FirstError().Error(), "first")
	assert.Equal(t, ctx.GetErrors()["a"].Error(), "first")
}
