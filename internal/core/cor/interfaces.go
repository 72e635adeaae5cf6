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

// Package cor implements the Chain of Responsibility used by the edit
// workflows. A workflow is a Chain of Commands sharing one Context: each
// command reads its input from the context, does one step (probe, analyse,
// plan, render, reconstruct) and writes its output back for the next step.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the default input key. BaseChain fills it with the previous
	// command's output.
	CtxIn = "__IN__"
	// CtxOut is the default output key.
	CtxOut = "__OUT__"
)

// Context is the state shared by the commands of a chain.
type Context interface {
	// SetContext sets the Go context carrying cancellation and trace data.
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value and returns the Context for chaining.
	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records an error produced by the named command.
	AddError(key string, err error)
	// GetErrors returns all recorded errors keyed by command name.
	GetErrors() map[string]error
	// FirstError returns the earliest recorded error, or nil.
	FirstError() error
	HasErrors() bool

	// AddTempFile registers a file removed by Close.
	AddTempFile(file string)
	GetTempFiles() []string
	// AddWorkDir registers a directory removed recursively by Close.
	AddWorkDir(dir string)
	GetWorkDirs() []string

	// Close removes every registered temp file and work directory.
	Close()
}

// Executable is anything that can run against a Context.
type Executable interface {
	Execute(context Context)
}

// Command is a single named, instrumented step.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable reports whether the context holds what the command needs.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain runs its commands in order, piping CtxOut into CtxIn.
type Chain interface {
	Command

	// ContinueOnFailure controls whether the chain keeps going after a command
	// records an error. Edit workflows always stop.
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
