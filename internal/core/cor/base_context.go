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

package cor

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// BaseContext is the default Context. It is safe for concurrent use so that
// segment workers can record errors and temp files while a chain runs.
type BaseContext struct {
	mu         sync.RWMutex
	data       map[string]interface{}
	errors     map[string]error
	errorOrder []string
	tempFiles  []string
	workDirs   []string
	context    context.Context
}

func NewBaseContext() Context {
	return &BaseContext{
		data:   make(map[string]interface{}),
		errors: make(map[string]error),
	}
}

func (c *BaseContext) SetContext(context context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context = context
}

func (c *BaseContext) GetContext() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.context
}

// Close removes temp files first, then work directories in reverse
// registration order. Removal failures are logged, never returned.
func (c *BaseContext) Close() {
	c.mu.Lock()
	files := c.tempFiles
	dirs := c.workDirs
	c.tempFiles = nil
	c.workDirs = nil
	c.mu.Unlock()

	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temporary file", "file", file, "error", err)
		}
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.RemoveAll(dirs[i]); err != nil {
			slog.Warn("failed to remove work directory", "dir", dirs[i], "error", err)
		}
	}
}

func (c *BaseContext) Add(key string, value interface{}) Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return c
}

func (c *BaseContext) AddTempFile(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempFiles = append(c.tempFiles, file)
}

func (c *BaseContext) GetTempFiles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.tempFiles...)
}

func (c *BaseContext) AddWorkDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workDirs = append(c.workDirs, dir)
}

func (c *BaseContext) GetWorkDirs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.workDirs...)
}

// AddError keeps the first error recorded per key.
func (c *BaseContext) AddError(key string, err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.errors[key]; ok {
		return
	}
	c.errors[key] = err
	c.errorOrder = append(c.errorOrder, key)
}

func (c *BaseContext) GetErrors() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]error, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

func (c *BaseContext) FirstError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.errorOrder) == 0 {
		return nil
	}
	return c.errors[c.errorOrder[0]]
}

func (c *BaseContext) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

func (c *BaseContext) HasErrors() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.errors) > 0
}
