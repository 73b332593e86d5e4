// Copyright 2024 The Wasmer-JS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reporting prints user-facing diagnostics, with colors when
// stderr is an active terminal.
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// The ANSI codes the interactive reporter uses.
//
// https://en.wikipedia.org/wiki/ANSI_escape_code#SGR_.28Select_Graphic_Rendition.29_parameters
const (
	reset    = "\x1b[0m"
	faint    = "\x1b[2m"
	fgYellow = "\x1b[33m"
)

// Reporter emits diagnostics about the module being run.
type Reporter interface {
	// Notice reports progress that needs no action from the user.
	Notice(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Get returns the right reporting implementation based on the current
// environment.
func Get() Reporter {
	if os.Getenv("TERM") != "dumb" && isatty.IsTerminal(os.Stderr.Fd()) {
		// Active terminal. Colors! This includes VSCode's integrated
		// terminal.
		return &interactive{out: colorable.NewColorableStderr()}
	}
	// Anything else, e.g. redirected output.
	return &basic{out: os.Stderr}
}

type basic struct {
	out io.Writer
}

func (b *basic) Notice(format string, args ...interface{}) {
	fmt.Fprintf(b.out, format+"\n", args...)
}

func (b *basic) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(b.out, "warning: "+format+"\n", args...)
}

type interactive struct {
	out io.Writer
}

func (i *interactive) Notice(format string, args ...interface{}) {
	fmt.Fprintf(i.out, faint+format+reset+"\n", args...)
}

func (i *interactive) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(i.out, fgYellow+"warning: "+format+reset+"\n", args...)
}
