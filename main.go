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

// wasmer-js runs WebAssembly modules with WASI support.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"
	"github.com/wasmerio/wasmer-js/internal/cli"
)

func main() {
	signalChannel := make(chan os.Signal, 2)
	signal.Notify(signalChannel, syscall.SIGTERM, syscall.SIGINT)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-signalChannel
		cancel()
		// Print a goroutine stacktrace only on SIGTERM. Automation kills a
		// hung run with SIGTERM and the stacks are the only clue left; a
		// human Ctrl-C (SIGINT) doesn't need the noise.
		if sig == syscall.SIGTERM {
			_ = pprof.Lookup("goroutine").WriteTo(os.Stderr, 1)
		}
	}()

	if err := cli.Main(ctx, os.Args); err != nil && !errors.Is(err, flag.ErrHelp) {
		// If stderr is not a terminal, always print the error.
		//
		// If stderr is a terminal, a context cancellation will likely be
		// because the user Ctrl-C'd the run, so the exit is expected and
		// there's no need to print anything.
		if !isatty.IsTerminal(os.Stderr.Fd()) || !errors.Is(err, context.Canceled) {
			_, _ = fmt.Fprintf(os.Stderr, "wasmer-js: %s\n", err)
		}
		os.Exit(1)
	}
}
