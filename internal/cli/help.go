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

package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
)

// usageHeader is the fixed part of `wasmer-js help` output. The list of
// registered subcommands is appended to it at render time. The trailing
// whitespace is part of the format.
const usageHeader = "USAGE:\n" +
	"\n" +
	"$ wasmer-js help [SUBCOMMAND]\n" +
	"\n" +
	"ARGUMENTS:\n" +
	"\n" +
	"[SUBCOMMAND] - The subcommand we want to see the help message for \n" +
	"    \n" +
	"    The available subcommands (other than help) are:\n"

// helpCmd routes `wasmer-js help [SUBCOMMAND]`.
//
// It holds the full command registry so the usage block always reflects
// the names and descriptions the commands currently report.
type helpCmd struct {
	commands []subcommand
}

func (*helpCmd) Name() string {
	return "help"
}

func (*helpCmd) Description() string {
	return "Show the usage of the passed subcommand"
}

func (*helpCmd) SetFlags(f *flag.FlagSet) {
}

func (h *helpCmd) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == h.Name() {
		h.usage()
		return nil
	}
	for _, s := range h.commands {
		if s.Name() != args[0] {
			continue
		}
		a := app{}
		a.init("wasmer-js "+s.Name(), s.Description()+"\n")
		s.SetFlags(a.fs)
		a.fs.Usage()
		return nil
	}
	// Not a failure: report the stray token and fall back to the general
	// usage so the user is never left without guidance.
	fmt.Fprintf(helpOut, "Unrecognized subcommand: %s\n", args[0])
	h.usage()
	return nil
}

func (h *helpCmd) usage() {
	fmt.Fprint(helpOut, usageHeader)
	for _, s := range h.commands {
		if s.Name() == h.Name() {
			continue
		}
		fmt.Fprintf(helpOut, "    %s - %s\n", s.Name(), s.Description())
	}
}
