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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"github.com/wasmerio/wasmer-js/internal/reporting"
	"github.com/wasmerio/wasmer-js/internal/wasm"
)

type runCmd struct {
	dirs []string
	envs []string
}

func (*runCmd) Name() string {
	return "run"
}

func (*runCmd) Description() string {
	return "Run a WebAssembly file with WASI support"
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringArrayVar(&c.dirs, "dir", nil, "host directory to preopen for the module, may be repeated")
	f.StringArrayVar(&c.envs, "env", nil, "environment variable to expose to the module as KEY=VALUE, may be repeated")
}

func (c *runCmd) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("a .wasm file to run is required")
	}
	name := args[0]
	b, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	mod, err := wasm.ParseModule(b)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	r := reporting.Get()
	r.Notice("parsed %s: %d sections, %d types, %d imported functions",
		name, len(mod.Sections), len(mod.Types), len(mod.Imports))
	for _, imp := range mod.ImportedI64Funcs() {
		// These are the imports a JavaScript host cannot call without the
		// BigInt lowering transform. A native runtime takes them as-is.
		r.Warnf("import %s.%s uses i64 in its signature", imp.Module, imp.Field)
	}

	cfg, err := c.moduleConfig(name, args[1:])
	if err != nil {
		return err
	}
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	if _, err = rt.InstantiateWithConfig(ctx, b, cfg); err != nil {
		var exit *sys.ExitError
		if errors.As(err, &exit) {
			if exit.ExitCode() == 0 {
				return nil
			}
			return fmt.Errorf("%s exited with code %d", filepath.Base(name), exit.ExitCode())
		}
		return err
	}
	return nil
}

func (c *runCmd) moduleConfig(name string, args []string) (wazero.ModuleConfig, error) {
	fsCfg := wazero.NewFSConfig()
	for _, d := range c.dirs {
		fsCfg = fsCfg.WithDirMount(d, d)
	}
	cfg := wazero.NewModuleConfig().
		WithFSConfig(fsCfg).
		WithStdin(os.Stdin).
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithArgs(append([]string{filepath.Base(name)}, args...)...)
	for _, kv := range c.envs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --env value %q, expected KEY=VALUE", kv)
		}
		cfg = cfg.WithEnv(k, v)
	}
	return cfg, nil
}
