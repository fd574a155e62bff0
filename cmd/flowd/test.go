package main

import (
	"fmt"
	"os"

	"github.com/cuemby/flowd/pkg/component"
	"github.com/cuemby/flowd/pkg/config"
	"github.com/cuemby/flowd/pkg/event"
	"github.com/cuemby/flowd/pkg/topology"
	"github.com/spf13/cobra"
)

var testConfigPath string

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the config's embedded transform unit-test declarations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(testConfigPath, "")
		if err != nil {
			return &configError{err}
		}

		if len(cfg.Tests) == 0 {
			fmt.Println("no tests declared")
			return nil
		}

		reg := builtinRegistry()
		failed := 0
		for _, tc := range cfg.Tests {
			if err := runTestCase(reg, cfg, tc); err != nil {
				fmt.Printf("FAIL %s: %v\n", tc.Name, err)
				failed++
				continue
			}
			fmt.Printf("ok   %s\n", tc.Name)
		}

		if failed > 0 {
			fmt.Printf("%d/%d tests failed\n", failed, len(cfg.Tests))
			os.Exit(exitFailure)
		}
		return nil
	},
}

func init() {
	testCmd.Flags().StringVarP(&testConfigPath, "config", "c", "flowd.yaml", "Path to the config file")
}

// runTestCase builds tc.Transform in isolation, feeds it tc.Input, and
// asserts the result against tc.Outputs.
func runTestCase(reg *topology.Registry, cfg topology.Config, tc topology.TestCase) error {
	xf, ok := cfg.Transforms[tc.Transform]
	if !ok {
		return fmt.Errorf("no transform named %q", tc.Transform)
	}

	built, err := reg.BuildTransform(xf.Type, component.Key(tc.Transform), xf.Params)
	if err != nil {
		return fmt.Errorf("build transform: %w", err)
	}

	ft, ok := built.(component.FunctionTransform)
	if !ok {
		return fmt.Errorf("transform %q is stateful (TaskTransform); only FunctionTransform can be unit tested in isolation", tc.Transform)
	}

	in := event.NewLog(inputPayload(tc.Input))
	got := ft.Transform(in)

	if len(tc.Outputs) == 1 && tc.Outputs[0].Dropped {
		if len(got) != 0 {
			return fmt.Errorf("expected event to be dropped, got %d output event(s)", len(got))
		}
		return nil
	}

	if len(got) != len(tc.Outputs) {
		return fmt.Errorf("expected %d output event(s), got %d", len(tc.Outputs), len(got))
	}

	for i, want := range tc.Outputs {
		if want.Dropped {
			return fmt.Errorf("output %d: dropped assertion must be the only entry", i)
		}
		log := got[i].Log()
		if log == nil {
			return fmt.Errorf("output %d: not a log event", i)
		}
		for _, assertion := range want.Fields {
			v, present := log.Get(assertion.Path)
			if !present {
				return fmt.Errorf("output %d: field %q missing", i, assertion.Path)
			}
			if v.String() != assertion.Equals {
				return fmt.Errorf("output %d: field %q = %q, want %q", i, assertion.Path, v.String(), assertion.Equals)
			}
		}
	}
	return nil
}

func inputPayload(in topology.TestInput) *event.LogPayload {
	p := event.NewLogPayload()
	for _, f := range in.Fields {
		p.Set(f.Path, event.Str(f.Equals))
	}
	return p
}
