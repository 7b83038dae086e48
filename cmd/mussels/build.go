package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mussels-build/mussels/internal/engine"
	"github.com/mussels-build/mussels/internal/muserrors"
	"github.com/mussels-build/mussels/internal/planner"
	"github.com/mussels-build/mussels/internal/platform"
	"github.com/mussels-build/mussels/internal/toolchain"
	"github.com/mussels-build/mussels/internal/version"
)

// buildOptions collects the common flags shared by every verb that touches
// an item reference (spec.md §6 "Common flags").
type buildOptions struct {
	versionConstraint string
	cookbook          string
	target            string
	dryRun            bool
	rebuild           bool
}

func addBuildFlags(cmd *cobra.Command, opts *buildOptions) {
	cmd.Flags().StringVarP(&opts.versionConstraint, "version", "v", "", "Version constraint (e.g. >=1.2)")
	cmd.Flags().StringVarP(&opts.cookbook, "cookbook", "c", "", "Preferred cookbook")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "host", "Target architecture tag")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "d", false, "Print the build plan without running it")
	cmd.Flags().BoolVar(&opts.rebuild, "clean", false, "Force rebuild: remove cached fetch/extract state first")
}

// resolveRootReference parses itemArg as a reference, folding in --version
// and --cookbook overrides, and rejects an explicit, untrusted cookbook
// before any catalog lookup runs (spec.md §8 scenario 6 "Untrusted
// cookbook": "the engine refuses before fetch").
func (a *app) resolveRootReference(itemArg string, opts buildOptions) (version.Reference, error) {
	spelling := itemArg
	if opts.versionConstraint != "" {
		spelling = spelling + versionOperatorSpelling(opts.versionConstraint)
	}
	ref, err := version.ParseReference(spelling)
	if err != nil {
		return version.Reference{}, err
	}
	if opts.cookbook != "" {
		ref.Cookbook = opts.cookbook
	}
	if ref.Cookbook != "" && !a.reg.IsTrusted(ref.Cookbook) {
		return version.Reference{}, &muserrors.UntrustedCookbook{Cookbook: ref.Cookbook}
	}
	return ref, nil
}

// runBuild drives one top-level build request end to end: resolve, plan,
// validate tools, and run the engine, printing a summary table and
// returning a non-nil error if anything in the plan failed.
func runBuild(ctx context.Context, itemArg string, opts buildOptions) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ref, err := a.resolveRootReference(itemArg, opts)
	if err != nil {
		return err
	}

	idx, err := a.loadIndex()
	if err != nil {
		return err
	}

	hostOS := platform.HostOS()
	plan, err := planner.Plan(idx, planner.Request{
		Root: ref, Target: opts.target, HostOS: hostOS, Trust: a.reg,
	})
	if err != nil {
		return err
	}

	if opts.dryRun {
		printPlan(plan)
		return nil
	}

	toolResult := toolchain.Validate(idx, plan, opts.target, hostOS, a.reg, engine.HostDetector{}, nil)
	for _, warning := range toolResult.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}
	if len(toolResult.Missing) > 0 {
		for _, name := range toolResult.Missing {
			printError(&muserrors.ToolMissing{Name: name})
		}
		return fmt.Errorf("required tools are missing, aborting before any recipe runs")
	}

	e := engine.New(a.ws, toolResult.Toolchain, opts.target, opts.rebuild, nil)
	results, buildErr := e.BuildPlan(ctx, plan)
	printResults(results)
	return buildErr
}

// versionOperatorSpelling turns a --version flag value into the operator
// suffix ParseReference expects: the value as given if it already leads
// with a relational operator (">=1.2"), or "==" prepended to a bare version.
func versionOperatorSpelling(constraint string) string {
	for _, tok := range []string{">=", "<=", "==", ">", "<", "=", "@"} {
		if len(constraint) >= len(tok) && constraint[:len(tok)] == tok {
			return constraint
		}
	}
	return "==" + constraint
}

func printPlan(plan *planner.Plan) {
	for i, batch := range plan.Batches {
		fmt.Printf("batch %d:\n", i+1)
		for _, name := range batch {
			node := plan.Nodes[name]
			fmt.Printf("  %s==%s (%s)\n", node.Name, node.Version, node.Cookbook)
		}
	}
}

func printResults(results []engine.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECIPE\tVERSION\tSTATE\tRESULT\tELAPSED")
	for _, r := range results {
		status := "ok"
		if r.Skipped {
			status = "skipped"
		} else if !r.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Version, r.State, status, r.Elapsed.Round(1e6))
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.Name, r.Err)
		}
	}
	w.Flush()
}
