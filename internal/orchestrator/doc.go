// Package orchestrator coordinates AI CLI agents through configured
// workflows with bounded refinement iterations.
//
// # Overview
//
// The orchestrator is the top-level entry point for task execution. It
// resolves a named workflow into agent steps, runs the step pipeline up
// to a configured number of iterations, and stops early once a pass
// looks complete.
//
// # Architecture
//
// One task moves through a fixed loop:
//
//	validate → resolve workflow → iterate(pipeline pass) → aggregate
//
// Each pass delegates to the workflow engine, which invokes agents in
// order and folds their outputs into the context the next step reads.
// After every pass the stop predicate decides whether another iteration
// is worth running: the run ends successfully when every step succeeded
// and no review step asked for more changes than the configured
// suggestion threshold.
//
// # Failure containment
//
// Step and agent failures are recorded in the iteration history and
// never abort the run; a RunResult is produced even when every step
// failed. Only pre-flight problems reach the caller as errors:
// rejected input (ValidationError), an unknown workflow name
// (ConfigurationError), a workflow with no usable steps, or an
// exhausted rate limit.
//
// # Usage
//
//	reg, err := agent.NewRegistry(cfg, agent.Options{Logger: logger})
//	if err != nil {
//		return err
//	}
//	orc := orchestrator.New(cfg, reg, orchestrator.Options{Logger: logger})
//	result, err := orc.ExecuteTask(ctx, "add retry logic to the fetcher", "", 0)
//	if err != nil {
//		return err
//	}
//	fmt.Println(result.FinalOutput)
package orchestrator
