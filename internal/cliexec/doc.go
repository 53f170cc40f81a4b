// Package cliexec runs external AI CLI tools with interchangeable
// prompt-delivery strategies and bounded execution.
//
// # Strategies
//
// Four interaction strategies cover the ways CLI tools accept prompts:
//
//   - arg: prompt appended as the final argument, stdin closed
//   - stdin: prompt written to a pseudo-terminal (falls back to arg
//     when no PTY can be allocated)
//   - file: prompt written to a temp file, passed via --input/--output
//   - heredoc: prompt delivered through a bash heredoc
//
// "pty" is accepted as an alias for stdin.
//
// # Execution model
//
// Every run is bounded by a timeout; on expiry the whole process group
// is killed and the result carries a timeout-tagged stderr. Process
// failures are reported in Result, not as errors: the error return is
// reserved for machinery faults (unknown strategy, temp-file I/O) and
// caller cancellation.
//
// # Retry and workspaces
//
// Coordinator retries failed runs with exponential backoff, switching
// strategy on each attempt so a tool that rejects one delivery mode can
// still be reached. Tracker snapshots workspace mtimes around a run to
// report created and modified files.
package cliexec
