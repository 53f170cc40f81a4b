// Testagent is a stand-in AI CLI for exercising ensemble without real
// agent tools.
//
// It accepts a prompt the same ways the real tools do (final argument,
// stdin, or --input/--output files), so a config pointing any agent at
// this binary runs the full pipeline offline:
//
//	agents:
//	  codex:
//	    command: testagent
//	    strategy: arg
//
// Flags shape the reply for failure-path testing:
//
//	testagent --fail           exit nonzero with an error message
//	testagent --sleep 10s      stall to trigger timeouts
//	testagent --suggestions 4  emit numbered review findings
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		fail        = flag.Bool("fail", false, "exit nonzero with an error message")
		sleep       = flag.Duration("sleep", 0, "stall before replying")
		suggestions = flag.Int("suggestions", 0, "emit this many numbered review findings")
		inputPath   = flag.String("input", "", "read the prompt from this file")
		outputPath  = flag.String("output", "", "write the reply to this file")
	)
	flag.Parse()

	prompt, err := readPrompt(*inputPath, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "testagent: %v\n", err)
		os.Exit(2)
	}

	if *sleep > 0 {
		time.Sleep(*sleep)
	}

	if *fail {
		fmt.Fprintln(os.Stderr, "testagent: simulated tool failure")
		os.Exit(1)
	}

	reply := buildReply(prompt, *suggestions)

	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, []byte(reply), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "testagent: %v\n", err)
			os.Exit(2)
		}
		return
	}
	fmt.Print(reply)
}

// readPrompt takes the prompt from --input, the final arguments, or
// stdin, in that order.
func readPrompt(inputPath string, args []string) (string, error) {
	if inputPath != "" {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	// The PTY delivery path terminates the prompt with EOT.
	return strings.TrimRight(string(data), "\x04\r\n"), nil
}

func buildReply(prompt string, suggestions int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "testagent reply (%d prompt bytes)\n\n", len(prompt))

	if first := firstLine(prompt); first != "" {
		fmt.Fprintf(&b, "Task: %s\n", first)
	}

	if suggestions > 0 {
		b.WriteString("\nFindings:\n")
		for i := 1; i <= suggestions; i++ {
			fmt.Fprintf(&b, "%d. Finding %d from testagent\n", i, i)
		}
	} else {
		b.WriteString("\nDone. No further changes needed.\n")
	}
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
