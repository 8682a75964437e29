// Package agentexec provides a guarded shell command-execution tool for
// AI agents.
//
// A Tool runs a command through the user's shell after checking it against a
// textual safety guard, enforces a timeout by killing the command's whole
// process group, and renders the result as a single string suitable for
// returning to a model.
//
// Key features:
//   - Deny-list of dangerous patterns, with an optional allow-list
//   - Optional confinement of path literals to the working directory
//   - Timeout with process-group termination and bounded drain
//   - Output normalization and truncation
//   - Pluggable guard pipeline via the Guard interface and ChainGuard
//
// The guard is a lexical pre-filter, not an isolation boundary. Commands can
// reach outside the workspace through variable expansion, globbing or command
// substitution; run the tool inside a real sandbox when that matters.
//
// Basic usage:
//
//	tool, err := agentexec.NewTool(agentexec.WorkspaceConfig("/srv/workspace"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(tool.Execute(ctx, "ls -la"))
package agentexec
