package agentexec

// Option configures a single Execute, Run or Check call.
type Option func(*callOptions)

// callOptions holds per-call configuration applied via Option functions.
type callOptions struct {
	workingDir string
}

// WithWorkingDir sets the working directory for a single call. It takes
// precedence over Config.WorkingDir. An empty dir is ignored.
func WithWorkingDir(dir string) Option {
	return func(o *callOptions) {
		if dir != "" {
			o.workingDir = dir
		}
	}
}

// mergeCallOptions applies per-call Option functions and returns the result.
// Nil options are skipped.
func mergeCallOptions(opts ...Option) *callOptions {
	co := &callOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(co)
		}
	}
	return co
}
