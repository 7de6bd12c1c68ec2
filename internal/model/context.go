package model

// Context captures the environment a run executed under: the working
// directory the driver was invoked from and the full set of environment
// variables visible to it. It is written to the results store once per run
// (§3, §4.8 "put_context").
type Context struct {
	CWD     string
	EnvVars map[string]string
}
