// Package kyuafile loads a Kyuafile — a small YAML document naming test
// suites and the test programs within them — into an ordered list of
// model.TestProgram descriptors, rooted at a build root the caller
// supplies, for the scheduler to list and drive. It
// does not itself resolve wildcards or a Lua-configurable build tree; it
// reads a flat, explicit list, matching the "treat as external
// collaborator with a narrow interface" framing the test programs/cases
// that actually execute are built around.
package kyuafile
