// Package model defines the data types shared by every other package in
// this repository: the description of a test program and its test cases,
// their metadata, and the typed result of running one.
//
// # Overview
//
// model has no dependency on anything that touches a filesystem or forks a
// process; it is pure data plus the small amount of logic (equality,
// defaults, "is this outcome good") that belongs with the data rather than
// with whoever produces or consumes it.
//
// # Back-references
//
// The original implementation this package is modeled after lets a test
// case hold a reference back to its owning test program, which makes the
// two types mutually recursive. Here a TestCase carries no reference to its
// program at all: code that needs both holds a *TestProgram and a case
// name, so nothing needs a cyclic pointer and nothing needs an arena
// allocator.
package model
