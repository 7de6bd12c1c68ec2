// Package config wraps viper in the typed lookup contract the scheduler,
// executor, and isolation layer actually need: parallelism, the
// unprivileged user to drop privileges to, the host's architecture and
// platform facts, and a flat bag of user-supplied test variables.
package config
