// Package zlog implements an asynchronous, multi-severity, multi-sink
// logging core: a bounded producer/consumer pipeline feeding a console sink
// and a file sink manager with size- or calendar-day-based rotation.
//
// Callers obtain a *Service (via New, or the lazily-initialized package
// singleton returned by Default) and drive it through Initialize, Submit,
// ShouldLog, Flush, and Shutdown. Everything above Submit (level-tagged
// helper functions, scoped timers, call-site throttling) is left to the
// embedding application; this package only guarantees that a populated
// Record reaches its configured sinks in order, or is counted as dropped.
package zlog
