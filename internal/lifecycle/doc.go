// Package lifecycle drives a tourney through its scheduled transitions.
//
// Timers are pure in-memory state: nothing about the schedule is persisted
// beyond the tourney bounds themselves, and the whole timer set is re-derived
// from the store on every process start. A transition fires at most once per
// process; a fire instant already in the past fires immediately instead of
// being dropped.
package lifecycle
