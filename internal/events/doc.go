// Package events carries task lifecycle events from the lifecycle engine to
// the components that react to them.
//
// The engine emits a LifecycleEvent after every successful task mutation
// without knowing who listens. Handlers such as the activity feed register
// with an EventEmitter and turn the events into their own records. A failing
// handler never undoes the mutation that produced the event.
package events
