// Package testutils provides testing utilities shared by the package tests.
//
// This package contains helpers for:
//  1. Wiring the full service stack over the in-memory backend
//  2. Building domain tasks with functional options
//  3. Locating the optional Postgres database used by integration tests
//
// # Service Stack
//
//	stack := testutils.NewStack(t)
//	manager := stack.MustCreateUser(t, "Morgan", domain.RoleManager)
//	task, err := stack.Tasks.CreateTask(ctx, input, service.ActorFromUser(manager))
//
// # Test Tasks
//
//	task := testutils.MustCreateTaskForTest(t,
//	    testutils.WithTaskTenant("acme"),
//	    testutils.WithTaskDeadlineIn(2*time.Hour),
//	    testutils.WithTaskAssignee(worker),
//	)
package testutils
