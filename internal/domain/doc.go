// Package domain contains the core entities of the task lifecycle: the
// TaskRecord tracking one submitted command through its execution states,
// and the ResultEntry materialized from completed tasks. Domain types
// enforce their own transition rules and carry no infrastructure concerns.
package domain
