// Package mocks provides mock implementations of the application's core
// interfaces for testing.
package mocks
