// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that fail the test
// immediately on setup errors instead of repeating the error handling.
package testutil
