// Package memory implements the repositories in process memory. It honours the
// same conditional-update and uniqueness semantics as the MongoDB repositories
// and backs STORE_DRIVER=memory as well as the service and handler tests.
package memory
